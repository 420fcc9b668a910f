// Package ir is the tree representation consumed and produced by the
// generator lowering pass.
//
// Nodes, variables and functions live in the arena of a Program and are
// referred to by integer IDs. The zero value of every ID type is a sentinel
// meaning "none". Moving a subtree re-parents an ID; copying a subtree clones
// it into fresh IDs and records the correspondence in a Map.
package ir

import (
	"fmt"
	"go/token"
)

// NodeID identifies a node in the arena of a Program.
type NodeID uint32

// VarID identifies a variable in the arena of a Program.
type VarID uint32

// FuncID identifies a function in the arena of a Program.
type FuncID uint32

// Op is the operation of a node.
type Op uint8

const (
	OpInvalid Op = iota

	// Statements.
	OpBlock     // Kids: statements
	OpAssign    // Var = Kids[0]
	OpStore     // *Var = Kids[0]
	OpSetField  // Var.Field = Kids[0]
	OpSetIndex  // Var[Kids[0]] = Kids[1]
	OpSetMember // Kids[0].Field = Kids[1]
	OpExpr      // Kids[0]
	OpIf        // if Kids[0] { Kids[1] } else { Kids[2] }
	OpLoop      // see LoopKind
	OpYield     // yield Kids[0]
	OpReturn    // return [Kids[0]]
	OpLabel     // Name:
	OpGoto      // goto Name
	OpSwitch    // switch Kids[0] { Kids[1:]... }
	OpCase      // case Int: goto Name

	// Expressions.
	OpConst      // Type, Int or Bool; nil for references and classes
	OpZero       // zero value of Type
	OpVar        // Var
	OpAddr       // &Var
	OpDeref      // *Var
	OpBinary     // Kids[0] Tok Kids[1]
	OpUnary      // Tok Kids[0]
	OpField      // Kids[0].Field
	OpIndex      // Kids[0][Kids[1]]
	OpGetMember  // Kids[0].Field, on an object
	OpMemberAddr // &Kids[0].Field, on an object
	OpCall       // Func(Kids...) or Name(Kids...)
	OpNew        // new Type
	OpConvert    // Type(Kids[0])
)

var opNames = [...]string{
	OpInvalid:    "Invalid",
	OpBlock:      "Block",
	OpAssign:     "Assign",
	OpStore:      "Store",
	OpSetField:   "SetField",
	OpSetIndex:   "SetIndex",
	OpSetMember:  "SetMember",
	OpExpr:       "Expr",
	OpIf:         "If",
	OpLoop:       "Loop",
	OpYield:      "Yield",
	OpReturn:     "Return",
	OpLabel:      "Label",
	OpGoto:       "Goto",
	OpSwitch:     "Switch",
	OpCase:       "Case",
	OpConst:      "Const",
	OpZero:       "Zero",
	OpVar:        "Var",
	OpAddr:       "Addr",
	OpDeref:      "Deref",
	OpBinary:     "Binary",
	OpUnary:      "Unary",
	OpField:      "Field",
	OpIndex:      "Index",
	OpGetMember:  "GetMember",
	OpMemberAddr: "MemberAddr",
	OpCall:       "Call",
	OpNew:        "New",
	OpConvert:    "Convert",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// IsStmt reports whether nodes of this operation are statements.
func (op Op) IsStmt() bool { return op >= OpBlock && op <= OpCase }

// LoopKind discriminates the loop statements.
//
// For and WhileDo loops have Kids [cond, body] and test cond before each
// iteration. DoWhile loops have the same children but test cond after each
// iteration. CFor loops are counted: Var is the induction variable and Kids
// are [start, bound, step, body]; the loop runs Var = start; Var <= bound;
// Var += step.
type LoopKind uint8

const (
	For LoopKind = iota + 1
	CFor
	WhileDo
	DoWhile
)

func (k LoopKind) String() string {
	switch k {
	case For:
		return "for"
	case CFor:
		return "cfor"
	case WhileDo:
		return "while"
	case DoWhile:
		return "do"
	default:
		return fmt.Sprintf("LoopKind(%d)", k)
	}
}

// Node is an element of the tree. Children are referenced by ID; a zero
// child ID stands for an absent optional child (for example the else branch
// of an if statement).
type Node struct {
	Op     Op
	Parent NodeID
	Kids   []NodeID

	Var   VarID
	Func  FuncID
	Type  *Type
	Tok   token.Token
	Loop  LoopKind
	Field int
	Int   int64
	Bool  bool
	Name  string
	Pos   token.Pos
}

// Loop children accessors. They panic if the node is not a loop of the
// expected kind.

// LoopCond returns the condition of a For, WhileDo or DoWhile loop.
func (n *Node) LoopCond() NodeID { n.mustLoop(false); return n.Kids[0] }

// LoopBody returns the body of any loop.
func (n *Node) LoopBody() NodeID {
	if n.Op != OpLoop {
		panic("ir: not a loop: " + n.Op.String())
	}
	return n.Kids[len(n.Kids)-1]
}

// Start, Bound and Step return the range expressions of a CFor loop.
func (n *Node) Start() NodeID { n.mustLoop(true); return n.Kids[0] }
func (n *Node) Bound() NodeID { n.mustLoop(true); return n.Kids[1] }
func (n *Node) Step() NodeID  { n.mustLoop(true); return n.Kids[2] }

func (n *Node) mustLoop(counted bool) {
	if n.Op != OpLoop || (n.Loop == CFor) != counted {
		panic(fmt.Sprintf("ir: unexpected %s node (loop kind %s)", n.Op, n.Loop))
	}
}
