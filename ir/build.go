package ir

import "go/token"

// add appends n to the arena and adopts its children, detaching them from
// their previous parent.
func (p *Program) add(n *Node) NodeID {
	for _, kid := range n.Kids {
		if kid != 0 {
			p.detach(kid)
		}
	}
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, n)
	for _, kid := range n.Kids {
		if kid != 0 {
			p.Node(kid).Parent = id
		}
	}
	return id
}

// Block returns a block holding stmts.
func (p *Program) Block(stmts ...NodeID) NodeID {
	return p.add(&Node{Op: OpBlock, Kids: append([]NodeID{}, stmts...)})
}

// Assign returns the statement v = x.
func (p *Program) Assign(v VarID, x NodeID) NodeID {
	return p.add(&Node{Op: OpAssign, Var: v, Kids: []NodeID{x}})
}

// Store returns the statement *r = x.
func (p *Program) Store(r VarID, x NodeID) NodeID {
	return p.add(&Node{Op: OpStore, Var: r, Kids: []NodeID{x}})
}

// SetField returns the statement v.field = x on a record variable.
func (p *Program) SetField(v VarID, field int, x NodeID) NodeID {
	return p.add(&Node{Op: OpSetField, Var: v, Field: field, Kids: []NodeID{x}})
}

// SetIndex returns the statement v[index] = x on an array variable.
func (p *Program) SetIndex(v VarID, index, x NodeID) NodeID {
	return p.add(&Node{Op: OpSetIndex, Var: v, Kids: []NodeID{index, x}})
}

// SetMember returns the statement recv.field = x on an object.
func (p *Program) SetMember(recv NodeID, field int, x NodeID) NodeID {
	return p.add(&Node{Op: OpSetMember, Field: field, Kids: []NodeID{recv, x}})
}

// ExprStmt returns a statement evaluating x for its side effects.
func (p *Program) ExprStmt(x NodeID) NodeID {
	return p.add(&Node{Op: OpExpr, Kids: []NodeID{x}})
}

// If returns a conditional statement. The else branch may be zero.
func (p *Program) If(cond, then, els NodeID) NodeID {
	return p.add(&Node{Op: OpIf, Kids: []NodeID{cond, then, els}})
}

// Loop returns a For, WhileDo or DoWhile loop.
func (p *Program) Loop(kind LoopKind, cond, body NodeID) NodeID {
	if kind == CFor {
		panic("ir: use CFor to build counted loops")
	}
	return p.add(&Node{Op: OpLoop, Loop: kind, Kids: []NodeID{cond, body}})
}

// While returns a WhileDo loop.
func (p *Program) While(cond, body NodeID) NodeID { return p.Loop(WhileDo, cond, body) }

// CFor returns a counted loop over index.
func (p *Program) CFor(index VarID, start, bound, step, body NodeID) NodeID {
	p.Var(index).IndexVar = true
	return p.add(&Node{Op: OpLoop, Loop: CFor, Var: index, Kids: []NodeID{start, bound, step, body}})
}

// Yield returns a yield statement.
func (p *Program) Yield(x NodeID) NodeID {
	return p.add(&Node{Op: OpYield, Kids: []NodeID{x}})
}

// Return returns a return statement. The value may be zero.
func (p *Program) Return(x NodeID) NodeID {
	if x == 0 {
		return p.add(&Node{Op: OpReturn})
	}
	return p.add(&Node{Op: OpReturn, Kids: []NodeID{x}})
}

// Label returns a label statement.
func (p *Program) Label(name string) NodeID {
	return p.add(&Node{Op: OpLabel, Name: name})
}

// Goto returns a jump to the named label.
func (p *Program) Goto(name string) NodeID {
	return p.add(&Node{Op: OpGoto, Name: name})
}

// Switch returns a dispatch statement jumping to the label of the first case
// equal to tag. Execution falls through when no case matches.
func (p *Program) Switch(tag NodeID, cases ...NodeID) NodeID {
	return p.add(&Node{Op: OpSwitch, Kids: append([]NodeID{tag}, cases...)})
}

// Case returns a case of a switch statement.
func (p *Program) Case(value int64, label string) NodeID {
	return p.add(&Node{Op: OpCase, Int: value, Name: label})
}

// Int returns an integer constant.
func (p *Program) Int(v int64) NodeID {
	return p.add(&Node{Op: OpConst, Type: Int, Int: v})
}

// Cursor returns a cursor ID constant.
func (p *Program) Cursor(v int64) NodeID {
	return p.add(&Node{Op: OpConst, Type: CursorID, Int: v})
}

// Bool returns a boolean constant.
func (p *Program) Bool(v bool) NodeID {
	return p.add(&Node{Op: OpConst, Type: Bool, Bool: v})
}

// Nil returns the nil constant of a reference or class type.
func (p *Program) Nil(t *Type) NodeID {
	return p.add(&Node{Op: OpConst, Type: t})
}

// Default returns the default value of a scalar type.
func (p *Program) Default(t *Type) NodeID {
	return p.add(&Node{Op: OpConst, Type: t, Int: t.DefaultInt, Bool: t.DefaultBool})
}

// Zero returns the zero value of t.
func (p *Program) Zero(t *Type) NodeID {
	return p.add(&Node{Op: OpZero, Type: t})
}

// Ref returns a read of v.
func (p *Program) Ref(v VarID) NodeID {
	return p.add(&Node{Op: OpVar, Var: v})
}

// Addr returns the address of v.
func (p *Program) Addr(v VarID) NodeID {
	return p.add(&Node{Op: OpAddr, Var: v})
}

// Deref returns a read through the reference held by r.
func (p *Program) Deref(r VarID) NodeID {
	return p.add(&Node{Op: OpDeref, Var: r})
}

// Binary returns x op y.
func (p *Program) Binary(op token.Token, x, y NodeID) NodeID {
	return p.add(&Node{Op: OpBinary, Tok: op, Kids: []NodeID{x, y}})
}

// Unary returns op x.
func (p *Program) Unary(op token.Token, x NodeID) NodeID {
	return p.add(&Node{Op: OpUnary, Tok: op, Kids: []NodeID{x}})
}

// Not returns !x.
func (p *Program) Not(x NodeID) NodeID { return p.Unary(token.NOT, x) }

// FieldOf returns x.field on a record value.
func (p *Program) FieldOf(x NodeID, field int) NodeID {
	return p.add(&Node{Op: OpField, Field: field, Kids: []NodeID{x}})
}

// Index returns x[i] on an array value.
func (p *Program) Index(x, i NodeID) NodeID {
	return p.add(&Node{Op: OpIndex, Kids: []NodeID{x, i}})
}

// GetMember returns recv.field on an object.
func (p *Program) GetMember(recv NodeID, field int) NodeID {
	return p.add(&Node{Op: OpGetMember, Field: field, Kids: []NodeID{recv}})
}

// MemberAddr returns a reference to recv.field on an object.
func (p *Program) MemberAddr(recv NodeID, field int) NodeID {
	return p.add(&Node{Op: OpMemberAddr, Field: field, Kids: []NodeID{recv}})
}

// Call returns a call to the function fn.
func (p *Program) Call(fn FuncID, args ...NodeID) NodeID {
	return p.add(&Node{Op: OpCall, Func: fn, Kids: append([]NodeID{}, args...)})
}

// CallHost returns a call to a function provided by the environment.
func (p *Program) CallHost(name string, args ...NodeID) NodeID {
	return p.add(&Node{Op: OpCall, Name: name, Kids: append([]NodeID{}, args...)})
}

// New returns the allocation of an instance of class.
func (p *Program) New(class *Type) NodeID {
	return p.add(&Node{Op: OpNew, Type: class})
}

// Convert returns the conversion of x to t.
func (p *Program) Convert(t *Type, x NodeID) NodeID {
	return p.add(&Node{Op: OpConvert, Type: t, Kids: []NodeID{x}})
}

// At sets the source position of a node and returns it.
func (p *Program) At(id NodeID, pos token.Pos) NodeID {
	p.Node(id).Pos = pos
	return id
}
