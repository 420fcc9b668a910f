package compiler

import (
	"fmt"
	"go/token"

	"github.com/stealthrocket/cursor/ir"
)

// InternalError is raised when the lowering pass meets a shape its input
// was guaranteed not to have. Lowering of the generator is aborted.
type InternalError struct {
	Func string
	Pos  token.Position
	Node string
	Msg  string
}

func (e *InternalError) Error() string {
	s := "internal error"
	if e.Pos.IsValid() {
		s = e.Pos.String() + ": " + s
	}
	s += " lowering " + e.Func + ": " + e.Msg
	if e.Node != "" {
		s += "\n\t" + e.Node
	}
	return s
}

func (l *lowering) fatalf(id ir.NodeID, format string, args ...any) {
	e := &InternalError{Func: l.fn.Name, Msg: fmt.Sprintf(format, args...)}
	if id != 0 {
		e.Pos = l.prog.Position(id)
		e.Node = l.prog.NodeString(id)
	}
	panic(e)
}

// unsupported checks the body of a generator for nodes that may not appear
// before lowering.
func (l *lowering) unsupported() {
	p := l.prog
	l.prog.Inspect(l.fn.Body, func(id ir.NodeID) bool {
		n := p.Node(id)
		switch n.Op {
		case ir.OpSwitch, ir.OpCase:
			l.fatalf(id, "dispatch statement in a generator")
		case ir.OpReturn:
			if len(n.Kids) > 0 {
				l.fatalf(id, "return with a value in a generator")
			}
		case ir.OpGetMember, ir.OpSetMember, ir.OpMemberAddr:
			if l.fn.Receiver == nil {
				l.fatalf(id, "member access in a generator without receiver")
			}
		case ir.OpLoop:
			if n.Loop == 0 {
				l.fatalf(id, "loop without a kind")
			}
		}
		return true
	})
}

// isSingleLoopIterator reports whether the body of the generator has the
// shape handled by the single loop engine: exactly one loop, at the top
// level of the body, holding exactly one yield at the top level of its own
// body, and no jumps. The only return allowed is the trailing one.
func (l *lowering) isSingleLoopIterator() (loop, yield ir.NodeID, ok bool) {
	p := l.prog
	body := l.fn.Body
	stmts := p.Stmts(body)
	if len(stmts) == 0 {
		return 0, 0, false
	}
	last := stmts[len(stmts)-1]

	for _, id := range p.PostOrder(body) {
		n := p.Node(id)
		switch n.Op {
		case ir.OpLoop:
			if loop != 0 || n.Parent != body {
				return 0, 0, false
			}
			switch n.Loop {
			case ir.For, ir.CFor, ir.WhileDo:
			default:
				return 0, 0, false
			}
			loop = id
		case ir.OpYield:
			if yield != 0 {
				return 0, 0, false
			}
			yield = id
		case ir.OpGoto, ir.OpLabel:
			return 0, 0, false
		case ir.OpReturn:
			if id != last {
				return 0, 0, false
			}
		}
	}
	if loop == 0 || yield == 0 || p.Node(yield).Parent != p.Node(loop).LoopBody() {
		return 0, 0, false
	}
	return loop, yield, true
}
