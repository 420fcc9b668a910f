package compiler

import (
	"github.com/stealthrocket/cursor/ir"
)

// normalize rewrites the body of the generator into the shape expected by
// the analysis and the lowering engines. The rewrite does not change the
// meaning of the generator.
//
// Yielded values are first stored into the return slot, which is the only
// operand of yield statements afterwards:
//
//	yield x + 1   =>   _ret = x + 1; yield _ret
//
// Loop conditions are hoisted into a temporary assigned before the loop and
// at the end of its body, so that the condition can be tested from the
// methods of the cursor object without re-evaluating code that was already
// run. Conditions that are a boolean variable are hoisted too, since the
// body may assign the variable before the yield:
//
//	while f(x) { ... }   =>   _v0 = f(x); while _v0 { ...; _v0 = f(x) }
//
// Finally, a return statement is appended to bodies that do not end with
// one.
func (l *lowering) normalize() {
	p := l.prog
	fn := l.fn
	if fn.Return == 0 {
		t := fn.Result
		if fn.RefReturn {
			t = ir.RefTo(t)
		}
		fn.Return = p.Local(l.gen, "_ret", t)
	}

	for _, id := range p.PostOrder(fn.Body) {
		n := p.Node(id)
		switch n.Op {
		case ir.OpYield:
			x := n.Kids[0]
			if p.Op(x) == ir.OpVar && p.Node(x).Var == fn.Return {
				continue
			}
			p.Remove(x)
			p.InsertBefore(id, p.At(p.Assign(fn.Return, x), n.Pos))
			p.SetKid(id, 0, p.Ref(fn.Return))

		case ir.OpLoop:
			if n.Loop == ir.CFor {
				continue
			}
			cond := n.LoopCond()
			c := p.Local(l.gen, l.newVar(), ir.Bool)
			if n.Loop != ir.DoWhile {
				p.InsertBefore(id, p.Assign(c, p.Clone(cond, ir.NewMap())))
			}
			p.SetKid(id, 0, p.Ref(c))
			p.Append(n.LoopBody(), p.Assign(c, cond))
		}
	}

	stmts := p.Stmts(fn.Body)
	if len(stmts) == 0 || p.Op(stmts[len(stmts)-1]) != ir.OpReturn {
		p.Append(fn.Body, p.Return(0))
	}
}
