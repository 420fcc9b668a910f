package compiler

import (
	"errors"
	"fmt"

	"github.com/stealthrocket/cursor/ir"
)

// Verify checks the structure of a lowered generator: the eight methods of
// the protocol are defined, no yield statement is left, jumps target labels
// at the top level of their function, and every function ends with a
// return.
func Verify(p *ir.Program, gen ir.FuncID) error {
	fn := p.Func(gen)
	info := fn.Iterator
	if info == nil {
		return fmt.Errorf("%s is not lowered", fn.Name)
	}
	if fn.Result != info.Class || info.Class.DefaultConstructor != gen {
		return fmt.Errorf("%s does not construct %s", fn.Name, info.Class.Name)
	}

	var errs []error
	for _, m := range append(info.Methods(), gen) {
		if m == 0 {
			errs = append(errs, fmt.Errorf("%s: missing protocol method", info.Class.Name))
			continue
		}
		errs = append(errs, verifyFunc(p, m)...)
	}
	return errors.Join(errs...)
}

func verifyFunc(p *ir.Program, fn ir.FuncID) (errs []error) {
	f := p.Func(fn)
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{f.Name}, args...)...))
	}

	labels := map[string]bool{}
	for _, s := range p.Stmts(f.Body) {
		if n := p.Node(s); n.Op == ir.OpLabel {
			if labels[n.Name] {
				fail("label %s defined twice", n.Name)
			}
			labels[n.Name] = true
		}
	}

	p.Inspect(f.Body, func(id ir.NodeID) bool {
		n := p.Node(id)
		switch n.Op {
		case ir.OpYield:
			fail("yield left after lowering")
		case ir.OpLabel:
			if n.Parent != f.Body {
				fail("label %s is not at the top level", n.Name)
			}
		case ir.OpGoto, ir.OpCase:
			if !labels[n.Name] {
				fail("jump to undefined label %s", n.Name)
			}
		}
		return true
	})

	stmts := p.Stmts(f.Body)
	if len(stmts) == 0 || p.Op(stmts[len(stmts)-1]) != ir.OpReturn {
		fail("missing final return")
	}
	return errs
}
