package compiler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/stealthrocket/cursor/gosrc"
	"github.com/stealthrocket/cursor/ir"
)

// Compile lowers the generators of the Go packages at path and writes the
// resulting programs to w.
//
// The path argument can either be a path to a package, or a pattern that
// matches multiple packages (for example, /path/to/module/...). Options set
// in the ITERC_FLAGS environment variable apply before options.
func Compile(ctx context.Context, path string, w io.Writer, options ...Option) error {
	envOptions, err := OptionsFromEnv()
	if err != nil {
		return err
	}
	options = append(envOptions, options...)
	o := newOptions(options)

	o.logger.Info("reading, parsing and type-checking", "path", path)
	units, err := gosrc.Load(path)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		o.logger.Info("no generators found. Nothing to do")
		return nil
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	gens := make([]Generator, len(units))
	for i, u := range units {
		gens[i] = Generator{Program: u.Program, Func: u.Func}
	}
	o.logger.Info("lowering generators", "count", len(gens))
	if err := LowerAll(ctx, gens, options...); err != nil {
		return err
	}
	if err := writeUnits(w, units); err != nil {
		return err
	}
	o.logger.Info("done")
	return nil
}

func writeUnits(w io.Writer, units []*gosrc.Unit) error {
	if _, err := io.WriteString(w, "// Code generated by iterc. DO NOT EDIT.\n"); err != nil {
		return err
	}
	for _, u := range units {
		if _, err := fmt.Fprintf(w, "\n// %s\n", u.Name); err != nil {
			return err
		}
		if err := ir.Fprint(w, u.Program); err != nil {
			return err
		}
	}
	return nil
}

// Generator names a generator function of a program.
type Generator struct {
	Program *ir.Program
	Func    ir.FuncID
}

// LowerAll lowers generators concurrently. Generators of the same program
// are lowered one after the other since lowering mutates the program.
func LowerAll(ctx context.Context, gens []Generator, options ...Option) error {
	o := newOptions(options)

	var programs []*ir.Program
	byProgram := map[*ir.Program][]ir.FuncID{}
	for _, g := range gens {
		if _, ok := byProgram[g.Program]; !ok {
			programs = append(programs, g.Program)
		}
		byProgram[g.Program] = append(byProgram[g.Program], g.Func)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(o.concurrency)
	for _, prog := range programs {
		prog, funcs := prog, byProgram[prog]
		group.Go(func() error {
			for _, fn := range funcs {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := Lower(prog, fn, options...); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return group.Wait()
}

// Lower rewrites the generator gen into a cursor object factory.
//
// A class holding the captured state of the generator is declared before
// it, along with the eight protocol methods. The body of the generator is
// replaced by the allocation and initialization of an instance of the
// class, which it returns.
//
// Lowering either fully succeeds or returns an error and leaves the program
// in an unspecified state.
func Lower(p *ir.Program, gen ir.FuncID, options ...Option) (err error) {
	l := &lowering{
		options: newOptions(options),
		prog:    p,
		gen:     gen,
		fn:      p.Func(gen),
	}
	if l.fn.Iterator != nil {
		return fmt.Errorf("%s: generator is already lowered", l.fn.Name)
	}
	if l.fn.Result == nil {
		return fmt.Errorf("%s: generator has no value type", l.fn.Name)
	}
	l.log = l.logger.With("func", l.fn.Name)

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()
	l.lower()
	return nil
}

// lowering is the state of the lowering of one generator.
type lowering struct {
	*options
	prog *ir.Program
	gen  ir.FuncID
	fn   *ir.Func
	log  *slog.Logger

	class *ir.Type
	info  *ir.IteratorInfo

	captures []*capture
	captured map[ir.VarID]*capture

	defs map[ir.VarID][]ir.NodeID
	uses map[ir.VarID][]ir.NodeID

	vars   int
	labels int
}

func (l *lowering) lower() {
	l.log.Debug("lowering generator")
	l.unsupported()
	l.normalize()

	live := analyze(l.prog, l.fn, l.options)
	l.synthesizeClass()
	l.allocateFields(live)

	if loop, yield, ok := l.isSingleLoopIterator(); ok && l.optimizeLoops {
		l.log.Debug("using single loop iterator")
		l.lowerSingleLoop(loop, yield)
	} else {
		l.log.Debug("using dispatch iterator")
		l.lowerDispatch()
	}
	l.construct()

	for _, m := range l.info.Methods() {
		pruneLocals(l.prog, m)
	}
	if err := Verify(l.prog, l.gen); err != nil {
		l.fatalf(0, "%v", err)
	}
	l.log.Debug("generator lowered", "class", l.class.Name, "fields", len(l.class.Fields))
}

func (l *lowering) newVar() string {
	name := fmt.Sprintf("_v%d", l.vars)
	l.vars++
	return name
}

func (l *lowering) newLabel() string {
	name := fmt.Sprintf("_l%d", l.labels)
	l.labels++
	return name
}

// pruneLocals removes the locals of fn that its body does not refer to.
func pruneLocals(p *ir.Program, fn ir.FuncID) {
	f := p.Func(fn)
	used := map[ir.VarID]bool{}
	for _, v := range p.Vars(f.Body) {
		used[v] = true
	}
	locals := f.Locals[:0]
	for _, v := range f.Locals {
		if used[v] {
			locals = append(locals, v)
		}
	}
	f.Locals = locals
}
