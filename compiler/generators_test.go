package compiler

import (
	"go/token"

	"github.com/stealthrocket/cursor/ir"
)

// generator builds a generator into a fresh program.
type generator struct {
	name  string
	build func(p *ir.Program) ir.FuncID
	args  []int64
	// single reports whether the generator has the shape of a single loop
	// iterator.
	single bool
}

func (g generator) program() (*ir.Program, ir.FuncID) {
	p := ir.NewProgram()
	return p, g.build(p)
}

// count yields 1 through n.
func count(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("count", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.Yield(p.Ref(i)),
		)),
	))
	return fn
}

// twoYields yields 10 then 20.
func twoYields(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("twoYields", ir.Int)
	p.SetBody(fn, p.Block(
		p.Yield(p.Int(10)),
		p.Yield(p.Int(20)),
	))
	return fn
}

// earlyReturn yields 0 through n-1 by returning from the middle of a
// loop.
func earlyReturn(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("earlyReturn", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(0), p.Int(100), p.Int(1), p.Block(
			p.If(p.Binary(token.EQL, p.Ref(i), p.Ref(n)), p.Block(p.Return(0)), 0),
			p.Yield(p.Ref(i)),
		)),
		p.Yield(p.Int(-1)),
	))
	return fn
}

// squares yields the squares of 0 through n-1, with a while loop.
func squares(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("squares", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	x := p.Local(fn, "x", ir.Int)
	sq := p.Local(fn, "sq", ir.Int)
	total := p.Local(fn, "total", ir.Int)
	p.SetBody(fn, p.Block(
		p.Assign(x, p.Int(0)),
		p.Assign(total, p.Int(0)),
		p.While(p.Binary(token.LSS, p.Ref(x), p.Ref(n)), p.Block(
			p.Assign(sq, p.Binary(token.MUL, p.Ref(x), p.Ref(x))),
			p.Assign(total, p.Binary(token.ADD, p.Ref(total), p.Ref(sq))),
			p.Yield(p.Ref(sq)),
			p.Assign(x, p.Binary(token.ADD, p.Ref(x), p.Int(1))),
		)),
		p.ExprStmt(p.CallHost("sink", p.Ref(total))),
	))
	return fn
}

// shrinking yields 1, 2 and 3 for n = 5: the bound of the loop decreases
// after each yield.
func shrinking(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("shrinking", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.Yield(p.Ref(i)),
			p.Assign(n, p.Binary(token.SUB, p.Ref(n), p.Int(1))),
		)),
	))
	return fn
}

var pair = func() *ir.Type {
	t := ir.NewRecord("pair")
	t.AddField("a", ir.Int)
	t.AddField("b", ir.Bool)
	return t
}()

// doubling keeps its state in a record.
func doubling(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("doubling", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	acc := p.Local(fn, "acc", pair)
	p.SetBody(fn, p.Block(
		p.SetField(acc, 0, p.Int(1)),
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.SetField(acc, 0, p.Binary(token.MUL, p.FieldOf(p.Ref(acc), 0), p.Int(2))),
			p.SetField(acc, 1, p.Not(p.FieldOf(p.Ref(acc), 1))),
			p.Yield(p.FieldOf(p.Ref(acc), 0)),
		)),
	))
	return fn
}

// records yields a record twice, changing it in between.
func records(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("records", pair)
	x := p.Local(fn, "x", pair)
	p.SetBody(fn, p.Block(
		p.SetField(x, 0, p.Int(4)),
		p.Yield(p.Ref(x)),
		p.SetField(x, 1, p.Bool(true)),
		p.Yield(p.Ref(x)),
	))
	return fn
}

// indirect writes through a reference before each yield.
func indirect(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("indirect", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	x := p.Local(fn, "x", ir.Int)
	r := p.Local(fn, "r", ir.RefTo(ir.Int))
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.Assign(r, p.Addr(x)),
			p.Store(r, p.Binary(token.ADD, p.Ref(x), p.Ref(i))),
			p.Yield(p.Ref(x)),
		)),
	))
	return fn
}

// branches yields from both branches of a conditional.
func branches(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("branches", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.If(p.Binary(token.EQL, p.Binary(token.REM, p.Ref(i), p.Int(2)), p.Int(0)),
				p.Block(p.Yield(p.Ref(i))),
				p.Block(p.Yield(p.Unary(token.SUB, p.Ref(i)))),
			),
		)),
	))
	return fn
}

// nested yields the pairs of a triangle.
func nested(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("nested", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	j := p.Local(fn, "j", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.CFor(j, p.Int(1), p.Ref(i), p.Int(1), p.Block(
				p.Yield(p.Binary(token.ADD, p.Binary(token.MUL, p.Ref(i), p.Int(10)), p.Ref(j))),
			)),
		)),
	))
	return fn
}

// doWhile runs its body at least once.
func doWhile(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("doWhile", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	x := p.Local(fn, "x", ir.Int)
	p.SetBody(fn, p.Block(
		p.Assign(x, p.Int(0)),
		p.Loop(ir.DoWhile, p.Binary(token.LSS, p.Ref(x), p.Ref(n)), p.Block(
			p.Yield(p.Ref(x)),
			p.Assign(x, p.Binary(token.ADD, p.Ref(x), p.Int(3))),
		)),
	))
	return fn
}

// jumps counts down with labels and gotos.
func jumps(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("jumps", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	p.SetBody(fn, p.Block(
		p.Label("top"),
		p.If(p.Binary(token.LEQ, p.Ref(n), p.Int(0)), p.Block(p.Goto("out")), 0),
		p.Yield(p.Ref(n)),
		p.Assign(n, p.Binary(token.SUB, p.Ref(n), p.Int(1))),
		p.Goto("top"),
		p.Label("out"),
	))
	return fn
}

// empty never yields past its loop.
func empty(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("empty", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(1), p.Int(0), p.Int(1), p.Block(
			p.Yield(p.Ref(i)),
		)),
	))
	return fn
}

// flagged tests a boolean variable that its body updates before yielding,
// yielding 0 through n.
func flagged(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("flagged", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	more := p.Local(fn, "more", ir.Bool)
	x := p.Local(fn, "x", ir.Int)
	p.SetBody(fn, p.Block(
		p.Assign(more, p.Bool(true)),
		p.Assign(x, p.Int(0)),
		p.While(p.Ref(more), p.Block(
			p.Assign(more, p.Binary(token.LSS, p.Ref(x), p.Ref(n))),
			p.Yield(p.Ref(x)),
			p.Assign(x, p.Binary(token.ADD, p.Ref(x), p.Int(1))),
		)),
	))
	return fn
}

// pointee reads through a reference taken before its loop.
func pointee(p *ir.Program) ir.FuncID {
	fn := p.NewFunc("pointee", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	x := p.Local(fn, "x", ir.Int)
	r := p.Local(fn, "r", ir.RefTo(ir.Int))
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.Assign(x, p.Int(5)),
		p.Assign(r, p.Addr(x)),
		p.CFor(i, p.Int(1), p.Ref(n), p.Int(1), p.Block(
			p.Yield(p.Deref(r)),
		)),
	))
	return fn
}

var generators = []generator{
	{name: "count", build: count, args: []int64{5}, single: true},
	{name: "count zero", build: count, args: []int64{0}, single: true},
	{name: "two yields", build: twoYields},
	{name: "early return", build: earlyReturn, args: []int64{4}},
	{name: "squares", build: squares, args: []int64{6}, single: true},
	{name: "shrinking bound", build: shrinking, args: []int64{5}, single: true},
	{name: "doubling", build: doubling, args: []int64{5}, single: true},
	{name: "records", build: records},
	{name: "indirect", build: indirect, args: []int64{4}, single: true},
	{name: "branches", build: branches, args: []int64{5}},
	{name: "nested", build: nested, args: []int64{4}},
	{name: "do while", build: doWhile, args: []int64{7}},
	{name: "jumps", build: jumps, args: []int64{3}},
	{name: "empty", build: empty, single: true},
	{name: "flagged", build: flagged, args: []int64{2}, single: true},
	{name: "pointee", build: pointee, args: []int64{3}, single: true},
}
