package compiler

import (
	"go/token"

	"github.com/stealthrocket/cursor/ir"
)

// singleLoop holds the decomposition of a generator made of one loop with
// one yield:
//
//	I
//	loop {
//		II
//		yield
//		III
//	}
//	IV
//	return
type singleLoop struct {
	loop *ir.Node
	I    []ir.NodeID
	II   []ir.NodeID
	III  []ir.NodeID
	IV   []ir.NodeID
}

// lowerSingleLoop implements the protocol by recombining the four blocks of
// the generator into each method, without labels nor dispatch:
//
//	getHeadCursor:  I; if cond { II } else { IV }; return cond
//	getNextCursor:  III; if cond { II } else { IV }; return cond
//	getZipCursor1:  I; return cond
//	getZipCursor2:  if valid(cursor) { II }; return cursor
//	getZipCursor3:  III; return cond
//	getZipCursor4:  if !valid(cursor) { IV }; return cursor
//
// The cursor is the loop condition. Counted loops initialize their index
// in getHeadCursor and getZipCursor1, and advance it in getNextCursor and
// getZipCursor3. Their condition is computed into a variable of each method
// that tests it.
//
// Statements are moved into getNextCursor and copied into the other methods.
func (l *lowering) lowerSingleLoop(loop, yield ir.NodeID) {
	p := l.prog
	info := l.info
	body := l.fn.Body

	stmts := append([]ir.NodeID{}, p.Stmts(body)...)
	inner := append([]ir.NodeID{}, p.Stmts(p.Node(loop).LoopBody())...)
	sl := &singleLoop{loop: p.Node(loop)}
	for i, s := range stmts {
		if s == loop {
			sl.I, sl.IV = stmts[:i], stmts[i+1:len(stmts)-1]
		}
	}
	for i, s := range inner {
		if s == yield {
			sl.II, sl.III = inner[:i], inner[i+1:]
		}
	}
	l.collectDefsUses(body)
	l.log.Debug("split single loop iterator",
		"I", len(sl.I), "II", len(sl.II), "III", len(sl.III), "IV", len(sl.IV),
		"counted", sl.loop.Loop == ir.CFor)

	// Copies are made before statements are moved into getNextCursor.
	head := l.copySite(info.GetHeadCursor, false)
	zip1 := l.copySite(info.GetZipCursor1, false)
	zip2 := l.copySite(info.GetZipCursor2, true)
	zip3 := l.copySite(info.GetZipCursor3, true)
	zip4 := l.copySite(info.GetZipCursor4, true)

	{
		s := head
		cond := l.loopEnter(s, sl)
		l.build(s,
			clone(p, sl.I, s.m),
			cond.init,
			[]ir.NodeID{p.If(cond.expr(), p.Block(clone(p, sl.II, s.m)...), p.Block(clone(p, sl.IV, s.m)...))},
			cond.result())
	}
	{
		s := zip1
		cond := l.loopEnter(s, sl)
		l.build(s, clone(p, sl.I, s.m), cond.init, cond.result())
	}
	{
		s := zip2
		cond := l.loopValid(s, sl)
		l.build(s,
			cond.init,
			[]ir.NodeID{p.If(cond.expr(), p.Block(clone(p, sl.II, s.m)...), 0)},
			cond.result())
	}
	{
		s := zip3
		cond := l.loopAdvance(s, sl)
		l.build(s, clone(p, sl.III, s.m), cond.init, cond.result())
	}
	{
		s := zip4
		cond := l.loopValid(s, sl)
		l.build(s,
			cond.init,
			[]ir.NodeID{p.If(p.Not(cond.expr()), p.Block(clone(p, sl.IV, s.m)...), 0)},
			cond.result())
	}

	// getNextCursor receives the statements of the generator.
	next := &site{
		fn:    info.GetNextCursor,
		body:  p.Func(info.GetNextCursor).Body,
		this:  l.this(info.GetNextCursor),
		m:     ir.NewMap(),
		moved: true,
		fill:  fillAll,
	}
	l.replaceArgs(next.fn, next.m)
	for _, v := range l.fn.Locals {
		p.AdoptLocal(next.fn, v)
	}
	l.fn.Locals = nil
	{
		s := next
		cond := l.loopAdvance(s, sl)
		l.build(s,
			sl.III,
			cond.init,
			[]ir.NodeID{p.If(cond.expr(), p.Block(sl.II...), p.Block(sl.IV...))},
			cond.result())
		p.Substitute(s.body, s.m.Vars)
	}
	p.SetBody(l.gen, p.Block())

	for _, s := range []*site{head, next, zip1, zip2, zip3, zip4} {
		l.threadCaptures(s)
	}

	valid := info.IsValidCursor
	l.define(valid, p.Convert(ir.Bool, p.Ref(l.cursorParam(valid))))
	l.define(info.GetValue, p.GetMember(p.Ref(l.this(info.GetValue)), info.ValueField))

	for _, m := range info.Methods() {
		p.Func(m).Inline = true
	}
	l.fn.Inline = true
}

// copySite prepares a method receiving copies of the statements of the
// generator. Each variable of the generator gets a counterpart in the
// method. Methods that resume the loop load every captured variable;
// the others only load arguments and records.
func (l *lowering) copySite(fn ir.FuncID, resumes bool) *site {
	p := l.prog
	s := &site{
		fn:   fn,
		body: p.Func(fn).Body,
		this: l.this(fn),
		m:    ir.NewMap(),
		fill: func(c *capture) bool {
			return resumes || c.arg || c.storage == storeRecord
		},
	}
	l.replaceArgs(fn, s.m)
	for _, v := range l.fn.Locals {
		x := p.Var(v)
		s.m.Vars[v] = p.Local(fn, x.Name, x.Type)
	}
	return s
}

// build sets the body of a method to the concatenation of parts. The last
// part must end with the return statement of the method.
func (l *lowering) build(s *site, parts ...[]ir.NodeID) {
	var stmts []ir.NodeID
	for _, part := range parts {
		stmts = append(stmts, part...)
	}
	s.ret = stmts[len(stmts)-1]
	if l.prog.Op(s.ret) != ir.OpReturn {
		l.fatalf(s.ret, "method %s does not end with a return", l.prog.Func(s.fn).Name)
	}
	l.prog.SetStmts(s.body, stmts)
}

func clone(p *ir.Program, stmts []ir.NodeID, m *ir.Map) []ir.NodeID {
	return p.CloneAll(stmts, m)
}

// loopCond is the loop condition as seen from one method.
type loopCond struct {
	// init holds the statements computing the condition.
	init []ir.NodeID
	// expr returns a fresh expression reading the condition.
	expr func() ir.NodeID
	// result returns the return statement of the method.
	result func() []ir.NodeID
}

// loopEnter returns the condition tested when entering the loop. Counted
// loops initialize their index.
func (l *lowering) loopEnter(s *site, sl *singleLoop) *loopCond {
	p := l.prog
	if sl.loop.Loop != ir.CFor {
		return l.loopTest(s, sl, nil)
	}
	index := s.m.Var(sl.loop.Var)
	init := []ir.NodeID{p.Assign(index, p.Clone(sl.loop.Start(), s.m))}
	init = append(init, l.spillIndex(s, sl)...)
	return l.loopTest(s, sl, init)
}

// loopAdvance returns the condition tested after running the end of the
// loop body. Counted loops advance their index.
func (l *lowering) loopAdvance(s *site, sl *singleLoop) *loopCond {
	p := l.prog
	if sl.loop.Loop != ir.CFor {
		return l.loopTest(s, sl, nil)
	}
	index := s.m.Var(sl.loop.Var)
	init := []ir.NodeID{p.Assign(index, p.Binary(token.ADD, p.Ref(index), p.Clone(sl.loop.Step(), s.m)))}
	init = append(init, l.spillIndex(s, sl)...)
	return l.loopTest(s, sl, init)
}

func (l *lowering) loopTest(s *site, sl *singleLoop, init []ir.NodeID) *loopCond {
	p := l.prog
	cond := &loopCond{init: init}
	if sl.loop.Loop == ir.CFor {
		c := p.Local(s.fn, "_cond", ir.Bool)
		index := s.m.Var(sl.loop.Var)
		cond.init = append(cond.init, p.Assign(c, p.Binary(token.LEQ, p.Ref(index), p.Clone(sl.loop.Bound(), s.m))))
		cond.expr = func() ir.NodeID { return p.Ref(c) }
	} else {
		cond.expr = func() ir.NodeID { return p.Clone(sl.loop.LoopCond(), s.m) }
	}
	cond.result = func() []ir.NodeID {
		return []ir.NodeID{p.Return(p.Convert(ir.CursorID, cond.expr()))}
	}
	return cond
}

// loopValid returns the condition gating the zip methods that run the
// beginning of the loop body or the statements after the loop. Counted
// loops recompute it from their index; others read the incoming cursor.
func (l *lowering) loopValid(s *site, sl *singleLoop) *loopCond {
	p := l.prog
	if sl.loop.Loop == ir.CFor {
		return l.loopTest(s, sl, nil)
	}
	c := l.cursorParam(s.fn)
	return &loopCond{
		expr:   func() ir.NodeID { return p.Convert(ir.Bool, p.Ref(c)) },
		result: func() []ir.NodeID { return []ir.NodeID{p.Return(p.Ref(c))} },
	}
}

// spillIndex returns the statement storing the index of a counted loop into
// its field, if it is captured.
func (l *lowering) spillIndex(s *site, sl *singleLoop) []ir.NodeID {
	c, ok := l.captured[sl.loop.Var]
	if !ok {
		return nil
	}
	return []ir.NodeID{l.spill(s, c, s.m.Var(sl.loop.Var))}
}
