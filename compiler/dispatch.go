package compiler

import (
	"fmt"
	"go/token"

	"github.com/stealthrocket/cursor"
	"github.com/stealthrocket/cursor/ir"
)

const endLabel = "_end"

// lowerDispatch implements the protocol with a resume dispatch.
//
// The body of the generator is moved into getNextCursor and flattened into
// a single sequence of statements where control flow is expressed with
// labels and jumps. Each yield is then replaced by a jump to the end of the
// method, recording its position in the cursor, and followed by a label
// where execution resumes:
//
//	cursor = 2
//	goto _end
//	_jump_2:
//
// Returns set the cursor to zero and jump to the end of the method. A
// dispatch on the incoming cursor is inserted at the top of the method,
// testing positions in descending order.
//
// The other methods are defined in terms of getNextCursor.
func (l *lowering) lowerDispatch() {
	p := l.prog
	info := l.info
	next := info.GetNextCursor
	this, cursorVar := l.this(next), l.cursorParam(next)

	body := l.fn.Body
	p.SetBody(l.gen, p.Block())
	p.SetBody(next, body)
	for _, v := range l.fn.Locals {
		p.AdoptLocal(next, v)
	}
	l.fn.Locals = nil

	stmts := l.flatten(body)

	var out, cases []ir.NodeID
	id := int64(cursor.First)
	for _, s := range stmts {
		switch p.Op(s) {
		case ir.OpYield:
			label := fmt.Sprintf("_jump_%d", id)
			out = append(out,
				p.At(p.Assign(cursorVar, p.Cursor(id)), p.Node(s).Pos),
				p.Goto(endLabel),
				p.Label(label),
			)
			cases = append(cases, p.Case(id, label))
			id++
		case ir.OpReturn:
			out = append(out,
				p.At(p.Assign(cursorVar, p.Cursor(int64(cursor.Done))), p.Node(s).Pos),
				p.Goto(endLabel),
			)
		default:
			out = append(out, s)
		}
	}
	ret := p.Return(p.Ref(cursorVar))
	out = append(out, p.Label(endLabel), ret)

	for i, j := 0, len(cases)-1; i < j; i, j = i+1, j-1 {
		cases[i], cases[j] = cases[j], cases[i]
	}
	if len(cases) > 0 {
		out = append([]ir.NodeID{p.Switch(p.Ref(cursorVar), cases...)}, out...)
	}
	p.SetStmts(body, out)
	l.log.Debug("built resume dispatch", "positions", len(cases))

	l.collectDefsUses(body)
	m := ir.NewMap()
	l.replaceArgs(next, m)
	p.Substitute(body, m.Vars)
	l.threadCaptures(&site{
		fn:    next,
		body:  body,
		this:  this,
		m:     m,
		moved: true,
		fill:  fillAll,
		ret:   ret,
	})

	l.define(info.GetHeadCursor, p.Call(next, p.Ref(l.this(info.GetHeadCursor)), p.Cursor(int64(cursor.Start))))
	l.define(info.IsValidCursor, p.Binary(token.NEQ, p.Ref(l.cursorParam(info.IsValidCursor)), p.Cursor(int64(cursor.Done))))
	l.define(info.GetValue, p.GetMember(p.Ref(l.this(info.GetValue)), info.ValueField))

	l.define(info.GetZipCursor1, p.Call(info.GetHeadCursor, p.Ref(l.this(info.GetZipCursor1))))
	l.define(info.GetZipCursor2, p.Ref(l.cursorParam(info.GetZipCursor2)))
	l.define(info.GetZipCursor3, p.Call(next, p.Ref(l.this(info.GetZipCursor3)), p.Ref(l.cursorParam(info.GetZipCursor3))))
	l.define(info.GetZipCursor4, p.Ref(l.cursorParam(info.GetZipCursor4)))
	for _, m := range []ir.FuncID{info.GetZipCursor1, info.GetZipCursor2, info.GetZipCursor3, info.GetZipCursor4} {
		p.Func(m).Inline = true
	}
}

// define sets the body of a method to the return of x.
func (l *lowering) define(m ir.FuncID, x ir.NodeID) {
	l.prog.SetBody(m, l.prog.Block(l.prog.Return(x)))
}

// flatten returns the statements of block with structured control flow
// replaced by labels and jumps. All labels end up at the top level of the
// returned sequence.
func (l *lowering) flatten(block ir.NodeID) []ir.NodeID {
	var out []ir.NodeID
	l.flattenList(block, &out)
	return out
}

func (l *lowering) flattenList(block ir.NodeID, out *[]ir.NodeID) {
	if block == 0 {
		return
	}
	for _, s := range append([]ir.NodeID{}, l.prog.Stmts(block)...) {
		l.flattenStmt(s, out)
	}
}

func (l *lowering) flattenStmt(id ir.NodeID, out *[]ir.NodeID) {
	p := l.prog
	n := p.Node(id)
	emit := func(stmts ...ir.NodeID) { *out = append(*out, stmts...) }
	// branchIfNot jumps to label when cond is false.
	branchIfNot := func(cond ir.NodeID, label string) ir.NodeID {
		p.Remove(cond)
		return p.At(p.If(p.Not(cond), p.Block(p.Goto(label)), 0), n.Pos)
	}

	switch n.Op {
	case ir.OpBlock:
		l.flattenList(id, out)

	case ir.OpIf:
		cond, then, els := n.Kids[0], n.Kids[1], n.Kids[2]
		done := l.newLabel()
		if els == 0 {
			emit(branchIfNot(cond, done))
			l.flattenList(then, out)
		} else {
			elseLabel := l.newLabel()
			emit(branchIfNot(cond, elseLabel))
			l.flattenList(then, out)
			emit(p.Goto(done), p.Label(elseLabel))
			l.flattenList(els, out)
		}
		emit(p.Label(done))

	case ir.OpLoop:
		head, done := l.newLabel(), l.newLabel()
		body := n.LoopBody()
		switch n.Loop {
		case ir.DoWhile:
			emit(p.Label(head))
			l.flattenList(body, out)
			cond := n.LoopCond()
			p.Remove(cond)
			emit(p.If(cond, p.Block(p.Goto(head)), 0), p.Label(done))

		case ir.CFor:
			index := n.Var
			start, bound, step := n.Start(), n.Bound(), n.Step()
			for _, x := range []ir.NodeID{start, bound, step} {
				p.Remove(x)
			}
			emit(
				p.At(p.Assign(index, start), n.Pos),
				p.Label(head),
				p.If(p.Not(p.Binary(token.LEQ, p.Ref(index), bound)), p.Block(p.Goto(done)), 0),
			)
			l.flattenList(body, out)
			emit(
				p.Assign(index, p.Binary(token.ADD, p.Ref(index), step)),
				p.Goto(head),
				p.Label(done),
			)

		default:
			emit(p.Label(head), branchIfNot(n.LoopCond(), done))
			l.flattenList(body, out)
			emit(p.Goto(head), p.Label(done))
		}

	default:
		emit(id)
	}
}
