package compiler

import (
	"golang.org/x/tools/container/intsets"

	"github.com/stealthrocket/cursor/ir"
)

// basicBlock is a straight-line sequence of items of a function body.
type basicBlock struct {
	index int
	items []item
	succs []*basicBlock
	yield bool

	use, def intsets.Sparse
	in, out  intsets.Sparse
}

// item is the unit of evaluation within a basic block. Statements are
// items on their own; conditions and the three parts of counted loops are
// split into separate items since they are evaluated at distinct points.
type item struct {
	node ir.NodeID
	role role
}

type role uint8

const (
	roleStmt role = iota
	roleCond      // node is the condition expression of an if or loop
	roleInit      // node is a counted loop; index = start
	roleTest      // node is a counted loop; index <= bound
	roleStep      // node is a counted loop; index += step
)

// cfgBuilder partitions a function body into basic blocks. Blocks are split
// at branches and labels; loop headers and latches get blocks of their own.
type cfgBuilder struct {
	prog    *ir.Program
	blocks  []*basicBlock
	current *basicBlock
	exit    *basicBlock
	labels  map[string]*basicBlock
}

func buildBlocks(p *ir.Program, body ir.NodeID) []*basicBlock {
	b := &cfgBuilder{prog: p, labels: map[string]*basicBlock{}}
	b.current = b.newBlock()
	b.exit = &basicBlock{}
	b.stmtList(body)
	b.jump(b.exit)
	b.exit.index = len(b.blocks)
	b.blocks = append(b.blocks, b.exit)
	return b.blocks
}

func (b *cfgBuilder) newBlock() *basicBlock {
	block := &basicBlock{index: len(b.blocks)}
	b.blocks = append(b.blocks, block)
	return block
}

func (b *cfgBuilder) jump(to *basicBlock) {
	b.current.succs = append(b.current.succs, to)
}

func (b *cfgBuilder) add(id ir.NodeID, r role) {
	b.current.items = append(b.current.items, item{node: id, role: r})
}

func (b *cfgBuilder) label(name string) *basicBlock {
	block, ok := b.labels[name]
	if !ok {
		block = b.newBlock()
		b.labels[name] = block
	}
	return block
}

func (b *cfgBuilder) stmtList(block ir.NodeID) {
	if block == 0 {
		return
	}
	for _, s := range b.prog.Stmts(block) {
		b.stmt(s)
	}
}

func (b *cfgBuilder) stmt(id ir.NodeID) {
	n := b.prog.Node(id)
	switch n.Op {
	case ir.OpBlock:
		b.stmtList(id)

	case ir.OpYield:
		b.add(id, roleStmt)
		b.current.yield = true

	case ir.OpReturn:
		b.add(id, roleStmt)
		b.jump(b.exit)
		b.current = b.newBlock() // unreachable

	case ir.OpLabel:
		target := b.label(n.Name)
		b.jump(target)
		b.current = target

	case ir.OpGoto:
		b.jump(b.label(n.Name))
		b.current = b.newBlock() // unreachable

	case ir.OpIf:
		b.add(n.Kids[0], roleCond)
		then, done := b.newBlock(), b.newBlock()
		els := done
		if n.Kids[2] != 0 {
			els = b.newBlock()
		}
		b.jump(then)
		b.jump(els)
		b.current = then
		b.stmtList(n.Kids[1])
		b.jump(done)
		if n.Kids[2] != 0 {
			b.current = els
			b.stmtList(n.Kids[2])
			b.jump(done)
		}
		b.current = done

	case ir.OpLoop:
		b.loop(id, n)

	default:
		b.add(id, roleStmt)
	}
}

func (b *cfgBuilder) loop(id ir.NodeID, n *ir.Node) {
	body, done := b.newBlock(), b.newBlock()
	switch n.Loop {
	case ir.DoWhile:
		latch := b.newBlock()
		b.jump(body)
		b.current = body
		b.stmtList(n.LoopBody())
		b.jump(latch)
		b.current = latch
		b.add(n.LoopCond(), roleCond)
		b.jump(body)
		b.jump(done)

	case ir.CFor:
		b.add(id, roleInit)
		header, latch := b.newBlock(), b.newBlock()
		b.jump(header)
		b.current = header
		b.add(id, roleTest)
		b.jump(body)
		b.jump(done)
		b.current = body
		b.stmtList(n.LoopBody())
		b.jump(latch)
		b.current = latch
		b.add(id, roleStep)
		b.jump(header)

	default:
		header := b.newBlock()
		b.jump(header)
		b.current = header
		b.add(n.LoopCond(), roleCond)
		b.jump(body)
		b.jump(done)
		b.current = body
		b.stmtList(n.LoopBody())
		b.jump(header)
	}
	b.current = done
}

// liveness computes the variables live at the yield points of a function.
type liveness struct {
	prog  *ir.Program
	index map[ir.VarID]int
	vars  []ir.VarID
}

func newLiveness(p *ir.Program, fn *ir.Func) *liveness {
	lv := &liveness{prog: p, index: map[ir.VarID]int{}}
	for _, v := range fn.Params {
		lv.add(v)
	}
	for _, v := range fn.Locals {
		lv.add(v)
	}
	return lv
}

func (lv *liveness) add(v ir.VarID) {
	lv.index[v] = len(lv.vars)
	lv.vars = append(lv.vars, v)
}

// defUse returns the variables defined and used by an item. Writes through
// record fields and array elements only partially define their variable,
// so they count as uses.
func (lv *liveness) defUse(it item) (defs, uses []ir.VarID) {
	p := lv.prog
	n := p.Node(it.node)
	switch it.role {
	case roleCond:
		return nil, p.Vars(it.node)
	case roleInit:
		return []ir.VarID{n.Var}, p.Vars(n.Start())
	case roleTest:
		return nil, append([]ir.VarID{n.Var}, p.Vars(n.Bound())...)
	case roleStep:
		return []ir.VarID{n.Var}, append([]ir.VarID{n.Var}, p.Vars(n.Step())...)
	}
	for _, kid := range n.Kids {
		uses = append(uses, p.Vars(kid)...)
	}
	switch n.Op {
	case ir.OpAssign:
		defs = []ir.VarID{n.Var}
	case ir.OpStore, ir.OpSetField, ir.OpSetIndex:
		uses = append(uses, n.Var)
	}
	return defs, uses
}

func (lv *liveness) transfer(live *intsets.Sparse, it item) {
	defs, uses := lv.defUse(it)
	for _, v := range defs {
		if i, ok := lv.index[v]; ok {
			live.Remove(i)
		}
	}
	for _, v := range uses {
		if i, ok := lv.index[v]; ok {
			live.Insert(i)
		}
	}
}

func (lv *liveness) solve(blocks []*basicBlock) {
	for _, b := range blocks {
		for i := len(b.items) - 1; i >= 0; i-- {
			defs, uses := lv.defUse(b.items[i])
			for _, v := range defs {
				if x, ok := lv.index[v]; ok {
					b.def.Insert(x)
					b.use.Remove(x)
				}
			}
			for _, v := range uses {
				if x, ok := lv.index[v]; ok {
					b.use.Insert(x)
				}
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			for _, s := range b.succs {
				b.out.UnionWith(&s.in)
			}
			var in intsets.Sparse
			in.Difference(&b.out, &b.def)
			in.UnionWith(&b.use)
			if !in.Equals(&b.in) {
				b.in.Copy(&in)
				changed = true
			}
		}
	}
}

// atYields walks the blocks holding yields backward from their live-out
// sets and returns the variables live at any yield.
func (lv *liveness) atYields(blocks []*basicBlock) *intsets.Sparse {
	result := new(intsets.Sparse)
	for _, b := range blocks {
		if !b.yield {
			continue
		}
		var live intsets.Sparse
		live.Copy(&b.out)
		for i := len(b.items) - 1; i >= 0; i-- {
			it := b.items[i]
			if it.role == roleStmt && lv.prog.Op(it.node) == ir.OpYield {
				result.UnionWith(&live)
			}
			lv.transfer(&live, it)
		}
	}
	return result
}

// liveAtYields returns the locals of fn live at one of its yield points, in
// declaration order.
func liveAtYields(p *ir.Program, fn *ir.Func) []ir.VarID {
	lv := newLiveness(p, fn)
	blocks := buildBlocks(p, fn.Body)
	lv.solve(blocks)
	live := lv.atYields(blocks)

	var locals []ir.VarID
	for _, v := range fn.Locals {
		if live.Has(lv.index[v]) {
			locals = append(locals, v)
		}
	}
	return locals
}

// allLocals returns the locals captured when live variable analysis is
// disabled: every local of fn, references included.
func allLocals(fn *ir.Func) []ir.VarID {
	return append([]ir.VarID(nil), fn.Locals...)
}

// Analyze returns the locals of fn kept across its yield points: the locals
// live at one of them, or every capturable local when live analysis is
// disabled.
func Analyze(p *ir.Program, fn ir.FuncID, options ...Option) []ir.VarID {
	return analyze(p, p.Func(fn), newOptions(options))
}

func analyze(p *ir.Program, fn *ir.Func, o *options) []ir.VarID {
	if !o.liveAnalysis {
		return allLocals(fn)
	}
	return liveAtYields(p, fn)
}
