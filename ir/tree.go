package ir

import "fmt"

// Inspect traverses the subtree rooted at id in depth-first order, calling
// f for each node. If f returns false, the children of the node are skipped.
// Absent children are not visited.
func (p *Program) Inspect(id NodeID, f func(NodeID) bool) {
	if id == 0 || !f(id) {
		return
	}
	// Kids may be mutated by f on descendants; iterate over a snapshot.
	kids := append([]NodeID(nil), p.Node(id).Kids...)
	for _, kid := range kids {
		p.Inspect(kid, f)
	}
}

// PostOrder returns the nodes of the subtree rooted at id, children first.
func (p *Program) PostOrder(id NodeID) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(id NodeID) {
		if id == 0 {
			return
		}
		for _, kid := range p.Node(id).Kids {
			walk(kid)
		}
		out = append(out, id)
	}
	walk(id)
	return out
}

// Stmts returns the statements of a block.
func (p *Program) Stmts(block NodeID) []NodeID {
	n := p.Node(block)
	if n.Op != OpBlock {
		panic(fmt.Sprintf("ir: %s node is not a block", n.Op))
	}
	return n.Kids
}

func (p *Program) indexOf(id NodeID) (NodeID, int) {
	parent := p.Node(id).Parent
	if parent == 0 {
		panic(fmt.Sprintf("ir: node %d (%s) is detached", id, p.Node(id).Op))
	}
	for i, kid := range p.Node(parent).Kids {
		if kid == id {
			return parent, i
		}
	}
	panic(fmt.Sprintf("ir: node %d is not a child of its parent %d", id, parent))
}

// Insert inserts stmts into block at index i.
func (p *Program) Insert(block NodeID, i int, stmts ...NodeID) {
	b := p.Node(block)
	if b.Op != OpBlock {
		panic(fmt.Sprintf("ir: cannot insert into %s node", b.Op))
	}
	for _, s := range stmts {
		p.detach(s)
		p.Node(s).Parent = block
	}
	kids := make([]NodeID, 0, len(b.Kids)+len(stmts))
	kids = append(kids, b.Kids[:i]...)
	kids = append(kids, stmts...)
	kids = append(kids, b.Kids[i:]...)
	b.Kids = kids
}

// Prepend inserts stmts at the head of block.
func (p *Program) Prepend(block NodeID, stmts ...NodeID) { p.Insert(block, 0, stmts...) }

// Append inserts stmts at the tail of block.
func (p *Program) Append(block NodeID, stmts ...NodeID) {
	p.Insert(block, len(p.Node(block).Kids), stmts...)
}

// InsertBefore inserts stmts before the statement at, which must be an
// element of a block.
func (p *Program) InsertBefore(at NodeID, stmts ...NodeID) {
	parent, i := p.indexOf(at)
	p.Insert(parent, i, stmts...)
}

// InsertAfter inserts stmts after the statement at, which must be an
// element of a block.
func (p *Program) InsertAfter(at NodeID, stmts ...NodeID) {
	parent, i := p.indexOf(at)
	p.Insert(parent, i+1, stmts...)
}

// Remove detaches a node from its parent. Removing a child of a node that
// is not a block leaves an absent child in its place.
func (p *Program) Remove(id NodeID) { p.detach(id) }

func (p *Program) detach(id NodeID) {
	n := p.Node(id)
	if n.Parent == 0 {
		return
	}
	parent, i := p.indexOf(id)
	pn := p.Node(parent)
	if pn.Op == OpBlock {
		pn.Kids = append(pn.Kids[:i:i], pn.Kids[i+1:]...)
	} else {
		pn.Kids[i] = 0
	}
	n.Parent = 0
}

// Replace puts replacement in the place of old, which is detached.
func (p *Program) Replace(old, replacement NodeID) {
	parent, i := p.indexOf(old)
	p.detach(replacement)
	p.Node(parent).Kids[i] = replacement
	p.Node(replacement).Parent = parent
	p.Node(old).Parent = 0
}

// SetKid sets the i-th child of a node, detaching the previous one.
func (p *Program) SetKid(id NodeID, i int, kid NodeID) {
	n := p.Node(id)
	if old := n.Kids[i]; old != 0 {
		p.Node(old).Parent = 0
	}
	if kid != 0 {
		p.detach(kid)
		p.Node(kid).Parent = id
	}
	n.Kids[i] = kid
}

// Contains reports whether the subtree rooted at root contains id.
func (p *Program) Contains(root, id NodeID) bool {
	for id != 0 {
		if id == root {
			return true
		}
		id = p.Node(id).Parent
	}
	return false
}

// Substitute rewrites references to variables in the subtree rooted at id
// according to vars.
func (p *Program) Substitute(id NodeID, vars map[VarID]VarID) {
	p.Inspect(id, func(n NodeID) bool {
		node := p.Node(n)
		if v, ok := vars[node.Var]; ok && node.Var != 0 {
			node.Var = v
		}
		return true
	})
}

// Vars returns the variables read or written by the subtree rooted at id,
// in order of first appearance.
func (p *Program) Vars(id NodeID) []VarID {
	var vars []VarID
	seen := map[VarID]bool{}
	p.Inspect(id, func(n NodeID) bool {
		if v := p.Node(n).Var; v != 0 && !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
		return true
	})
	return vars
}

// SetStmts replaces the statements of block. Previous statements that are
// not part of stmts are detached.
func (p *Program) SetStmts(block NodeID, stmts []NodeID) {
	b := p.Node(block)
	if b.Op != OpBlock {
		panic(fmt.Sprintf("ir: %s node is not a block", b.Op))
	}
	for _, kid := range b.Kids {
		p.Node(kid).Parent = 0
	}
	b.Kids = nil
	for _, s := range stmts {
		p.detach(s)
		p.Node(s).Parent = block
	}
	b.Kids = append([]NodeID{}, stmts...)
}
