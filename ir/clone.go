package ir

// Map records the correspondence between original nodes and variables and
// their copies. Variables absent from Vars are shared by the original and
// the copy.
type Map struct {
	Nodes map[NodeID]NodeID
	Vars  map[VarID]VarID
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{
		Nodes: map[NodeID]NodeID{},
		Vars:  map[VarID]VarID{},
	}
}

// Node returns the copy of id, or zero if id was not copied.
func (m *Map) Node(id NodeID) NodeID {
	if m == nil {
		return id
	}
	return m.Nodes[id]
}

// Var returns the copy of v, or v itself.
func (m *Map) Var(v VarID) VarID {
	if m == nil {
		return v
	}
	if c, ok := m.Vars[v]; ok {
		return c
	}
	return v
}

// Clone copies the subtree rooted at id. Variables are substituted according
// to m.Vars, and each copied node is recorded in m.Nodes. A nil map copies
// variables as is. The copy is detached.
func (p *Program) Clone(id NodeID, m *Map) NodeID {
	if id == 0 {
		return 0
	}
	n := p.Node(id)
	c := *n
	c.Parent = 0
	c.Var = m.Var(n.Var)
	c.Kids = make([]NodeID, len(n.Kids))
	for i, kid := range n.Kids {
		c.Kids[i] = p.Clone(kid, m)
	}
	cid := p.add(&c)
	if m != nil {
		m.Nodes[id] = cid
	}
	return cid
}

// CloneAll clones each of ids in order.
func (p *Program) CloneAll(ids []NodeID, m *Map) []NodeID {
	out := make([]NodeID, len(ids))
	for i, id := range ids {
		out[i] = p.Clone(id, m)
	}
	return out
}
