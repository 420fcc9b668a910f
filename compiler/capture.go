package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stealthrocket/cursor/ir"
)

// storage is the way a captured variable is kept in its field.
type storage uint8

const (
	// The field holds the value of the variable. It is stored after each
	// definition of the variable.
	storeScalar storage = iota
	// The field holds a record. It is stored once, before the method
	// returns.
	storeRecord
	// The field holds the value the reference points to, and the variable
	// is made to point to the field.
	storeReference
	// The field holds an array-like value.
	storeArray
)

func (s storage) String() string {
	switch s {
	case storeScalar:
		return "scalar"
	case storeRecord:
		return "record"
	case storeReference:
		return "reference"
	case storeArray:
		return "array"
	default:
		return fmt.Sprintf("storage(%d)", s)
	}
}

// capture is a variable of the generator kept in a field of the class.
type capture struct {
	v       ir.VarID
	field   int
	storage storage
	arg     bool
}

// allocateFields adds one field to the class for each argument of the
// generator, each of the locals, and the return slot.
func (l *lowering) allocateFields(locals []ir.VarID) {
	p := l.prog
	l.captured = map[ir.VarID]*capture{}

	vars := append([]ir.VarID{}, l.fn.Params...)
	vars = append(vars, locals...)
	returnSlot := false
	for _, v := range locals {
		returnSlot = returnSlot || v == l.fn.Return
	}
	if !returnSlot {
		vars = append(vars, l.fn.Return)
	}

	for i, v := range vars {
		x := p.Var(v)
		c := &capture{v: v, arg: x.Kind != ir.Local}
		t := x.Type
		switch t.Kind {
		case ir.Scalar, ir.Class:
			c.storage = storeScalar
		case ir.Record:
			c.storage = storeRecord
		case ir.ArrayLike:
			c.storage = storeArray
		case ir.Reference:
			if v == l.fn.Return || t.Elem.Kind == ir.ArrayLike {
				c.storage = storeScalar
			} else {
				c.storage = storeReference
				t = t.Elem
			}
		default:
			l.fatalf(0, "variable %s has type %s of unexpected kind", x.Name, t)
		}
		c.field = l.class.AddField(fmt.Sprintf("_%d_%s", i, x.Name), t)
		l.captures = append(l.captures, c)
		l.captured[v] = c
	}
	l.info.ValueField = l.captured[l.fn.Return].field

	if l.log.Enabled(context.Background(), slog.LevelDebug) {
		names := make([]string, len(l.captures))
		for i, c := range l.captures {
			names[i] = p.Var(c.v).Name
		}
		l.log.Debug("captured locals", "vars", names)
	}
}

// collectDefsUses records the definitions and uses of variables in the
// subtree rooted at root. Definitions are statements; stores through a
// reference count as definitions of the reference.
func (l *lowering) collectDefsUses(root ir.NodeID) {
	p := l.prog
	l.defs = map[ir.VarID][]ir.NodeID{}
	l.uses = map[ir.VarID][]ir.NodeID{}
	p.Inspect(root, func(id ir.NodeID) bool {
		n := p.Node(id)
		switch n.Op {
		case ir.OpAssign, ir.OpStore, ir.OpSetField, ir.OpSetIndex:
			l.defs[n.Var] = append(l.defs[n.Var], id)
		case ir.OpLoop:
			if n.Loop == ir.CFor {
				l.defs[n.Var] = append(l.defs[n.Var], id)
			}
		case ir.OpVar, ir.OpAddr, ir.OpDeref:
			l.uses[n.Var] = append(l.uses[n.Var], id)
		}
		return true
	})
}

// defSites returns the statements after which v must be spilled: its
// definitions, and the definitions of references taken to it.
func (l *lowering) defSites(v ir.VarID) []ir.NodeID {
	p := l.prog
	seen := map[ir.NodeID]bool{}
	var sites []ir.NodeID
	add := func(ids []ir.NodeID) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				sites = append(sites, id)
			}
		}
	}
	add(l.defs[v])
	for _, u := range l.uses[v] {
		if p.Op(u) != ir.OpAddr {
			continue
		}
		parent := p.Node(u).Parent
		if p.Op(parent) == ir.OpAssign {
			add(l.defs[p.Node(parent).Var])
		}
	}
	return sites
}

// site is a method receiving captured state.
type site struct {
	fn   ir.FuncID
	body ir.NodeID
	this ir.VarID
	// m maps the variables and statements of the generator to their copies
	// in the method. When moved is set, statements of the generator were
	// moved into the method rather than copied.
	m     *ir.Map
	moved bool
	// fill reports whether the method loads c at entry.
	fill func(c *capture) bool
	// ret is the final return statement of the method.
	ret ir.NodeID
}

func (s *site) node(id ir.NodeID) ir.NodeID {
	if s.moved {
		return id
	}
	return s.m.Nodes[id]
}

func fillAll(*capture) bool { return true }

// threadCaptures rewrites a method so that captured variables are loaded
// from their fields at entry and stored back to them after each definition.
// Records are stored back once, before the method returns.
func (l *lowering) threadCaptures(s *site) {
	p := l.prog
	var fills []ir.NodeID
	for _, c := range l.captures {
		local := s.m.Var(c.v)
		if local == c.v && c.arg {
			l.fatalf(0, "argument %s of %s is not replaced by a local", p.Var(c.v).Name, p.Func(s.fn).Name)
		}
		if s.fill(c) {
			fills = append(fills, l.fill(s, c, local))
		}

		switch c.storage {
		case storeRecord:
			p.InsertBefore(s.ret, l.spill(s, c, local))
		case storeScalar, storeArray, storeReference:
			for _, def := range l.defSites(c.v) {
				at := s.node(def)
				if at == 0 || !p.Contains(s.body, at) {
					continue
				}
				if p.Op(p.Node(at).Parent) != ir.OpBlock {
					l.fatalf(at, "definition of %s is not a statement", p.Var(c.v).Name)
				}
				p.InsertAfter(at, l.spill(s, c, local))
			}
		default:
			l.fatalf(0, "unexpected storage %s for %s", c.storage, p.Var(c.v).Name)
		}
	}
	p.Prepend(s.body, fills...)
}

// fill returns the statement loading c into local.
func (l *lowering) fill(s *site, c *capture, local ir.VarID) ir.NodeID {
	p := l.prog
	switch c.storage {
	case storeScalar, storeRecord, storeArray:
		return p.Assign(local, p.GetMember(p.Ref(s.this), c.field))
	case storeReference:
		return p.Assign(local, p.MemberAddr(p.Ref(s.this), c.field))
	}
	l.fatalf(0, "unexpected storage %s for %s", c.storage, p.Var(c.v).Name)
	return 0
}

// spill returns the statement storing local into the field of c.
func (l *lowering) spill(s *site, c *capture, local ir.VarID) ir.NodeID {
	p := l.prog
	switch c.storage {
	case storeScalar, storeRecord, storeArray:
		return p.SetMember(p.Ref(s.this), c.field, p.Ref(local))
	case storeReference:
		return p.SetMember(p.Ref(s.this), c.field, p.Deref(local))
	}
	l.fatalf(0, "unexpected storage %s for %s", c.storage, p.Var(c.v).Name)
	return 0
}

// replaceArgs declares a local in fn for each argument of the generator and
// records it in m.
func (l *lowering) replaceArgs(fn ir.FuncID, m *ir.Map) {
	p := l.prog
	for _, v := range l.fn.Params {
		x := p.Var(v)
		m.Vars[v] = p.Local(fn, x.Name, x.Type)
	}
}
