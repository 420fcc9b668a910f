package ir

import (
	"fmt"
	"go/token"
)

// VarKind classifies variables.
type VarKind uint8

const (
	Local VarKind = iota
	Param
	This
)

// Var is a variable of a function.
type Var struct {
	Name string
	Type *Type
	Kind VarKind
	Func FuncID

	// IndexVar is set on induction variables of counted loops.
	IndexVar bool
}

// Func is a function declaration.
type Func struct {
	Name   string
	Params []VarID
	Locals []VarID
	Result *Type
	Body   NodeID

	// RefReturn is set on generators yielding references to their values.
	RefReturn bool
	// Receiver is the type a method is declared on. The first parameter of
	// a method is its receiver.
	Receiver *Type
	// Return is the implicit slot holding the value of the last yield.
	Return VarID
	Inline bool

	// Iterator is set on generators once they are lowered, and on the
	// methods synthesized for them.
	Iterator *IteratorInfo

	Pos token.Pos
}

// Decl is a top-level declaration: either a type or a function.
type Decl struct {
	Type *Type
	Func FuncID
}

// Program is the arena holding all nodes, variables and functions of a
// compilation unit. The zero value is not usable; use NewProgram.
type Program struct {
	nodes []*Node
	vars  []*Var
	funcs []*Func

	// Decls lists declarations in source order.
	Decls []Decl

	Fset *token.FileSet
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		nodes: []*Node{nil},
		vars:  []*Var{nil},
		funcs: []*Func{nil},
	}
}

// Node returns the node with the given ID. The returned pointer remains
// valid for the lifetime of the program.
func (p *Program) Node(id NodeID) *Node {
	if id == 0 || int(id) >= len(p.nodes) {
		panic(fmt.Sprintf("ir: invalid node ID %d", id))
	}
	return p.nodes[id]
}

// Var returns the variable with the given ID.
func (p *Program) Var(id VarID) *Var {
	if id == 0 || int(id) >= len(p.vars) {
		panic(fmt.Sprintf("ir: invalid var ID %d", id))
	}
	return p.vars[id]
}

// Func returns the function with the given ID.
func (p *Program) Func(id FuncID) *Func {
	if id == 0 || int(id) >= len(p.funcs) {
		panic(fmt.Sprintf("ir: invalid func ID %d", id))
	}
	return p.funcs[id]
}

// Op returns the operation of a node, or OpInvalid for the zero ID.
func (p *Program) Op(id NodeID) Op {
	if id == 0 {
		return OpInvalid
	}
	return p.Node(id).Op
}

// Funcs returns the IDs of all functions in declaration order.
func (p *Program) Funcs() []FuncID {
	var ids []FuncID
	for _, d := range p.Decls {
		if d.Func != 0 {
			ids = append(ids, d.Func)
		}
	}
	return ids
}

// Lookup returns the function declared with the given name.
func (p *Program) Lookup(name string) (FuncID, bool) {
	for _, d := range p.Decls {
		if d.Func != 0 && p.Func(d.Func).Name == name {
			return d.Func, true
		}
	}
	return 0, false
}

// NewFunc declares a function at the end of the program. The function has
// an empty body.
func (p *Program) NewFunc(name string, result *Type) FuncID {
	id := p.addFunc(name, result)
	p.Decls = append(p.Decls, Decl{Func: id})
	return id
}

func (p *Program) addFunc(name string, result *Type) FuncID {
	id := FuncID(len(p.funcs))
	p.funcs = append(p.funcs, &Func{Name: name, Result: result})
	p.Func(id).Body = p.Block()
	return id
}

// NewMethod declares a method of class before the declaration of the
// function at. The receiver is the first parameter, named "this".
func (p *Program) NewMethod(class *Type, name string, result *Type, before FuncID) (FuncID, VarID) {
	id := p.addFunc(name, result)
	fn := p.Func(id)
	fn.Receiver = class
	this := p.newVar(id, "this", class, This)
	fn.Params = append(fn.Params, this)
	p.insertDecl(Decl{Func: id}, before)
	return id, this
}

// DeclareType inserts a type declaration before the declaration of the
// function at.
func (p *Program) DeclareType(t *Type, before FuncID) {
	p.insertDecl(Decl{Type: t}, before)
}

// MoveDecl moves the declaration of fn right before the declaration of the
// function at.
func (p *Program) MoveDecl(fn, before FuncID) {
	for i, d := range p.Decls {
		if d.Func == fn {
			p.Decls = append(p.Decls[:i], p.Decls[i+1:]...)
			break
		}
	}
	p.insertDecl(Decl{Func: fn}, before)
}

func (p *Program) insertDecl(d Decl, before FuncID) {
	for i, x := range p.Decls {
		if x.Func == before {
			p.Decls = append(p.Decls[:i], append([]Decl{d}, p.Decls[i:]...)...)
			return
		}
	}
	p.Decls = append(p.Decls, d)
}

// Param adds a parameter to a function.
func (p *Program) Param(fn FuncID, name string, t *Type) VarID {
	v := p.newVar(fn, name, t, Param)
	p.Func(fn).Params = append(p.Func(fn).Params, v)
	return v
}

// Local adds a local variable to a function.
func (p *Program) Local(fn FuncID, name string, t *Type) VarID {
	v := p.newVar(fn, name, t, Local)
	p.Func(fn).Locals = append(p.Func(fn).Locals, v)
	return v
}

// AdoptLocal moves a variable into the locals of fn.
func (p *Program) AdoptLocal(fn FuncID, v VarID) {
	p.Var(v).Func = fn
	p.Var(v).Kind = Local
	p.Func(fn).Locals = append(p.Func(fn).Locals, v)
}

func (p *Program) newVar(fn FuncID, name string, t *Type, kind VarKind) VarID {
	id := VarID(len(p.vars))
	p.vars = append(p.vars, &Var{Name: name, Type: t, Kind: kind, Func: fn})
	return id
}

// SetBody replaces the body of a function. The previous body is detached.
func (p *Program) SetBody(fn FuncID, body NodeID) {
	f := p.Func(fn)
	if old := f.Body; old != 0 {
		p.Node(old).Parent = 0
	}
	f.Body = body
	p.Node(body).Parent = 0
}

// FuncOf returns the function whose body contains the node, or zero.
func (p *Program) FuncOf(id NodeID) FuncID {
	root := id
	for {
		parent := p.Node(root).Parent
		if parent == 0 {
			break
		}
		root = parent
	}
	for fid, fn := range p.funcs {
		if fn != nil && fn.Body == root {
			return FuncID(fid)
		}
	}
	return 0
}

// Position returns the source position of a node, if any.
func (p *Program) Position(id NodeID) token.Position {
	if p.Fset == nil || id == 0 {
		return token.Position{}
	}
	return p.Fset.Position(p.Node(id).Pos)
}
