// Package interp evaluates ir programs.
//
// The machine serves two purposes: it gives generators their reference
// meaning, by running them with yields collected into a sequence, and it
// executes the cursor objects produced by the compiler so that both can be
// compared.
package interp

import (
	"fmt"
	"go/token"
	"log/slog"

	"github.com/stealthrocket/cursor/ir"
)

// HostFunc is a function provided by the environment, called by name from
// ir programs.
type HostFunc func(args []Value) (Value, error)

// Stats are counters maintained by a machine.
type Stats struct {
	Calls int
	Steps int
	// Comparisons counts the case comparisons performed by dispatch switch
	// statements.
	Comparisons int
}

// Option configures a machine.
type Option func(*Machine)

// WithHost registers a host function.
func WithHost(name string, f HostFunc) Option {
	return func(m *Machine) { m.hosts[name] = f }
}

// WithStepLimit bounds the number of statements a machine executes. Zero
// means no limit.
func WithStepLimit(n int) Option {
	return func(m *Machine) { m.limit = n }
}

// WithLogger sets the logger receiving call traces at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.log = logger }
}

// Machine executes functions of a program.
type Machine struct {
	prog  *ir.Program
	hosts map[string]HostFunc
	limit int
	log   *slog.Logger

	Stats Stats
}

// New returns a machine executing functions of p.
func New(p *ir.Program, options ...Option) *Machine {
	m := &Machine{
		prog:  p,
		hosts: map[string]HostFunc{},
		limit: 10_000_000,
		log:   slog.Default(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Error is a fault raised while executing a program.
type Error struct {
	Func string
	Pos  token.Position
	Op   ir.Op
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Func, e.Msg)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Func, e.Msg, e.Op)
}

// Call invokes fn with args and returns its result. Yield statements are
// not allowed in fn.
func (m *Machine) Call(fn ir.FuncID, args ...Value) (v Value, err error) {
	defer recoverError(&err)
	v = m.call(fn, args, nil)
	return
}

// Yields runs the generator fn with args to completion and returns the
// values it yields.
func (m *Machine) Yields(fn ir.FuncID, args ...Value) (values []Value, err error) {
	defer recoverError(&err)
	values = []Value{}
	m.call(fn, args, &values)
	return
}

func recoverError(err *error) {
	if r := recover(); r != nil {
		e, ok := r.(*Error)
		if !ok {
			panic(r)
		}
		*err = e
	}
}

type frame struct {
	id     ir.FuncID
	fn     *ir.Func
	cells  map[ir.VarID]*Value
	yields *[]Value
}

type ctlKind uint8

const (
	ctlNext ctlKind = iota
	ctlJump
	ctlReturn
)

type control struct {
	kind  ctlKind
	label string
	value Value
}

func (m *Machine) fail(fr *frame, id ir.NodeID, format string, args ...any) {
	e := &Error{Msg: fmt.Sprintf(format, args...)}
	if fr != nil {
		e.Func = fr.fn.Name
	}
	if id != 0 {
		e.Pos = m.prog.Position(id)
		e.Op = m.prog.Node(id).Op
	}
	panic(e)
}

func (m *Machine) call(id ir.FuncID, args []Value, yields *[]Value) Value {
	fn := m.prog.Func(id)
	fr := &frame{id: id, fn: fn, cells: map[ir.VarID]*Value{}, yields: yields}
	if len(args) != len(fn.Params) {
		m.fail(fr, 0, "called with %d arguments, want %d", len(args), len(fn.Params))
	}
	for i, v := range fn.Params {
		arg := copyValue(args[i])
		fr.cells[v] = &arg
	}
	for _, v := range fn.Locals {
		z := zero(m.prog.Var(v).Type)
		fr.cells[v] = &z
	}
	m.Stats.Calls++
	m.log.Debug("call", "func", fn.Name, "args", len(args))

	ctl := m.execBlock(fr, fn.Body)
	switch ctl.kind {
	case ctlJump:
		m.fail(fr, 0, "label %s not found", ctl.label)
	case ctlReturn:
		return ctl.value
	}
	return nil
}

func (m *Machine) cell(fr *frame, id ir.NodeID, v ir.VarID) *Value {
	c, ok := fr.cells[v]
	if !ok {
		m.fail(fr, id, "variable %s is not declared in this function", m.prog.Var(v).Name)
	}
	return c
}

func (m *Machine) execBlock(fr *frame, block ir.NodeID) control {
	if block == 0 {
		return control{}
	}
	kids := m.prog.Node(block).Kids
	for i := 0; i < len(kids); {
		ctl := m.exec(fr, kids[i])
		switch ctl.kind {
		case ctlNext:
			i++
		case ctlJump:
			j := m.labelIndex(block, ctl.label)
			if j < 0 {
				return ctl
			}
			i = j
		default:
			return ctl
		}
	}
	return control{}
}

func (m *Machine) labelIndex(block ir.NodeID, label string) int {
	for i, kid := range m.prog.Node(block).Kids {
		if n := m.prog.Node(kid); n.Op == ir.OpLabel && n.Name == label {
			return i
		}
	}
	return -1
}

// step counts one unit of work. Statements and loop iterations are steps,
// so that loops with an empty body also reach the limit.
func (m *Machine) step(fr *frame, id ir.NodeID) {
	m.Stats.Steps++
	if m.limit > 0 && m.Stats.Steps > m.limit {
		m.fail(fr, id, "step limit exceeded")
	}
}

func (m *Machine) exec(fr *frame, id ir.NodeID) control {
	m.step(fr, id)
	p := m.prog
	n := p.Node(id)
	switch n.Op {
	case ir.OpBlock:
		return m.execBlock(fr, id)

	case ir.OpAssign:
		v := copyValue(m.eval(fr, n.Kids[0]))
		*m.cell(fr, id, n.Var) = v

	case ir.OpStore:
		r, ok := (*m.cell(fr, id, n.Var)).(Ref)
		if !ok || r.cell == nil {
			m.fail(fr, id, "store through nil reference %s", p.Var(n.Var).Name)
		}
		*r.cell = copyValue(m.eval(fr, n.Kids[0]))

	case ir.OpSetField:
		rec, ok := (*m.cell(fr, id, n.Var)).(*Record)
		if !ok {
			m.fail(fr, id, "%s is not a record", p.Var(n.Var).Name)
		}
		rec.Fields[n.Field] = copyValue(m.eval(fr, n.Kids[0]))

	case ir.OpSetIndex:
		arr, ok := (*m.cell(fr, id, n.Var)).(*Array)
		if !ok {
			m.fail(fr, id, "%s is not an array", p.Var(n.Var).Name)
		}
		i := m.index(fr, n.Kids[0], arr)
		arr.Elems[i] = copyValue(m.eval(fr, n.Kids[1]))

	case ir.OpSetMember:
		obj := m.object(fr, n.Kids[0])
		obj.Fields[n.Field] = copyValue(m.eval(fr, n.Kids[1]))

	case ir.OpExpr:
		m.eval(fr, n.Kids[0])

	case ir.OpIf:
		if m.truth(fr, n.Kids[0]) {
			return m.execBlock(fr, n.Kids[1])
		}
		return m.execBlock(fr, n.Kids[2])

	case ir.OpLoop:
		return m.execLoop(fr, id, n)

	case ir.OpYield:
		if fr.yields == nil {
			m.fail(fr, id, "yield outside of a generator")
		}
		*fr.yields = append(*fr.yields, copyValue(m.eval(fr, n.Kids[0])))

	case ir.OpReturn:
		var v Value
		if len(n.Kids) > 0 {
			v = m.eval(fr, n.Kids[0])
		}
		return control{kind: ctlReturn, value: v}

	case ir.OpLabel:

	case ir.OpGoto:
		return control{kind: ctlJump, label: n.Name}

	case ir.OpSwitch:
		tag := m.integer(fr, n.Kids[0])
		for _, c := range n.Kids[1:] {
			m.Stats.Comparisons++
			if cn := p.Node(c); cn.Int == tag {
				return control{kind: ctlJump, label: cn.Name}
			}
		}

	default:
		m.fail(fr, id, "unexpected statement %s", n.Op)
	}
	return control{}
}

func (m *Machine) execLoop(fr *frame, id ir.NodeID, n *ir.Node) control {
	body := n.LoopBody()
	switch n.Loop {
	case ir.For, ir.WhileDo:
		for m.truth(fr, n.LoopCond()) {
			m.step(fr, id)
			if ctl := m.execBlock(fr, body); ctl.kind != ctlNext {
				return ctl
			}
		}
	case ir.DoWhile:
		for {
			m.step(fr, id)
			if ctl := m.execBlock(fr, body); ctl.kind != ctlNext {
				return ctl
			}
			if !m.truth(fr, n.LoopCond()) {
				break
			}
		}
	case ir.CFor:
		index := m.cell(fr, id, n.Var)
		*index = m.integer(fr, n.Start())
		for (*index).(int64) <= m.integer(fr, n.Bound()) {
			m.step(fr, id)
			if ctl := m.execBlock(fr, body); ctl.kind != ctlNext {
				return ctl
			}
			i, ok := (*index).(int64)
			if !ok {
				m.fail(fr, id, "loop index is not an integer")
			}
			*index = i + m.integer(fr, n.Step())
		}
	default:
		m.fail(fr, id, "unexpected loop kind %s", n.Loop)
	}
	return control{}
}

func (m *Machine) truth(fr *frame, id ir.NodeID) bool {
	b, ok := m.eval(fr, id).(bool)
	if !ok {
		m.fail(fr, id, "condition is not a boolean")
	}
	return b
}

func (m *Machine) integer(fr *frame, id ir.NodeID) int64 {
	i, ok := m.eval(fr, id).(int64)
	if !ok {
		m.fail(fr, id, "value is not an integer")
	}
	return i
}

func (m *Machine) object(fr *frame, id ir.NodeID) *Object {
	obj, ok := m.eval(fr, id).(*Object)
	if !ok || obj == nil {
		m.fail(fr, id, "value is not an object")
	}
	return obj
}

func (m *Machine) index(fr *frame, id ir.NodeID, arr *Array) int {
	i := m.integer(fr, id)
	if i < 0 || i >= int64(len(arr.Elems)) {
		m.fail(fr, id, "index %d out of range [0:%d]", i, len(arr.Elems))
	}
	return int(i)
}

func (m *Machine) eval(fr *frame, id ir.NodeID) Value {
	p := m.prog
	n := p.Node(id)
	switch n.Op {
	case ir.OpConst:
		switch {
		case n.Type.Boolean:
			return n.Bool
		case n.Type.Kind == ir.Scalar:
			return n.Int
		default:
			return nil
		}

	case ir.OpZero:
		return zero(n.Type)

	case ir.OpVar:
		return copyValue(*m.cell(fr, id, n.Var))

	case ir.OpAddr:
		return Ref{cell: m.cell(fr, id, n.Var)}

	case ir.OpDeref:
		r, ok := (*m.cell(fr, id, n.Var)).(Ref)
		if !ok || r.cell == nil {
			m.fail(fr, id, "load through nil reference %s", p.Var(n.Var).Name)
		}
		return copyValue(*r.cell)

	case ir.OpBinary:
		return m.binary(fr, id, n)

	case ir.OpUnary:
		switch x := m.eval(fr, n.Kids[0]).(type) {
		case bool:
			if n.Tok == token.NOT {
				return !x
			}
		case int64:
			if n.Tok == token.SUB {
				return -x
			}
		}
		m.fail(fr, id, "invalid unary operator %s", n.Tok)

	case ir.OpField:
		rec, ok := m.eval(fr, n.Kids[0]).(*Record)
		if !ok {
			m.fail(fr, id, "value is not a record")
		}
		return copyValue(rec.Fields[n.Field])

	case ir.OpIndex:
		arr, ok := m.eval(fr, n.Kids[0]).(*Array)
		if !ok {
			m.fail(fr, id, "value is not an array")
		}
		return copyValue(arr.Elems[m.index(fr, n.Kids[1], arr)])

	case ir.OpGetMember:
		return copyValue(m.object(fr, n.Kids[0]).Fields[n.Field])

	case ir.OpMemberAddr:
		return Ref{cell: &m.object(fr, n.Kids[0]).Fields[n.Field]}

	case ir.OpCall:
		args := make([]Value, len(n.Kids))
		for i, a := range n.Kids {
			args[i] = m.eval(fr, a)
		}
		if n.Func != 0 {
			return m.call(n.Func, args, nil)
		}
		host, ok := m.hosts[n.Name]
		if !ok {
			m.fail(fr, id, "undefined function %s", n.Name)
		}
		v, err := host(args)
		if err != nil {
			m.fail(fr, id, "%s: %v", n.Name, err)
		}
		return v

	case ir.OpNew:
		return &Object{Class: n.Type, Fields: make([]Value, len(n.Type.Fields))}

	case ir.OpConvert:
		x := m.eval(fr, n.Kids[0])
		if n.Type.Boolean {
			switch x := x.(type) {
			case int64:
				return x != 0
			case bool:
				return x
			}
		} else if n.Type.Kind == ir.Scalar {
			switch x := x.(type) {
			case bool:
				if x {
					return int64(1)
				}
				return int64(0)
			case int64:
				return x
			}
		}
		m.fail(fr, id, "cannot convert %s to %s", Format(x), n.Type)

	default:
		m.fail(fr, id, "unexpected expression %s", n.Op)
	}
	return nil
}

func (m *Machine) binary(fr *frame, id ir.NodeID, n *ir.Node) Value {
	switch n.Tok {
	case token.LAND:
		return m.truth(fr, n.Kids[0]) && m.truth(fr, n.Kids[1])
	case token.LOR:
		return m.truth(fr, n.Kids[0]) || m.truth(fr, n.Kids[1])
	}
	x, y := m.eval(fr, n.Kids[0]), m.eval(fr, n.Kids[1])
	switch n.Tok {
	case token.EQL:
		return Equal(x, y)
	case token.NEQ:
		return !Equal(x, y)
	}
	a, ok1 := x.(int64)
	b, ok2 := y.(int64)
	if !ok1 || !ok2 {
		m.fail(fr, id, "invalid operands %s %s %s", Format(x), n.Tok, Format(y))
	}
	switch n.Tok {
	case token.ADD:
		return a + b
	case token.SUB:
		return a - b
	case token.MUL:
		return a * b
	case token.QUO, token.REM:
		if b == 0 {
			m.fail(fr, id, "integer divide by zero")
		}
		if n.Tok == token.QUO {
			return a / b
		}
		return a % b
	case token.LSS:
		return a < b
	case token.LEQ:
		return a <= b
	case token.GTR:
		return a > b
	case token.GEQ:
		return a >= b
	}
	m.fail(fr, id, "invalid binary operator %s", n.Tok)
	return nil
}
