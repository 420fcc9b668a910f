package gosrc

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/stealthrocket/cursor/ir"
)

// Convert converts the generators declared in files. The files must have
// been type-checked with info recording Types, Defs, Uses and Selections.
func Convert(fset *token.FileSet, pkgPath string, files []*ast.File, info *types.Info) (units []*Unit, err error) {
	for _, file := range files {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Body == nil {
				continue
			}
			yields, err := findYields(fset, fd, info)
			if err != nil {
				return nil, err
			}
			if len(yields) == 0 {
				continue
			}
			u, err := convertFunc(fset, pkgPath, fd, info, yields)
			if err != nil {
				return nil, err
			}
			units = append(units, u)
		}
	}
	return units, nil
}

// isYield reports whether call is a call to cursor.Yield or to a function
// named yield.
func isYield(info *types.Info, call *ast.CallExpr) bool {
	fun := astutil.Unparen(call.Fun)
	if ix, ok := fun.(*ast.IndexExpr); ok {
		fun = ix.X // explicit instantiation
	}
	var id *ast.Ident
	switch f := fun.(type) {
	case *ast.Ident:
		id = f
	case *ast.SelectorExpr:
		id = f.Sel
	default:
		return false
	}
	fn, ok := info.Uses[id].(*types.Func)
	if !ok || len(call.Args) != 1 {
		return false
	}
	if fn.Pkg() != nil && fn.Pkg().Path() == cursorPackage {
		return fn.Name() == "Yield"
	}
	return fn.Name() == "yield"
}

// findYields returns the yield calls of a function. Yields in function
// literals are rejected.
func findYields(fset *token.FileSet, fd *ast.FuncDecl, info *types.Info) (yields []*ast.CallExpr, err error) {
	funcLits := 0
	astutil.Apply(fd.Body, func(cursor *astutil.Cursor) bool {
		switch n := cursor.Node().(type) {
		case *ast.FuncLit:
			funcLits++
		case *ast.CallExpr:
			if !isYield(info, n) {
				break
			}
			if funcLits > 0 {
				err = fmt.Errorf("%s: not implemented: yield in function literal", fset.Position(n.Pos()))
				return false
			}
			if _, ok := cursor.Parent().(*ast.ExprStmt); !ok {
				err = fmt.Errorf("%s: not implemented: yield used as a value", fset.Position(n.Pos()))
				return false
			}
			yields = append(yields, n)
		}
		return err == nil
	}, func(cursor *astutil.Cursor) bool {
		if _, ok := cursor.Node().(*ast.FuncLit); ok {
			funcLits--
		}
		return true
	})
	return yields, err
}

type convertError struct{ err error }

type loopLabels struct {
	breakTo, continueTo string
	breakUsed           *bool
	continueUsed        *bool
}

type converter struct {
	fset  *token.FileSet
	info  *types.Info
	prog  *ir.Program
	fn    ir.FuncID
	types typeCache

	vars   map[types.Object]ir.VarID
	names  map[string]int
	labels int

	// loops is the stack of enclosing loops; user maps labels of labeled
	// loops to their entry.
	loops    []*loopLabels
	user     map[string]*loopLabels
	gotoUsed map[string]bool
}

func convertFunc(fset *token.FileSet, pkgPath string, fd *ast.FuncDecl, info *types.Info, yields []*ast.CallExpr) (u *Unit, err error) {
	c := &converter{
		fset:     fset,
		info:     info,
		prog:     ir.NewProgram(),
		vars:     map[types.Object]ir.VarID{},
		names:    map[string]int{},
		user:     map[string]*loopLabels{},
		gotoUsed: map[string]bool{},
	}
	c.prog.Fset = fset
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(convertError)
			if !ok {
				panic(r)
			}
			err = ce.err
		}
	}()

	if fd.Type.TypeParams != nil {
		c.fail(fd.Pos(), "not implemented: generic generators")
	}
	if fd.Type.Results != nil && len(fd.Type.Results.List) > 0 {
		c.fail(fd.Pos(), "not implemented: generator with results")
	}

	elem := info.TypeOf(yields[0].Args[0])
	if b, ok := elem.(*types.Basic); ok && b.Info()&types.IsUntyped != 0 {
		elem = types.Default(elem)
	}
	result := c.irType(yields[0].Pos(), elem)
	for _, y := range yields[1:] {
		if c.irType(y.Pos(), info.TypeOf(y.Args[0])) != result && !isUntyped(info.TypeOf(y.Args[0])) {
			c.fail(y.Pos(), "yield of %s in generator of %s", info.TypeOf(y.Args[0]), elem)
		}
	}

	name := fd.Name.Name
	qualified := pkgPath + "." + name
	c.fn = c.prog.NewFunc(name, result)
	fn := c.prog.Func(c.fn)
	fn.Pos = fd.Pos()

	if fd.Recv != nil {
		for _, field := range fd.Recv.List {
			for _, id := range field.Names {
				obj := info.Defs[id]
				v := c.prog.Param(c.fn, c.uniqueName(id.Name), c.irType(id.Pos(), obj.Type()))
				c.prog.Var(v).Kind = ir.This
				c.vars[obj] = v
				fn.Receiver = c.prog.Var(v).Type
			}
		}
		if fn.Receiver != nil {
			qualified = pkgPath + "." + fn.Receiver.String() + "." + name
		}
	}
	for _, field := range fd.Type.Params.List {
		for _, id := range field.Names {
			obj := info.Defs[id]
			if obj == nil {
				continue
			}
			v := c.prog.Param(c.fn, c.uniqueName(id.Name), c.irType(id.Pos(), obj.Type()))
			c.vars[obj] = v
		}
	}

	c.scanGotos(fd.Body)
	body := c.prog.Block(c.stmts(fd.Body.List)...)
	c.prog.SetBody(c.fn, body)
	return &Unit{Name: qualified, Program: c.prog, Func: c.fn}, nil
}

func isUntyped(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return ok && b.Info()&types.IsUntyped != 0
}

func (c *converter) fail(pos token.Pos, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if pos.IsValid() {
		msg = c.fset.Position(pos).String() + ": " + msg
	}
	panic(convertError{err: fmt.Errorf("%s", msg)})
}

func (c *converter) uniqueName(name string) string {
	if name == "_" || name == "" {
		name = "_x"
	}
	n := c.names[name]
	c.names[name] = n + 1
	if n == 0 {
		return name
	}
	return name + strconv.Itoa(n)
}

// newLabels returns the labels ending an iteration of a loop and leaving it.
func (c *converter) newLabels() (continueTo, breakTo string) {
	n := strconv.Itoa(c.labels)
	c.labels++
	return "_continue" + n, "_break" + n
}

// local returns the variable for obj, declaring it on first use.
func (c *converter) local(pos token.Pos, obj types.Object) ir.VarID {
	if v, ok := c.vars[obj]; ok {
		return v
	}
	if _, ok := obj.(*types.Var); !ok {
		c.fail(pos, "not implemented: reference to %s", obj)
	}
	v := c.prog.Local(c.fn, c.uniqueName(obj.Name()), c.irType(pos, obj.Type()))
	c.vars[obj] = v
	return v
}

func (c *converter) temp(pos token.Pos, t types.Type) ir.VarID {
	return c.prog.Local(c.fn, c.uniqueName("_t"), c.irType(pos, t))
}

func (c *converter) scanGotos(body *ast.BlockStmt) {
	ast.Inspect(body, func(n ast.Node) bool {
		if b, ok := n.(*ast.BranchStmt); ok && b.Tok == token.GOTO {
			c.gotoUsed[b.Label.Name] = true
		}
		return true
	})
}

func (c *converter) stmts(list []ast.Stmt) []ir.NodeID {
	var out []ir.NodeID
	for _, s := range list {
		out = append(out, c.stmt(s)...)
	}
	return out
}

func (c *converter) at(id ir.NodeID, n ast.Node) ir.NodeID {
	return c.prog.At(id, n.Pos())
}

func (c *converter) stmt(stmt ast.Stmt) []ir.NodeID {
	p := c.prog
	switch s := stmt.(type) {
	case *ast.EmptyStmt:
		return nil

	case *ast.BlockStmt:
		return c.stmts(s.List)

	case *ast.ExprStmt:
		call, ok := astutil.Unparen(s.X).(*ast.CallExpr)
		if !ok {
			c.fail(s.Pos(), "not implemented: expression statement %T", s.X)
		}
		if isYield(c.info, call) {
			return []ir.NodeID{c.at(p.Yield(c.expr(call.Args[0])), s)}
		}
		return []ir.NodeID{c.at(p.ExprStmt(c.expr(call)), s)}

	case *ast.AssignStmt:
		return c.assignStmt(s)

	case *ast.IncDecStmt:
		op := token.ADD
		if s.Tok == token.DEC {
			op = token.SUB
		}
		return c.assign(s.X, p.Binary(op, c.expr(s.X), p.Int(1)))

	case *ast.DeclStmt:
		gen, ok := s.Decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			return nil // constants are folded; local types need no code
		}
		var out []ir.NodeID
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			if len(vs.Values) != 0 && len(vs.Values) != len(vs.Names) {
				c.fail(vs.Pos(), "not implemented: multi-value declaration")
			}
			for i, id := range vs.Names {
				if id.Name == "_" {
					continue
				}
				obj := c.info.Defs[id]
				v := c.local(id.Pos(), obj)
				if len(vs.Values) == 0 {
					out = append(out, c.at(p.Assign(v, p.Zero(p.Var(v).Type)), id))
				} else {
					out = append(out, c.define(v, vs.Values[i])...)
				}
			}
		}
		return out

	case *ast.IfStmt:
		var out []ir.NodeID
		if s.Init != nil {
			out = c.stmt(s.Init)
		}
		cond := c.expr(s.Cond)
		then := p.Block(c.stmts(s.Body.List)...)
		els := ir.NodeID(0)
		if s.Else != nil {
			els = p.Block(c.stmt(s.Else)...)
		}
		return append(out, c.at(p.If(cond, then, els), s))

	case *ast.ForStmt:
		return c.forStmt(s, "")

	case *ast.LabeledStmt:
		var out []ir.NodeID
		if c.gotoUsed[s.Label.Name] {
			out = append(out, c.at(p.Label(s.Label.Name), s))
		}
		if f, ok := s.Stmt.(*ast.ForStmt); ok {
			return append(out, c.forStmt(f, s.Label.Name)...)
		}
		return append(out, c.stmt(s.Stmt)...)

	case *ast.BranchStmt:
		return []ir.NodeID{c.at(c.branch(s), s)}

	case *ast.ReturnStmt:
		if len(s.Results) > 0 {
			c.fail(s.Pos(), "not implemented: return with values in a generator")
		}
		return []ir.NodeID{c.at(p.Return(0), s)}

	default:
		c.fail(stmt.Pos(), "not implemented: %T", stmt)
		return nil
	}
}

func (c *converter) branch(s *ast.BranchStmt) ir.NodeID {
	var loop *loopLabels
	switch {
	case s.Tok == token.GOTO:
		return c.prog.Goto(s.Label.Name)
	case s.Tok == token.FALLTHROUGH:
		c.fail(s.Pos(), "not implemented: fallthrough")
	case s.Label != nil:
		loop = c.user[s.Label.Name]
	case len(c.loops) > 0:
		loop = c.loops[len(c.loops)-1]
	}
	if loop == nil {
		c.fail(s.Pos(), "%s outside of a loop", s.Tok)
	}
	if s.Tok == token.BREAK {
		*loop.breakUsed = true
		return c.prog.Goto(loop.breakTo)
	}
	*loop.continueUsed = true
	return c.prog.Goto(loop.continueTo)
}

func (c *converter) assignStmt(s *ast.AssignStmt) []ir.NodeID {
	p := c.prog
	switch s.Tok {
	case token.ASSIGN, token.DEFINE:
	default:
		// x op= y
		op, ok := assignOps[s.Tok]
		if !ok || len(s.Lhs) != 1 {
			c.fail(s.Pos(), "not implemented: assignment %s", s.Tok)
		}
		return c.assign(s.Lhs[0], p.Binary(op, c.expr(s.Lhs[0]), c.expr(s.Rhs[0])))
	}
	if len(s.Lhs) != len(s.Rhs) {
		c.fail(s.Pos(), "not implemented: multi-value assignment")
	}
	if len(s.Lhs) == 1 {
		if lit, ok := astutil.Unparen(s.Rhs[0]).(*ast.CompositeLit); ok {
			if id, ok := s.Lhs[0].(*ast.Ident); ok {
				return c.define(c.lhsVar(id), lit)
			}
		}
		if id, ok := s.Lhs[0].(*ast.Ident); ok && id.Name == "_" {
			return c.assign(id, c.expr(s.Rhs[0]))
		}
		return c.assign(s.Lhs[0], c.typedExpr(s.Rhs[0], c.irType(s.Pos(), c.info.TypeOf(s.Lhs[0]))))
	}

	// Parallel assignments go through temporaries.
	var out []ir.NodeID
	temps := make([]ir.VarID, len(s.Rhs))
	for i, rhs := range s.Rhs {
		temps[i] = c.temp(rhs.Pos(), c.info.TypeOf(s.Lhs[i]))
		out = append(out, c.at(p.Assign(temps[i], c.expr(rhs)), rhs))
	}
	for i, lhs := range s.Lhs {
		out = append(out, c.assign(lhs, p.Ref(temps[i]))...)
	}
	return out
}

var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
}

func (c *converter) lhsVar(id *ast.Ident) ir.VarID {
	obj := c.info.Defs[id]
	if obj == nil {
		obj = c.info.Uses[id]
	}
	if obj == nil {
		c.fail(id.Pos(), "unresolved identifier %s", id.Name)
	}
	return c.local(id.Pos(), obj)
}

// define returns the statements initializing v with the value of x.
// Composite literals are built field by field.
func (c *converter) define(v ir.VarID, x ast.Expr) []ir.NodeID {
	p := c.prog
	t := p.Var(v).Type
	lit, ok := astutil.Unparen(x).(*ast.CompositeLit)
	if !ok {
		return []ir.NodeID{c.at(p.Assign(v, c.typedExpr(x, t)), x)}
	}
	out := []ir.NodeID{c.at(p.Assign(v, p.Zero(t)), x)}
	for i, elt := range lit.Elts {
		switch t.Kind {
		case ir.Record:
			field, value := i, elt
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				field = t.FieldIndex(kv.Key.(*ast.Ident).Name)
				value = kv.Value
			}
			out = append(out, c.at(p.SetField(v, field, c.expr(value)), elt))
		case ir.ArrayLike:
			index, value := p.Int(int64(i)), elt
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				index, value = c.expr(kv.Key), kv.Value
			}
			out = append(out, c.at(p.SetIndex(v, index, c.expr(value)), elt))
		default:
			c.fail(lit.Pos(), "not implemented: composite literal of %s", t)
		}
	}
	return out
}

// assign returns the statements storing value into lhs.
func (c *converter) assign(lhs ast.Expr, value ir.NodeID) []ir.NodeID {
	p := c.prog
	var s ir.NodeID
	switch x := astutil.Unparen(lhs).(type) {
	case *ast.Ident:
		if x.Name == "_" {
			if p.Op(value) != ir.OpCall {
				return nil
			}
			s = p.ExprStmt(value)
		} else {
			s = p.Assign(c.lhsVar(x), value)
		}
	case *ast.StarExpr:
		s = p.Store(c.identVar(x.X), value)
	case *ast.SelectorExpr:
		sel := c.info.Selections[x]
		if sel == nil || sel.Kind() != types.FieldVal || len(sel.Index()) != 1 || sel.Indirect() {
			c.fail(x.Pos(), "not implemented: assignment to %s", types.ExprString(x))
		}
		s = p.SetField(c.identVar(x.X), sel.Index()[0], value)
	case *ast.IndexExpr:
		s = p.SetIndex(c.identVar(x.X), c.expr(x.Index), value)
	default:
		c.fail(lhs.Pos(), "not implemented: assignment to %T", lhs)
	}
	return []ir.NodeID{c.at(s, lhs)}
}

// identVar returns the variable named by x, which must be an identifier.
func (c *converter) identVar(x ast.Expr) ir.VarID {
	id, ok := astutil.Unparen(x).(*ast.Ident)
	if !ok {
		c.fail(x.Pos(), "not implemented: indirect assignment through %s", types.ExprString(x))
	}
	obj := c.info.Uses[id]
	if obj == nil {
		c.fail(id.Pos(), "unresolved identifier %s", id.Name)
	}
	return c.local(id.Pos(), obj)
}

// forStmt converts a for statement. Loops of the form
//
//	for i := a; i <= b; i++ { ... }
//
// where the body does not assign i become counted loops. Other loops keep
// their condition; init statements are hoisted before the loop and post
// statements appended to its body.
func (c *converter) forStmt(s *ast.ForStmt, label string) []ir.NodeID {
	p := c.prog
	continueTo, breakTo := c.newLabels()
	loop := &loopLabels{
		breakTo:      breakTo,
		continueTo:   continueTo,
		breakUsed:    new(bool),
		continueUsed: new(bool),
	}
	if label != "" {
		c.user[label] = loop
	}
	c.loops = append(c.loops, loop)
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	var out []ir.NodeID
	if index, start, bound, step, ok := c.countedLoop(s); ok {
		body := c.stmts(s.Body.List)
		if *loop.continueUsed {
			body = append(body, p.Label(loop.continueTo))
		}
		out = append(out, c.at(p.CFor(index, start, bound, step, p.Block(body...)), s))
	} else {
		if s.Init != nil {
			out = append(out, c.stmt(s.Init)...)
		}
		kind := ir.For
		if s.Init == nil && s.Post == nil {
			kind = ir.WhileDo
		}
		cond := p.Bool(true)
		if s.Cond != nil {
			cond = c.expr(s.Cond)
		}
		body := c.stmts(s.Body.List)
		if *loop.continueUsed {
			body = append(body, p.Label(loop.continueTo))
		}
		if s.Post != nil {
			body = append(body, c.stmt(s.Post)...)
		}
		out = append(out, c.at(p.Loop(kind, cond, p.Block(body...)), s))
	}
	if *loop.breakUsed {
		out = append(out, p.Label(loop.breakTo))
	}
	return out
}

func (c *converter) countedLoop(s *ast.ForStmt) (index ir.VarID, start, bound, step ir.NodeID, ok bool) {
	p := c.prog
	init, _ := s.Init.(*ast.AssignStmt)
	if init == nil || len(init.Lhs) != 1 || len(init.Rhs) != 1 {
		return
	}
	id, _ := init.Lhs[0].(*ast.Ident)
	if id == nil {
		return
	}
	obj := c.info.Defs[id]
	if obj == nil {
		obj = c.info.Uses[id]
	}
	if obj == nil || !isInteger(obj.Type()) {
		return
	}

	cond, _ := astutil.Unparen(s.Cond).(*ast.BinaryExpr)
	if cond == nil || !c.isObj(cond.X, obj) || (cond.Op != token.LEQ && cond.Op != token.LSS) {
		return
	}
	var stepExpr ast.Expr
	switch post := s.Post.(type) {
	case *ast.IncDecStmt:
		if post.Tok != token.INC || !c.isObj(post.X, obj) {
			return
		}
	case *ast.AssignStmt:
		if post.Tok != token.ADD_ASSIGN || len(post.Lhs) != 1 || !c.isObj(post.Lhs[0], obj) {
			return
		}
		stepExpr = post.Rhs[0]
		if tv := c.info.Types[stepExpr]; tv.Value == nil || constant.Sign(tv.Value) <= 0 {
			return
		}
	default:
		return
	}
	if c.assigns(s.Body, obj) || c.assigns(cond.Y, obj) {
		return
	}

	index = c.local(id.Pos(), obj)
	start = c.expr(init.Rhs[0])
	bound = c.expr(cond.Y)
	if cond.Op == token.LSS {
		bound = p.Binary(token.SUB, bound, p.Int(1))
	}
	if stepExpr != nil {
		step = c.expr(stepExpr)
	} else {
		step = p.Int(1)
	}
	return index, start, bound, step, true
}

func isInteger(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}

func (c *converter) isObj(x ast.Expr, obj types.Object) bool {
	id, ok := astutil.Unparen(x).(*ast.Ident)
	return ok && c.info.Uses[id] == obj
}

// assigns reports whether n assigns obj or takes its address.
func (c *converter) assigns(n ast.Node, obj types.Object) (found bool) {
	ast.Inspect(n, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.AssignStmt:
			for _, lhs := range x.Lhs {
				found = found || c.isObj(lhs, obj)
			}
		case *ast.IncDecStmt:
			found = found || c.isObj(x.X, obj)
		case *ast.UnaryExpr:
			found = found || (x.Op == token.AND && c.isObj(x.X, obj))
		}
		return !found
	})
	return
}

var binaryOps = map[token.Token]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.QUO: true, token.REM: true,
	token.LSS: true, token.LEQ: true, token.GTR: true, token.GEQ: true,
	token.EQL: true, token.NEQ: true, token.LAND: true, token.LOR: true,
}

func (c *converter) expr(e ast.Expr) ir.NodeID {
	p := c.prog
	e = astutil.Unparen(e)
	if tv, ok := c.info.Types[e]; ok && tv.Value != nil {
		switch tv.Value.Kind() {
		case constant.Bool:
			return c.at(p.Bool(constant.BoolVal(tv.Value)), e)
		case constant.Int:
			v, exact := constant.Int64Val(tv.Value)
			if !exact {
				c.fail(e.Pos(), "constant %s overflows int64", tv.Value)
			}
			return c.at(p.Int(v), e)
		default:
			c.fail(e.Pos(), "not implemented: constant %s", tv.Value)
		}
	}

	switch x := e.(type) {
	case *ast.Ident:
		obj := c.info.Uses[x]
		if obj == nil {
			c.fail(x.Pos(), "unresolved identifier %s", x.Name)
		}
		if _, ok := obj.(*types.Nil); ok {
			t := c.info.TypeOf(x)
			if isUntyped(t) {
				c.fail(x.Pos(), "not implemented: nil outside of an assignment")
			}
			return c.at(p.Nil(c.irType(x.Pos(), t)), e)
		}
		return c.at(p.Ref(c.local(x.Pos(), obj)), e)

	case *ast.BinaryExpr:
		if !binaryOps[x.Op] {
			c.fail(x.Pos(), "not implemented: operator %s", x.Op)
		}
		return c.at(p.Binary(x.Op, c.expr(x.X), c.expr(x.Y)), e)

	case *ast.UnaryExpr:
		switch x.Op {
		case token.NOT, token.SUB:
			return c.at(p.Unary(x.Op, c.expr(x.X)), e)
		case token.ADD:
			return c.expr(x.X)
		case token.AND:
			return c.at(p.Addr(c.identVar(x.X)), e)
		}
		c.fail(x.Pos(), "not implemented: operator %s", x.Op)

	case *ast.StarExpr:
		return c.at(p.Deref(c.identVar(x.X)), e)

	case *ast.SelectorExpr:
		sel := c.info.Selections[x]
		if sel == nil || sel.Kind() != types.FieldVal || len(sel.Index()) != 1 {
			c.fail(x.Pos(), "not implemented: selector %s", types.ExprString(x))
		}
		recv := ir.NodeID(0)
		if sel.Indirect() {
			recv = p.Deref(c.identVar(x.X))
		} else {
			recv = c.expr(x.X)
		}
		return c.at(p.FieldOf(recv, sel.Index()[0]), e)

	case *ast.IndexExpr:
		if _, ok := c.info.TypeOf(x.X).Underlying().(*types.Array); !ok {
			c.fail(x.Pos(), "not implemented: index of %s", c.info.TypeOf(x.X))
		}
		return c.at(p.Index(c.expr(x.X), c.expr(x.Index)), e)

	case *ast.CallExpr:
		return c.call(x)

	default:
		c.fail(e.Pos(), "not implemented: expression %T", e)
	}
	return 0
}

// typedExpr converts x, giving untyped nils the type t.
func (c *converter) typedExpr(x ast.Expr, t *ir.Type) ir.NodeID {
	if id, ok := astutil.Unparen(x).(*ast.Ident); ok {
		if _, ok := c.info.Uses[id].(*types.Nil); ok {
			return c.at(c.prog.Nil(t), x)
		}
	}
	return c.expr(x)
}

func (c *converter) call(x *ast.CallExpr) ir.NodeID {
	p := c.prog
	if tv, ok := c.info.Types[x.Fun]; ok && tv.IsType() {
		// Conversions between integer types are no-ops.
		if len(x.Args) != 1 || !isInteger(tv.Type) || !isInteger(c.info.TypeOf(x.Args[0])) {
			c.fail(x.Pos(), "not implemented: conversion to %s", tv.Type)
		}
		return c.expr(x.Args[0])
	}
	var name string
	switch f := astutil.Unparen(x.Fun).(type) {
	case *ast.Ident:
		if _, ok := c.info.Uses[f].(*types.Builtin); ok {
			c.fail(x.Pos(), "not implemented: builtin %s", f.Name)
		}
		name = f.Name
	case *ast.SelectorExpr:
		if _, ok := c.info.Selections[f]; ok {
			c.fail(x.Pos(), "not implemented: method calls")
		}
		name = types.ExprString(f)
	default:
		c.fail(x.Pos(), "not implemented: call of %s", types.ExprString(x.Fun))
	}
	args := make([]ir.NodeID, len(x.Args))
	for i, a := range x.Args {
		args[i] = c.expr(a)
	}
	return c.at(p.CallHost(name, args...), x)
}
