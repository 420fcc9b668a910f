package ir

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes a Go-like rendition of the program to w.
func Fprint(w io.Writer, p *Program) error {
	pr := printer{prog: p}
	for i, d := range p.Decls {
		if i > 0 {
			pr.buf.WriteByte('\n')
		}
		if d.Type != nil {
			pr.typeDecl(d.Type)
		} else {
			pr.funcDecl(d.Func)
		}
	}
	_, err := w.Write(pr.buf.Bytes())
	return err
}

// FuncString returns the rendition of a single function.
func (p *Program) FuncString(fn FuncID) string {
	pr := printer{prog: p}
	pr.funcDecl(fn)
	return pr.buf.String()
}

// NodeString returns the rendition of a single node.
func (p *Program) NodeString(id NodeID) string {
	pr := printer{prog: p}
	if p.Op(id).IsStmt() {
		pr.stmt(id)
	} else {
		pr.buf.WriteString(pr.expr(id))
	}
	return strings.TrimRight(pr.buf.String(), "\n")
}

type printer struct {
	prog   *Program
	buf    bytes.Buffer
	indent int
}

func (pr *printer) line(format string, args ...any) {
	pr.buf.WriteString(strings.Repeat("\t", pr.indent))
	fmt.Fprintf(&pr.buf, format, args...)
	pr.buf.WriteByte('\n')
}

func (pr *printer) typeDecl(t *Type) {
	var tags []string
	if t.Flags&IteratorClass != 0 {
		tags = append(tags, "iterator")
	}
	if t.Flags&RefIteratorClass != 0 {
		tags = append(tags, "ref")
	}
	if t.Flags&NoObject != 0 {
		tags = append(tags, "noobject")
	}
	kind := "struct"
	if t.Kind == Class {
		kind = "class"
	}
	if len(tags) > 0 {
		kind += " /* " + strings.Join(tags, ", ") + " */"
	}
	pr.line("type %s %s {", t.Name, kind)
	pr.indent++
	for _, f := range t.Fields {
		pr.line("%s %s", f.Name, f.Type)
	}
	pr.indent--
	pr.line("}")
}

func (pr *printer) funcDecl(id FuncID) {
	fn := pr.prog.Func(id)
	var params []string
	for _, v := range fn.Params {
		if pr.prog.Var(v).Kind == This {
			continue
		}
		params = append(params, pr.prog.Var(v).Name+" "+pr.prog.Var(v).Type.String())
	}
	recv := ""
	if fn.Receiver != nil && len(fn.Params) > 0 && pr.prog.Var(fn.Params[0]).Kind == This {
		recv = "(this " + fn.Receiver.String() + ") "
	}
	result := ""
	if fn.Result != nil {
		result = " " + fn.Result.String()
		if fn.RefReturn {
			result = " &" + fn.Result.String()
		}
	}
	pragma := ""
	if fn.Inline {
		pragma = "//inline\n"
	}
	pr.buf.WriteString(pragma)
	pr.line("func %s%s(%s)%s {", recv, fn.Name, strings.Join(params, ", "), result)
	pr.indent++
	for _, v := range fn.Locals {
		pr.line("var %s %s", pr.prog.Var(v).Name, pr.prog.Var(v).Type)
	}
	for _, s := range pr.prog.Node(fn.Body).Kids {
		pr.stmt(s)
	}
	pr.indent--
	pr.line("}")
}

func (pr *printer) block(id NodeID) {
	pr.indent++
	if id != 0 {
		for _, s := range pr.prog.Node(id).Kids {
			pr.stmt(s)
		}
	}
	pr.indent--
}

func (pr *printer) stmt(id NodeID) {
	p := pr.prog
	n := p.Node(id)
	switch n.Op {
	case OpBlock:
		pr.line("{")
		pr.block(id)
		pr.line("}")
	case OpAssign:
		pr.line("%s = %s", pr.varName(n.Var), pr.expr(n.Kids[0]))
	case OpStore:
		pr.line("*%s = %s", pr.varName(n.Var), pr.expr(n.Kids[0]))
	case OpSetField:
		pr.line("%s.%s = %s", pr.varName(n.Var), fieldName(p.Var(n.Var).Type, n.Field), pr.expr(n.Kids[0]))
	case OpSetIndex:
		pr.line("%s[%s] = %s", pr.varName(n.Var), pr.expr(n.Kids[0]), pr.expr(n.Kids[1]))
	case OpSetMember:
		pr.line("%s.%s = %s", pr.expr(n.Kids[0]), fieldName(pr.typeOf(n.Kids[0]), n.Field), pr.expr(n.Kids[1]))
	case OpExpr:
		pr.line("%s", pr.expr(n.Kids[0]))
	case OpIf:
		pr.line("if %s {", pr.expr(n.Kids[0]))
		pr.block(n.Kids[1])
		if n.Kids[2] != 0 {
			pr.line("} else {")
			pr.block(n.Kids[2])
		}
		pr.line("}")
	case OpLoop:
		switch n.Loop {
		case CFor:
			i := pr.varName(n.Var)
			pr.line("for %s = %s; %s <= %s; %s += %s {", i, pr.expr(n.Start()), i, pr.expr(n.Bound()), i, pr.expr(n.Step()))
			pr.block(n.LoopBody())
			pr.line("}")
		case DoWhile:
			pr.line("do {")
			pr.block(n.LoopBody())
			pr.line("} while %s", pr.expr(n.LoopCond()))
		default:
			pr.line("%s %s {", n.Loop, pr.expr(n.LoopCond()))
			pr.block(n.LoopBody())
			pr.line("}")
		}
	case OpYield:
		pr.line("yield %s", pr.expr(n.Kids[0]))
	case OpReturn:
		if len(n.Kids) == 0 {
			pr.line("return")
		} else {
			pr.line("return %s", pr.expr(n.Kids[0]))
		}
	case OpLabel:
		pr.indent--
		pr.line("%s:", n.Name)
		pr.indent++
	case OpGoto:
		pr.line("goto %s", n.Name)
	case OpSwitch:
		pr.line("switch %s {", pr.expr(n.Kids[0]))
		for _, c := range n.Kids[1:] {
			cn := p.Node(c)
			pr.line("case %d:", cn.Int)
			pr.indent++
			pr.line("goto %s", cn.Name)
			pr.indent--
		}
		pr.line("}")
	default:
		pr.line("<%s>", n.Op)
	}
}

func (pr *printer) varName(v VarID) string {
	if v == 0 {
		return "<nil>"
	}
	return pr.prog.Var(v).Name
}

func (pr *printer) expr(id NodeID) string {
	if id == 0 {
		return "<nil>"
	}
	p := pr.prog
	n := p.Node(id)
	switch n.Op {
	case OpConst:
		switch {
		case n.Type.Boolean:
			return strconv.FormatBool(n.Bool)
		case n.Type.Kind == Scalar:
			return strconv.FormatInt(n.Int, 10)
		default:
			return "nil"
		}
	case OpZero:
		return n.Type.String() + "{}"
	case OpVar:
		return pr.varName(n.Var)
	case OpAddr:
		return "&" + pr.varName(n.Var)
	case OpDeref:
		return "*" + pr.varName(n.Var)
	case OpBinary:
		return pr.operand(n.Kids[0]) + " " + n.Tok.String() + " " + pr.operand(n.Kids[1])
	case OpUnary:
		return n.Tok.String() + pr.operand(n.Kids[0])
	case OpField:
		return pr.operand(n.Kids[0]) + "." + fieldName(pr.typeOf(n.Kids[0]), n.Field)
	case OpIndex:
		return pr.operand(n.Kids[0]) + "[" + pr.expr(n.Kids[1]) + "]"
	case OpGetMember:
		return pr.operand(n.Kids[0]) + "." + fieldName(pr.typeOf(n.Kids[0]), n.Field)
	case OpMemberAddr:
		return "&" + pr.operand(n.Kids[0]) + "." + fieldName(pr.typeOf(n.Kids[0]), n.Field)
	case OpCall:
		name := n.Name
		if n.Func != 0 {
			name = p.Func(n.Func).Name
		}
		args := make([]string, len(n.Kids))
		for i, a := range n.Kids {
			args[i] = pr.expr(a)
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	case OpNew:
		return "new(" + n.Type.String() + ")"
	case OpConvert:
		return n.Type.String() + "(" + pr.expr(n.Kids[0]) + ")"
	default:
		return "<" + n.Op.String() + ">"
	}
}

func (pr *printer) operand(id NodeID) string {
	switch pr.prog.Op(id) {
	case OpBinary, OpUnary:
		return "(" + pr.expr(id) + ")"
	}
	return pr.expr(id)
}

// typeOf returns the static type of simple expressions; it is only used to
// name fields.
func (pr *printer) typeOf(id NodeID) *Type {
	return TypeOf(pr.prog, id)
}

// TypeOf returns the type of an expression when it can be derived from the
// variables and fields it refers to, or nil.
func TypeOf(p *Program, id NodeID) *Type {
	if id == 0 {
		return nil
	}
	n := p.Node(id)
	switch n.Op {
	case OpVar:
		return p.Var(n.Var).Type
	case OpDeref:
		if t := p.Var(n.Var).Type; t.Kind == Reference {
			return t.Elem
		}
	case OpAddr:
		return RefTo(p.Var(n.Var).Type)
	case OpConst, OpZero, OpNew, OpConvert:
		return n.Type
	case OpField, OpGetMember:
		if t := TypeOf(p, n.Kids[0]); t != nil && n.Field < len(t.Fields) {
			return t.Fields[n.Field].Type
		}
	case OpMemberAddr:
		if t := TypeOf(p, n.Kids[0]); t != nil && n.Field < len(t.Fields) {
			return RefTo(t.Fields[n.Field].Type)
		}
	case OpIndex:
		if t := TypeOf(p, n.Kids[0]); t != nil && t.Kind == ArrayLike {
			return t.Elem
		}
	case OpCall:
		if n.Func != 0 {
			return p.Func(n.Func).Result
		}
	}
	return nil
}

func fieldName(t *Type, i int) string {
	if t != nil && t.Kind == Reference {
		t = t.Elem
	}
	if t != nil && i >= 0 && i < len(t.Fields) {
		return t.Fields[i].Name
	}
	return "#" + strconv.Itoa(i)
}
