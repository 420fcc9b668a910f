package compiler

import (
	"github.com/stealthrocket/cursor/ir"
)

// construct replaces the body of the generator with the allocation of a
// cursor object, which it returns. Arguments are stored into their fields,
// record fields are default initialized, and scalar fields receive the
// default value of their type.
//
// The generator becomes the default constructor of the class.
func (l *lowering) construct() {
	p := l.prog
	fn := l.fn
	class := l.class

	fn.Locals = nil
	obj := p.Local(l.gen, "_ic", class)
	stmts := []ir.NodeID{p.Assign(obj, p.New(class))}
	for _, c := range l.captures {
		field := class.Fields[c.field]
		switch {
		case c.arg && c.storage == storeReference:
			stmts = append(stmts, p.SetMember(p.Ref(obj), c.field, p.Deref(c.v)))
		case c.arg:
			stmts = append(stmts, p.SetMember(p.Ref(obj), c.field, p.Ref(c.v)))
		case c.storage == storeRecord:
			rec, init := l.defaultRecord(field.Type)
			stmts = append(stmts, init...)
			stmts = append(stmts, p.SetMember(p.Ref(obj), c.field, p.Ref(rec)))
		case c.storage == storeArray:
		case field.Type.Kind == ir.Scalar && field.Type.HasDefault:
			stmts = append(stmts, p.SetMember(p.Ref(obj), c.field, p.Default(field.Type)))
		}
	}
	stmts = append(stmts, p.Return(p.Ref(obj)))
	p.SetBody(l.gen, p.Block(stmts...))

	fn.Result = class
	fn.RefReturn = false
	fn.Return = 0
	fn.Iterator = l.info
	class.DefaultConstructor = l.gen
}

// defaultRecord returns a temporary holding the default value of the record
// type t, along with the statements initializing it. Fields are initialized
// recursively; array-like fields are left alone.
func (l *lowering) defaultRecord(t *ir.Type) (ir.VarID, []ir.NodeID) {
	p := l.prog
	rec := p.Local(l.gen, l.newVar(), t)
	var stmts []ir.NodeID
	for i, f := range t.Fields {
		switch f.Type.Kind {
		case ir.Scalar:
			if !f.Type.HasDefault {
				l.fatalf(0, "field %s of record %s has no default value", f.Name, t)
			}
			stmts = append(stmts, p.SetField(rec, i, p.Default(f.Type)))
		case ir.Record:
			sub, init := l.defaultRecord(f.Type)
			stmts = append(stmts, init...)
			stmts = append(stmts, p.SetField(rec, i, p.Ref(sub)))
		case ir.Reference, ir.Class:
			stmts = append(stmts, p.SetField(rec, i, p.Nil(f.Type)))
		case ir.ArrayLike:
		default:
			l.fatalf(0, "field %s of record %s has type %s of unexpected kind", f.Name, t, f.Type)
		}
	}
	return rec, stmts
}
