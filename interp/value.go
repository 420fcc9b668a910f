package interp

import (
	"fmt"

	"github.com/stealthrocket/cursor/ir"
)

// Value is the runtime representation of ir values:
//
//	int64     integers and cursor IDs
//	bool      booleans
//	*Record   records (copied on assignment)
//	*Array    array-like values (copied on assignment)
//	Ref       references
//	*Object   class instances (shared on assignment)
//	nil       nil references and objects, unset members
type Value any

// Record is a record value.
type Record struct {
	Type   *ir.Type
	Fields []Value
}

// Array is an array-like value.
type Array struct {
	Type  *ir.Type
	Elems []Value
}

// Object is an instance of a class.
type Object struct {
	Class  *ir.Type
	Fields []Value
}

// Ref is a reference to a storage cell: a local variable or an object
// member.
type Ref struct{ cell *Value }

// Load returns the value the reference points to.
func (r Ref) Load() Value { return *r.cell }

// copyValue returns a copy of v following value semantics.
func copyValue(v Value) Value {
	switch x := v.(type) {
	case *Record:
		c := &Record{Type: x.Type, Fields: make([]Value, len(x.Fields))}
		for i, f := range x.Fields {
			c.Fields[i] = copyValue(f)
		}
		return c
	case *Array:
		c := &Array{Type: x.Type, Elems: make([]Value, len(x.Elems))}
		for i, e := range x.Elems {
			c.Elems[i] = copyValue(e)
		}
		return c
	default:
		return v
	}
}

// zero returns the zero value of t. Array-like values are allocated with
// zeroed elements.
func zero(t *ir.Type) Value {
	switch t.Kind {
	case ir.Scalar:
		if t.Boolean {
			return t.DefaultBool
		}
		return t.DefaultInt
	case ir.Record:
		r := &Record{Type: t, Fields: make([]Value, len(t.Fields))}
		for i, f := range t.Fields {
			r.Fields[i] = zero(f.Type)
		}
		return r
	case ir.ArrayLike:
		a := &Array{Type: t, Elems: make([]Value, t.Len)}
		for i := range a.Elems {
			a.Elems[i] = zero(t.Elem)
		}
		return a
	default:
		return nil
	}
}

// Equal reports whether two values are deeply equal. References are equal
// when they point to the same cell.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *Record:
		y, ok := b.(*Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if !Equal(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Format returns a human readable rendition of v.
func Format(v Value) string {
	switch x := v.(type) {
	case *Record:
		s := "{"
		for i, f := range x.Fields {
			if i > 0 {
				s += " "
			}
			s += Format(f)
		}
		return s + "}"
	case *Array:
		s := "["
		for i, e := range x.Elems {
			if i > 0 {
				s += " "
			}
			s += Format(e)
		}
		return s + "]"
	case Ref:
		return "&" + Format(x.Load())
	case *Object:
		return fmt.Sprintf("%s@%p", x.Class.Name, x)
	case nil:
		return "nil"
	default:
		return fmt.Sprint(v)
	}
}
