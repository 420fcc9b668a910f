package ir

import (
	"fmt"
	"strings"
)

// Kind is the closed set of type categories the lowering pass distinguishes.
type Kind uint8

const (
	Scalar Kind = iota + 1
	Record
	Reference
	ArrayLike
	Class
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Record:
		return "record"
	case Reference:
		return "reference"
	case ArrayLike:
		return "array"
	case Class:
		return "class"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type describes the type of variables, fields and expressions.
//
// Scalar types may carry a default value (HasDefault) used when
// initializing fields. Record and Class types carry fields. Reference
// and ArrayLike types carry an element type, and ArrayLike types a length.
type Type struct {
	Kind Kind
	Name string

	HasDefault  bool
	DefaultInt  int64
	DefaultBool bool
	Boolean     bool

	Fields []Field
	Elem   *Type
	Len    int

	// The following are only set on classes synthesized for generators.
	Flags    ClassFlags
	Iterator *IteratorInfo
	// DefaultConstructor is the function producing instances of the class.
	DefaultConstructor FuncID
	// ScalarPromotion is the type of the values produced by the iterator.
	ScalarPromotion *Type
}

// Field is a named member of a record or class.
type Field struct {
	Name string
	Type *Type
}

// ClassFlags tag synthesized classes.
type ClassFlags uint8

const (
	IteratorClass ClassFlags = 1 << iota
	RefIteratorClass
	NoObject
)

// Predefined scalar types.
var (
	Int      = &Type{Kind: Scalar, Name: "int", HasDefault: true}
	Bool     = &Type{Kind: Scalar, Name: "bool", HasDefault: true, Boolean: true}
	CursorID = &Type{Kind: Scalar, Name: "cursor", HasDefault: true}
)

// NewRecord returns a record type with the given fields.
func NewRecord(name string, fields ...Field) *Type {
	return &Type{Kind: Record, Name: name, Fields: fields}
}

// NewClass returns a class type with no fields.
func NewClass(name string) *Type {
	return &Type{Kind: Class, Name: name}
}

// RefTo returns a reference type to elem.
func RefTo(elem *Type) *Type {
	return &Type{Kind: Reference, Name: "&" + elem.Name, Elem: elem}
}

// ArrayOf returns an array-like type of n elements.
func ArrayOf(n int, elem *Type) *Type {
	return &Type{Kind: ArrayLike, Name: fmt.Sprintf("[%d]%s", n, elem.Name), Elem: elem, Len: n}
}

// AddField appends a field to a record or class and returns its index.
func (t *Type) AddField(name string, typ *Type) int {
	t.Fields = append(t.Fields, Field{Name: name, Type: typ})
	return len(t.Fields) - 1
}

// FieldIndex returns the index of the named field, or -1.
func (t *Type) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Record, Class:
		if t.Name != "" {
			return t.Name
		}
		var b strings.Builder
		b.WriteString("struct{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(f.Name + " " + f.Type.String())
		}
		b.WriteString("}")
		return b.String()
	case Reference:
		return "&" + t.Elem.String()
	case ArrayLike:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	default:
		return t.Name
	}
}

// IteratorInfo links a generator to the class and methods synthesized for it.
type IteratorInfo struct {
	Generator FuncID
	Class     *Type

	GetHeadCursor FuncID
	GetNextCursor FuncID
	IsValidCursor FuncID
	GetValue      FuncID
	GetZipCursor1 FuncID
	GetZipCursor2 FuncID
	GetZipCursor3 FuncID
	GetZipCursor4 FuncID

	// ValueField is the class field holding the last yielded value.
	ValueField int
}

// Methods returns the eight protocol methods in declaration order.
func (info *IteratorInfo) Methods() []FuncID {
	return []FuncID{
		info.GetHeadCursor,
		info.GetNextCursor,
		info.IsValidCursor,
		info.GetValue,
		info.GetZipCursor1,
		info.GetZipCursor2,
		info.GetZipCursor3,
		info.GetZipCursor4,
	}
}
