package interp

import (
	"fmt"

	"github.com/stealthrocket/cursor"
	"github.com/stealthrocket/cursor/ir"
)

// Iterator drives a cursor object through the protocol methods synthesized
// for its class. It implements cursor.Iterator.
//
// The protocol methods panic with an *Error when the program faults.
type Iterator struct {
	m    *Machine
	obj  *Object
	info *ir.IteratorInfo
}

var _ cursor.Iterator[Value] = (*Iterator)(nil)

// NewIterator calls the lowered generator gen with args and wraps the cursor
// object it returns.
func (m *Machine) NewIterator(gen ir.FuncID, args ...Value) (*Iterator, error) {
	info := m.prog.Func(gen).Iterator
	if info == nil {
		return nil, fmt.Errorf("%s is not a lowered generator", m.prog.Func(gen).Name)
	}
	v, err := m.Call(gen, args...)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok || obj == nil || obj.Class != info.Class {
		return nil, fmt.Errorf("%s returned %s, want an instance of %s", m.prog.Func(gen).Name, Format(v), info.Class.Name)
	}
	return &Iterator{m: m, obj: obj, info: info}, nil
}

// Object returns the cursor object.
func (it *Iterator) Object() *Object { return it.obj }

func (it *Iterator) invoke(fn ir.FuncID, args ...Value) Value {
	v, err := it.m.Call(fn, append([]Value{it.obj}, args...)...)
	if err != nil {
		panic(err)
	}
	return v
}

func (it *Iterator) cursor(fn ir.FuncID, args ...Value) cursor.ID {
	switch v := it.invoke(fn, args...).(type) {
	case int64:
		return cursor.ID(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		panic(&Error{Func: it.m.prog.Func(fn).Name, Msg: "cursor is " + Format(v)})
	}
}

func (it *Iterator) GetHeadCursor() cursor.ID {
	return it.cursor(it.info.GetHeadCursor)
}

func (it *Iterator) GetNextCursor(c cursor.ID) cursor.ID {
	return it.cursor(it.info.GetNextCursor, int64(c))
}

func (it *Iterator) IsValidCursor(c cursor.ID) bool {
	v, ok := it.invoke(it.info.IsValidCursor, int64(c)).(bool)
	if !ok {
		panic(&Error{Func: it.m.prog.Func(it.info.IsValidCursor).Name, Msg: "validity is not a boolean"})
	}
	return v
}

// GetValue returns the last yielded value. Values of generators yielding by
// reference are dereferenced.
func (it *Iterator) GetValue(c cursor.ID) Value {
	v := it.invoke(it.info.GetValue, int64(c))
	if r, ok := v.(Ref); ok && r.cell != nil {
		return copyValue(r.Load())
	}
	return v
}

func (it *Iterator) GetZipCursor1() cursor.ID {
	return it.cursor(it.info.GetZipCursor1)
}

func (it *Iterator) GetZipCursor2(c cursor.ID) cursor.ID {
	return it.cursor(it.info.GetZipCursor2, int64(c))
}

func (it *Iterator) GetZipCursor3(c cursor.ID) cursor.ID {
	return it.cursor(it.info.GetZipCursor3, int64(c))
}

func (it *Iterator) GetZipCursor4(c cursor.ID) cursor.ID {
	return it.cursor(it.info.GetZipCursor4, int64(c))
}
