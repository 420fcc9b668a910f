package gosrc

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/types/typeutil"

	"github.com/stealthrocket/cursor/ir"
)

// typeCache maps Go types to the ir types they convert to. Identical Go
// types share their ir type.
type typeCache struct {
	m typeutil.Map
}

// irType converts a Go type. Booleans and integers map to scalars, structs
// to records, pointers to references and arrays to array-like types.
func (c *converter) irType(pos token.Pos, t types.Type) *ir.Type {
	if cached, ok := c.types.m.At(t).(*ir.Type); ok {
		return cached
	}
	var r *ir.Type
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsBoolean != 0:
			r = ir.Bool
		case u.Info()&types.IsInteger != 0:
			r = ir.Int
		default:
			c.fail(pos, "not implemented: type %s", t)
		}
	case *types.Struct:
		name := ""
		if named, ok := t.(*types.Named); ok {
			name = named.Obj().Name()
		}
		rec := ir.NewRecord(name)
		c.types.m.Set(t, rec)
		for i := 0; i < u.NumFields(); i++ {
			f := u.Field(i)
			rec.AddField(f.Name(), c.irType(pos, f.Type()))
		}
		r = rec
	case *types.Pointer:
		r = ir.RefTo(c.irType(pos, u.Elem()))
	case *types.Array:
		r = ir.ArrayOf(int(u.Len()), c.irType(pos, u.Elem()))
	default:
		c.fail(pos, "not implemented: type %s", t)
	}
	c.types.m.Set(t, r)
	return r
}
