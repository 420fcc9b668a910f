package compiler

import (
	"github.com/stealthrocket/cursor/ir"
)

// synthesizeClass declares the class of cursor objects of the generator
// right before it, along with the eight protocol methods. The methods have
// empty bodies; the lowering engines fill them.
func (l *lowering) synthesizeClass() {
	p := l.prog
	fn := l.fn

	name := "_ic_" + fn.Name
	if fn.Receiver != nil {
		name += "_" + fn.Receiver.Name
	}
	class := ir.NewClass(name)
	class.Flags = ir.IteratorClass | ir.NoObject
	if fn.RefReturn {
		class.Flags |= ir.RefIteratorClass
	}
	class.ScalarPromotion = fn.Result
	p.DeclareType(class, l.gen)

	info := &ir.IteratorInfo{Generator: l.gen, Class: class}
	class.Iterator = info
	l.class = class
	l.info = info

	value := fn.Result
	if fn.RefReturn {
		value = ir.RefTo(fn.Result)
	}
	info.GetHeadCursor = l.method("getHeadCursor", ir.CursorID, false)
	info.GetNextCursor = l.method("getNextCursor", ir.CursorID, true)
	info.IsValidCursor = l.method("isValidCursor", ir.Bool, true)
	info.GetValue = l.method("getValue", value, true)
	info.GetZipCursor1 = l.method("getZipCursor1", ir.CursorID, false)
	info.GetZipCursor2 = l.method("getZipCursor2", ir.CursorID, true)
	info.GetZipCursor3 = l.method("getZipCursor3", ir.CursorID, true)
	info.GetZipCursor4 = l.method("getZipCursor4", ir.CursorID, true)
	l.log.Debug("synthesized iterator class", "class", name)
}

func (l *lowering) method(name string, result *ir.Type, withCursor bool) ir.FuncID {
	m, _ := l.prog.NewMethod(l.class, name, result, l.gen)
	if withCursor {
		l.prog.Param(m, "cursor", ir.CursorID)
	}
	l.prog.Func(m).Iterator = l.info
	return m
}

// this returns the receiver of a method.
func (l *lowering) this(m ir.FuncID) ir.VarID {
	return l.prog.Func(m).Params[0]
}

// cursorParam returns the cursor parameter of a method.
func (l *lowering) cursorParam(m ir.FuncID) ir.VarID {
	params := l.prog.Func(m).Params
	if len(params) < 2 {
		l.fatalf(0, "method %s has no cursor parameter", l.prog.Func(m).Name)
	}
	return params[1]
}
