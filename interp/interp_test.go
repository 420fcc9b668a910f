package interp_test

import (
	"errors"
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealthrocket/cursor/interp"
	"github.com/stealthrocket/cursor/ir"
)

func TestYields(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("evens", ir.Int)
	n := p.Param(fn, "n", ir.Int)
	i := p.Local(fn, "i", ir.Int)
	p.SetBody(fn, p.Block(
		p.CFor(i, p.Int(0), p.Ref(n), p.Int(1), p.Block(
			p.If(p.Binary(token.EQL, p.Binary(token.REM, p.Ref(i), p.Int(2)), p.Int(0)),
				p.Block(p.Yield(p.Ref(i))),
				0,
			),
		)),
		p.Return(0),
	))

	for _, test := range []struct {
		n    int64
		want []interp.Value
	}{
		{n: -1, want: []interp.Value{}},
		{n: 0, want: []interp.Value{int64(0)}},
		{n: 7, want: []interp.Value{int64(0), int64(2), int64(4), int64(6)}},
	} {
		got, err := interp.New(p).Yields(fn, test.n)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("n=%d: values mismatch (-want +got):\n%s", test.n, diff)
		}
	}
}

func TestRecordsAreCopied(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("f", ir.Int)
	pair := ir.NewRecord("pair")
	pair.AddField("a", ir.Int)
	pair.AddField("b", ir.Int)
	x := p.Local(fn, "x", pair)
	y := p.Local(fn, "y", pair)
	p.SetBody(fn, p.Block(
		p.SetField(x, 0, p.Int(1)),
		p.Assign(y, p.Ref(x)),
		p.SetField(y, 0, p.Int(2)),
		p.Yield(p.FieldOf(p.Ref(x), 0)),
		p.Yield(p.FieldOf(p.Ref(y), 0)),
		p.Yield(p.FieldOf(p.Ref(y), 1)),
	))

	got, err := interp.New(p).Yields(fn)
	if err != nil {
		t.Fatal(err)
	}
	want := []interp.Value{int64(1), int64(2), int64(0)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestReferences(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("f", ir.Int)
	x := p.Local(fn, "x", ir.Int)
	r := p.Local(fn, "r", ir.RefTo(ir.Int))
	p.SetBody(fn, p.Block(
		p.Assign(r, p.Addr(x)),
		p.Store(r, p.Int(5)),
		p.Yield(p.Ref(x)),
		p.Assign(x, p.Int(6)),
		p.Yield(p.Deref(r)),
	))

	got, err := interp.New(p).Yields(fn)
	if err != nil {
		t.Fatal(err)
	}
	want := []interp.Value{int64(5), int64(6)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSwitch(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("f", ir.Int)
	c := p.Param(fn, "c", ir.Int)
	p.SetBody(fn, p.Block(
		p.Switch(p.Ref(c), p.Case(3, "three"), p.Case(2, "two")),
		p.Return(p.Int(0)),
		p.Label("two"),
		p.Return(p.Int(20)),
		p.Label("three"),
		p.Return(p.Int(30)),
	))

	for _, test := range []struct {
		c, want     int64
		comparisons int
	}{
		{c: 3, want: 30, comparisons: 1},
		{c: 2, want: 20, comparisons: 2},
		{c: 1, want: 0, comparisons: 2},
	} {
		m := interp.New(p)
		got, err := m.Call(fn, test.c)
		if err != nil {
			t.Fatal(err)
		}
		if got != test.want {
			t.Errorf("f(%d) = %v, want %d", test.c, got, test.want)
		}
		if m.Stats.Comparisons != test.comparisons {
			t.Errorf("f(%d): %d comparisons, want %d", test.c, m.Stats.Comparisons, test.comparisons)
		}
	}
}

func TestHostFunctions(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("f", ir.Int)
	p.SetBody(fn, p.Block(
		p.Return(p.CallHost("double", p.Int(21))),
	))

	double := func(args []interp.Value) (interp.Value, error) {
		return args[0].(int64) * 2, nil
	}
	got, err := interp.New(p, interp.WithHost("double", double)).Call(fn)
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(42) {
		t.Fatalf("f() = %v, want 42", got)
	}

	_, err = interp.New(p).Call(fn)
	if err == nil || !strings.Contains(err.Error(), "undefined function double") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrors(t *testing.T) {
	p := ir.NewProgram()

	forever := p.NewFunc("forever", nil)
	p.SetBody(forever, p.Block(
		p.While(p.Bool(true), p.Block()),
	))

	spin := p.NewFunc("spin", nil)
	p.SetBody(spin, p.Block(
		p.Loop(ir.DoWhile, p.Bool(true), p.Block()),
	))

	count := p.NewFunc("count", nil)
	i := p.Local(count, "i", ir.Int)
	p.SetBody(count, p.Block(
		p.CFor(i, p.Int(0), p.Int(1<<40), p.Int(1), p.Block()),
	))

	nilRef := p.NewFunc("nilRef", ir.Int)
	r := p.Local(nilRef, "r", ir.RefTo(ir.Int))
	p.SetBody(nilRef, p.Block(
		p.Return(p.Deref(r)),
	))

	divide := p.NewFunc("divide", ir.Int)
	p.SetBody(divide, p.Block(
		p.Return(p.Binary(token.QUO, p.Int(1), p.Int(0))),
	))

	yield := p.NewFunc("yield", ir.Int)
	p.SetBody(yield, p.Block(
		p.Yield(p.Int(1)),
	))

	for _, test := range []struct {
		fn   ir.FuncID
		want string
	}{
		{forever, "step limit exceeded"},
		{spin, "step limit exceeded"},
		{count, "step limit exceeded"},
		{nilRef, "load through nil reference r"},
		{divide, "integer divide by zero"},
		{yield, "yield outside of a generator"},
	} {
		_, err := interp.New(p, interp.WithStepLimit(1000)).Call(test.fn)
		var e *interp.Error
		if !errors.As(err, &e) {
			t.Errorf("%s: error is %v, want *interp.Error", p.Func(test.fn).Name, err)
			continue
		}
		if e.Msg != test.want {
			t.Errorf("%s: error is %q, want %q", p.Func(test.fn).Name, e.Msg, test.want)
		}
	}
}

func TestEqual(t *testing.T) {
	pair := ir.NewRecord("pair")
	pair.AddField("a", ir.Int)
	a := &interp.Record{Type: pair, Fields: []interp.Value{int64(1)}}
	b := &interp.Record{Type: pair, Fields: []interp.Value{int64(1)}}
	c := &interp.Record{Type: pair, Fields: []interp.Value{int64(2)}}

	if !interp.Equal(a, b) {
		t.Error("equal records compare unequal")
	}
	if interp.Equal(a, c) {
		t.Error("different records compare equal")
	}
	if got := interp.Format(a); got != "{1}" {
		t.Errorf("Format = %q, want {1}", got)
	}
}
