package compiler

import (
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealthrocket/cursor/ir"
)

func TestLiveAtYields(t *testing.T) {
	for _, test := range []struct {
		name  string
		build func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID
		vars  []string
		want  []string
	}{
		{
			name: "used after yield",
			vars: []string{"a", "b", "c"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Assign(v("a"), p.Int(1)),
					p.Assign(v("b"), p.Int(2)),
					p.Yield(p.Ref(v("a"))),
					p.Assign(v("c"), p.Ref(v("b"))),
					p.Yield(p.Ref(v("c"))),
				)
			},
			want: []string{"b"},
		},
		{
			name: "redefined after yield",
			vars: []string{"a"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Assign(v("a"), p.Int(1)),
					p.Yield(p.Ref(v("a"))),
					p.Assign(v("a"), p.Int(2)),
					p.Yield(p.Ref(v("a"))),
				)
			},
			want: nil,
		},
		{
			name: "loop carried",
			vars: []string{"i", "sum", "tmp"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Assign(v("sum"), p.Int(0)),
					p.CFor(v("i"), p.Int(0), p.Int(10), p.Int(1), p.Block(
						p.Assign(v("tmp"), p.Binary(token.MUL, p.Ref(v("i")), p.Ref(v("i")))),
						p.Yield(p.Ref(v("tmp"))),
						p.Assign(v("sum"), p.Binary(token.ADD, p.Ref(v("sum")), p.Ref(v("tmp")))),
					)),
					p.Yield(p.Ref(v("sum"))),
				)
			},
			want: []string{"i", "sum", "tmp"},
		},
		{
			name: "used on one branch",
			vars: []string{"a", "b"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Assign(v("a"), p.Int(1)),
					p.Assign(v("b"), p.Bool(true)),
					p.Yield(p.Int(0)),
					p.If(p.Ref(v("b")), p.Block(p.Yield(p.Ref(v("a")))), 0),
				)
			},
			want: []string{"a", "b"},
		},
		{
			name: "partial record write",
			vars: []string{"r"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Yield(p.Int(0)),
					p.SetField(v("r"), 0, p.Int(1)),
				)
			},
			want: []string{"r"},
		},
		{
			name: "address taken",
			vars: []string{"x", "ref"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Assign(v("x"), p.Int(1)),
					p.Yield(p.Int(0)),
					p.Assign(v("ref"), p.Addr(v("x"))),
					p.Yield(p.Deref(v("ref"))),
				)
			},
			want: []string{"x"},
		},
		{
			name: "jump back",
			vars: []string{"n"},
			build: func(p *ir.Program, fn ir.FuncID, v func(string) ir.VarID) ir.NodeID {
				return p.Block(
					p.Assign(v("n"), p.Int(3)),
					p.Label("top"),
					p.Yield(p.Ref(v("n"))),
					p.Assign(v("n"), p.Binary(token.SUB, p.Ref(v("n")), p.Int(1))),
					p.If(p.Binary(token.GTR, p.Ref(v("n")), p.Int(0)), p.Block(p.Goto("top")), 0),
				)
			},
			want: []string{"n"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := ir.NewProgram()
			fn := p.NewFunc("f", ir.Int)
			vars := map[string]ir.VarID{}
			for _, name := range test.vars {
				typ := ir.Int
				switch name {
				case "r":
					typ = pair
				case "ref":
					typ = ir.RefTo(ir.Int)
				case "b":
					typ = ir.Bool
				}
				vars[name] = p.Local(fn, name, typ)
			}
			p.SetBody(fn, test.build(p, fn, func(name string) ir.VarID { return vars[name] }))

			var got []string
			for _, v := range liveAtYields(p, p.Func(fn)) {
				got = append(got, p.Var(v).Name)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("live variables mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllLocals(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("f", ir.Int)
	a := p.Local(fn, "a", ir.Int)
	r := p.Local(fn, "r", ir.RefTo(ir.Int))
	arr := p.Local(fn, "arr", ir.RefTo(ir.ArrayOf(2, ir.Int)))
	rec := p.Local(fn, "rec", pair)

	got := allLocals(p.Func(fn))
	if diff := cmp.Diff([]ir.VarID{a, r, arr, rec}, got); diff != "" {
		t.Fatalf("locals mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze(t *testing.T) {
	for _, test := range []struct {
		options []Option
		want    []string
	}{
		{want: []string{"x", "total"}},
		{options: []Option{WithoutLiveAnalysis()}, want: []string{"x", "sq", "total"}},
	} {
		p := ir.NewProgram()
		fn := squares(p)

		var got []string
		for _, v := range Analyze(p, fn, test.options...) {
			got = append(got, p.Var(v).Name)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("captured locals mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestNormalize(t *testing.T) {
	p := ir.NewProgram()
	fn := squares(p)
	l := &lowering{options: newOptions(nil), prog: p, gen: fn, fn: p.Func(fn)}
	l.normalize()

	want := `func squares(n int) int {
	var x int
	var sq int
	var total int
	var _ret int
	var _v0 bool
	x = 0
	total = 0
	_v0 = x < n
	while _v0 {
		sq = x * x
		total = total + sq
		_ret = sq
		yield _ret
		x = x + 1
		_v0 = x < n
	}
	sink(total)
	return
}
`
	if diff := cmp.Diff(want, p.FuncString(fn)); diff != "" {
		t.Fatalf("normalized function mismatch (-want +got):\n%s", diff)
	}
}
