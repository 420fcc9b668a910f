package gosrc_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealthrocket/cursor"
	"github.com/stealthrocket/cursor/compiler"
	"github.com/stealthrocket/cursor/gosrc"
	"github.com/stealthrocket/cursor/interp"
)

const source = `package p

func yield[T any](T) {}

type point struct {
	x, y int
}

func count(n int) {
	for i := 1; i <= n; i++ {
		yield(i)
	}
}

func evens(n int) {
	for i := 0; i < n; i += 2 {
		yield(i)
	}
}

func collatz(n int) {
	for n != 1 {
		yield(n)
		if n%2 == 0 {
			n = n / 2
		} else {
			n = 3*n + 1
		}
	}
	yield(1)
}

func skip(n int) {
	for i := 0; ; i++ {
		if i >= n {
			break
		}
		if i%3 == 0 {
			continue
		}
		yield(i)
	}
}

func walk(n int) {
	p := point{x: 1}
	for i := 0; i < n; i++ {
		p.y += p.x
		p.x = p.x * 2
		q := &p
		yield(q.y)
	}
}

func swap(n int) {
	a, b := 0, 1
	for i := 0; i < n; i++ {
		yield(a)
		a, b = b, a+b
	}
}

func notAGenerator(n int) int {
	return n + 1
}
`

func load(t *testing.T, src string) ([]*gosrc.Unit, error) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	info := &types.Info{
		Types:      map[ast.Expr]types.TypeAndValue{},
		Defs:       map[*ast.Ident]types.Object{},
		Uses:       map[*ast.Ident]types.Object{},
		Selections: map[*ast.SelectorExpr]*types.Selection{},
	}
	conf := types.Config{}
	if _, err := conf.Check("p", fset, []*ast.File{f}, info); err != nil {
		t.Fatal(err)
	}
	return gosrc.Convert(fset, "p", []*ast.File{f}, info)
}

func mustLoad(t *testing.T, src string) map[string]*gosrc.Unit {
	t.Helper()
	units, err := load(t, src)
	if err != nil {
		t.Fatal(err)
	}
	m := map[string]*gosrc.Unit{}
	for _, u := range units {
		m[u.Name] = u
	}
	return m
}

func TestConvertFindsGenerators(t *testing.T) {
	units, err := load(t, source)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, u := range units {
		names = append(names, u.Name)
	}
	want := []string{"p.count", "p.evens", "p.collatz", "p.skip", "p.walk", "p.swap"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("generators mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertCountedLoops(t *testing.T) {
	units := mustLoad(t, source)
	for _, test := range []struct {
		name string
		// want is the header of the counted loop, or empty if the loop must
		// not be counted.
		want string
	}{
		{"p.count", "for i = 1; i <= n; i += 1 {"},
		{"p.evens", "for i = 0; i <= n - 1; i += 2 {"},
		{"p.skip", ""},
		{"p.collatz", ""},
	} {
		u := units[test.name]
		got := u.Program.FuncString(u.Func)
		switch {
		case test.want == "" && strings.Contains(got, " += "):
			t.Errorf("%s: loop is counted:\n%s", test.name, got)
		case !strings.Contains(got, test.want):
			t.Errorf("%s: output does not contain %q:\n%s", test.name, test.want, got)
		}
	}
}

func TestConvertedGenerators(t *testing.T) {
	for _, test := range []struct {
		name string
		arg  int64
		want []string
	}{
		{"p.count", 4, []string{"1", "2", "3", "4"}},
		{"p.evens", 7, []string{"0", "2", "4", "6"}},
		{"p.collatz", 6, []string{"6", "3", "10", "5", "16", "8", "4", "2", "1"}},
		{"p.skip", 8, []string{"1", "2", "4", "5", "7"}},
		{"p.walk", 4, []string{"1", "3", "7", "15"}},
		{"p.swap", 7, []string{"0", "1", "1", "2", "3", "5", "8"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			u := mustLoad(t, source)[test.name]
			values, err := interp.New(u.Program).Yields(u.Func, test.arg)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, format(values)); diff != "" {
				t.Fatalf("reference values mismatch (-want +got):\n%s", diff)
			}

			for _, options := range [][]compiler.Option{nil, {compiler.WithoutLoopOptimization()}} {
				u := mustLoad(t, source)[test.name]
				if err := compiler.Lower(u.Program, u.Func, options...); err != nil {
					t.Fatal(err)
				}
				it, err := interp.New(u.Program).NewIterator(u.Func, test.arg)
				if err != nil {
					t.Fatal(err)
				}
				got := format(cursor.Collect[interp.Value](it))
				if diff := cmp.Diff(test.want, got); diff != "" {
					t.Fatalf("lowered values mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func format(values []interp.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = interp.Format(v)
	}
	return out
}

func TestConvertErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		src  string
		want string
	}{
		{
			name: "results",
			src:  "func f() int { yield(1); return 0 }",
			want: "generator with results",
		},
		{
			name: "function literal",
			src:  "func f() { g := func() { yield(1) }; g() }",
			want: "yield in function literal",
		},
		{
			name: "switch",
			src:  "func f(n int) { switch n { case 1: yield(1) } }",
			want: "not implemented: *ast.SwitchStmt",
		},
		{
			name: "strings",
			src:  `func f() { yield("a") }`,
			want: "not implemented: type string",
		},
		{
			name: "goroutine",
			src:  "func f() { go func() {}(); yield(1) }",
			want: "not implemented: *ast.GoStmt",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			src := "package p\n\nfunc yield[T any](T) {}\n\n" + test.src + "\n"
			_, err := load(t, src)
			if err == nil {
				t.Fatal("conversion succeeded")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not contain %q", err, test.want)
			}
			if !strings.HasPrefix(err.Error(), "p.go:") {
				t.Errorf("error %q does not start with a position", err)
			}
		})
	}
}
