package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealthrocket/cursor/ir"
)

func TestParseFlags(t *testing.T) {
	for _, test := range []struct {
		flags         string
		liveAnalysis  bool
		optimizeLoops bool
		err           string
	}{
		{flags: "", liveAnalysis: true, optimizeLoops: true},
		{flags: "no-live-analysis", liveAnalysis: false, optimizeLoops: true},
		{flags: "--no-optimize-loop-iterators", liveAnalysis: true, optimizeLoops: false},
		{flags: " no-live-analysis  -no-optimize-loop-iterators ", liveAnalysis: false, optimizeLoops: false},
		{flags: "no-such-flag", err: `unknown flag "no-such-flag"`},
	} {
		opts, err := parseFlags(test.flags)
		if test.err != "" {
			if err == nil || !strings.Contains(err.Error(), test.err) {
				t.Errorf("%q: unexpected error: %v", test.flags, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", test.flags, err)
			continue
		}
		o := newOptions(opts)
		if o.liveAnalysis != test.liveAnalysis || o.optimizeLoops != test.optimizeLoops {
			t.Errorf("%q: live analysis %t, loop optimization %t", test.flags, o.liveAnalysis, o.optimizeLoops)
		}
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv(EnvFlags, "no-optimize-loop-iterators")
	opts, err := OptionsFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if o := newOptions(opts); o.optimizeLoops || !o.liveAnalysis {
		t.Fatalf("unexpected options: %+v", *o)
	}
}

func TestWithConcurrency(t *testing.T) {
	if o := newOptions([]Option{WithConcurrency(3)}); o.concurrency != 3 {
		t.Errorf("concurrency = %d, want 3", o.concurrency)
	}
	if o := newOptions([]Option{WithConcurrency(0)}); o.concurrency < 1 {
		t.Errorf("concurrency = %d, want at least 1", o.concurrency)
	}
}

func TestLowerAll(t *testing.T) {
	// Two generators share a program; the others have their own.
	shared := ir.NewProgram()
	gens := []Generator{
		{Program: shared, Func: count(shared)},
		{Program: shared, Func: twoYields(shared)},
	}
	for _, g := range generators[2:6] {
		p, fn := g.program()
		gens = append(gens, Generator{Program: p, Func: fn})
	}

	if err := LowerAll(context.Background(), gens, WithConcurrency(2)); err != nil {
		t.Fatal(err)
	}
	for _, g := range gens {
		if err := Verify(g.Program, g.Func); err != nil {
			t.Error(err)
		}
	}

	var classes []string
	for _, d := range shared.Decls {
		if d.Type != nil {
			classes = append(classes, d.Type.Name)
		}
	}
	if diff := cmp.Diff([]string{"_ic_count", "_ic_twoYields"}, classes); diff != "" {
		t.Fatalf("classes mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerAllError(t *testing.T) {
	p := ir.NewProgram()
	fn := p.NewFunc("bad", ir.Int)
	p.SetBody(fn, p.Block(p.Yield(p.Int(1)), p.Return(p.Int(1))))

	err := LowerAll(context.Background(), []Generator{{Program: p, Func: fn}})
	if err == nil || !strings.Contains(err.Error(), "return with a value") {
		t.Fatalf("unexpected error: %v", err)
	}
}
