package compiler

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// Option configures the compiler.
type Option func(*options)

type options struct {
	liveAnalysis  bool
	optimizeLoops bool
	concurrency   int
	logger        *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		liveAnalysis:  true,
		optimizeLoops: true,
		concurrency:   runtime.GOMAXPROCS(0),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithoutLiveAnalysis disables live variable analysis. Every local of a
// generator is then captured in its cursor object.
func WithoutLiveAnalysis() Option {
	return func(o *options) { o.liveAnalysis = false }
}

// WithoutLoopOptimization disables the single loop lowering engine. Every
// generator is then lowered to a dispatch on resume positions.
func WithoutLoopOptimization() Option {
	return func(o *options) { o.optimizeLoops = false }
}

// WithConcurrency bounds the number of programs lowered concurrently by
// LowerAll.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger receiving progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// EnvFlags is the environment variable holding process-wide compiler flags.
const EnvFlags = "ITERC_FLAGS"

// OptionsFromEnv returns the options set by the EnvFlags environment
// variable, a space separated list of flag names.
func OptionsFromEnv() ([]Option, error) {
	return parseFlags(os.Getenv(EnvFlags))
}

func parseFlags(s string) ([]Option, error) {
	var opts []Option
	for _, flag := range strings.Fields(s) {
		switch strings.TrimLeft(flag, "-") {
		case "no-live-analysis":
			opts = append(opts, WithoutLiveAnalysis())
		case "no-optimize-loop-iterators":
			opts = append(opts, WithoutLoopOptimization())
		default:
			return nil, fmt.Errorf("%s: unknown flag %q", EnvFlags, flag)
		}
	}
	return opts, nil
}
