package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/stealthrocket/cursor/compiler"
)

const usage = `
iterc lowers Go generators to cursor objects.

USAGE:
  iterc [OPTIONS] [PATH]

OPTIONS:
  -h, --help                     Show this help information
  -v, --version                  Show the compiler version
  -o FILE                        Write lowered programs to FILE (default stdout)
  -debug                         Log the decisions of each lowering step
  --no-live-analysis             Capture every local of a generator
  --no-optimize-loop-iterators   Always lower to a dispatch on resume positions

ENVIRONMENT:
  ITERC_FLAGS   Space separated flags applied to every invocation,
                for example "no-live-analysis"
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = func() { println(usage[1:]) }

	var showVersion, debugLog, noLive, noLoops bool
	var output string
	flag.BoolVar(&showVersion, "v", false, "")
	flag.BoolVar(&showVersion, "version", false, "")
	flag.BoolVar(&debugLog, "debug", false, "")
	flag.BoolVar(&noLive, "no-live-analysis", false, "")
	flag.BoolVar(&noLoops, "no-optimize-loop-iterators", false, "")
	flag.StringVar(&output, "o", "", "")

	flag.Parse()

	if showVersion {
		fmt.Println(version())
		return nil
	}

	path := flag.Arg(0)
	if path == "" {
		// Under go generate, GOFILE names the file holding the directive
		// and the working directory is the one containing it.
		if gofile := os.Getenv("GOFILE"); gofile != "" {
			path = gofile
		} else {
			path = "."
		}
	}

	level := slog.LevelInfo
	if debugLog {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))

	options := []compiler.Option{compiler.WithLogger(logger)}
	if noLive {
		options = append(options, compiler.WithoutLiveAnalysis())
	}
	if noLoops {
		options = append(options, compiler.WithoutLoopOptimization())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return writeOutput(output, func(w io.Writer) error {
		return compiler.Compile(ctx, path, w, options...)
	})
}

var create = func(name string) (io.WriteCloser, error) { return os.Create(name) }

// writeOutput calls write with the file named output, or stdout when output
// is empty. Errors closing the file are returned when write succeeded.
func writeOutput(output string, write func(io.Writer) error) (err error) {
	if output == "" {
		return write(os.Stdout)
	}
	f, err := create(output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func version() (version string) {
	version = "devel"
	if info, ok := debug.ReadBuildInfo(); ok {
		switch info.Main.Version {
		case "":
		case "(devel)":
		default:
			version = info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				version += " " + setting.Value
			}
		}
	}
	return
}
