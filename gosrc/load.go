// Package gosrc converts Go generator functions into ir programs.
//
// A generator is a function without results whose body calls cursor.Yield
// (or any function named yield) to produce values. Each generator is
// converted into its own program so that generators can be lowered
// independently.
package gosrc

import (
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/stealthrocket/cursor/ir"
)

const cursorPackage = "github.com/stealthrocket/cursor"

// Unit is a generator converted into a program of its own.
type Unit struct {
	// Name is the qualified name of the generator.
	Name    string
	Program *ir.Program
	Func    ir.FuncID
}

// Load loads, parses and type-checks the packages at path and converts the
// generators they declare.
//
// The path argument can either be a path to a package, or a pattern that
// matches multiple packages (for example, /path/to/module/...). The path
// can be absolute, or relative to the current working directory.
func Load(path string) ([]*Unit, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var dotdotdot bool
	absPath, dotdotdot = strings.CutSuffix(absPath, "...")
	if s, err := os.Stat(absPath); err != nil {
		return nil, err
	} else if !s.IsDir() {
		// Make sure we're loading whole packages.
		absPath = filepath.Dir(absPath)
	}
	pattern := "."
	if dotdotdot {
		pattern = "./..."
	}

	fset := token.NewFileSet()
	conf := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports,
		Fset: fset,
		Dir:  absPath,
	}
	pkgs, err := packages.Load(conf, pattern)
	if err != nil {
		return nil, fmt.Errorf("packages.Load %q: %w", path, err)
	}
	packages.Visit(pkgs, func(p *packages.Package) bool {
		for _, e := range p.Errors {
			err = e
			break
		}
		return err == nil
	}, nil)
	if err != nil {
		return nil, err
	}

	var units []*Unit
	for _, p := range pkgs {
		if p.PkgPath == cursorPackage {
			continue
		}
		u, err := Convert(fset, p.PkgPath, p.Syntax, p.TypesInfo)
		if err != nil {
			return nil, err
		}
		units = append(units, u...)
	}
	return units, nil
}
