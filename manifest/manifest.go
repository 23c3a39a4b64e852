// Package manifest handles scorex.toml run configuration.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/chazu/exprscore/accessor"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "scorex.toml"

// Manifest represents a scorex.toml run configuration.
type Manifest struct {
	Run      Run               `toml:"run"`
	Formulas []Formula         `toml:"formula"`
	Source   Source            `toml:"source"`
	Bindings map[string]string `toml:"bindings"`

	// Dir is the directory containing the scorex.toml file (set at load time).
	Dir string `toml:"-"`
}

// Run configures how formulas are evaluated.
type Run struct {
	Strategy string `toml:"strategy"`
	Workers  int    `toml:"workers"`
	Shape    string `toml:"shape"`
	Output   string `toml:"output"`
}

// Formula is one named scoring expression.
type Formula struct {
	Name string `toml:"name"`
	Expr string `toml:"expr"`
}

// Source configures where items are loaded from.
type Source struct {
	Kind  string `toml:"kind"`
	Path  string `toml:"path"`
	DSN   string `toml:"dsn"`
	Query string `toml:"query"`
}

//go:embed schema.cue
var schemaSource string

// ErrNoFormulas is returned by Check for a manifest with nothing to score.
var ErrNoFormulas = errors.New("no formulas to score")

// Load parses the scorex.toml file in the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest data, then applies defaults.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	// Defaults
	if m.Run.Strategy == "" {
		m.Run.Strategy = "bytecode"
	}
	if m.Run.Workers == 0 {
		m.Run.Workers = runtime.NumCPU()
	}
	if m.Run.Shape == "" {
		m.Run.Shape = "field"
	}
	if m.Source.Kind == "" {
		m.Source.Kind = "samples"
	}
	return &m, nil
}

// validate checks raw against the #Manifest schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename(FileName+".cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}

// FindAndLoad walks up from startDir to find a scorex.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Resolve returns path relative to the manifest directory, unless it is
// already absolute.
func (m *Manifest) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}

// OutputPath returns the absolute path results are written to, or "".
func (m *Manifest) OutputPath() string {
	return m.Resolve(m.Run.Output)
}

// SourcePath returns the absolute path of a file source, or "".
func (m *Manifest) SourcePath() string {
	return m.Resolve(m.Source.Path)
}

// Check reports whether m is ready to run. A manifest may leave out its
// formulas when they are supplied some other way, so Parse does not
// require them.
func (m *Manifest) Check() error {
	if len(m.Formulas) == 0 {
		return ErrNoFormulas
	}
	return nil
}

// Expressions returns the formula texts in declaration order.
func (m *Manifest) Expressions() []string {
	exprs := make([]string, len(m.Formulas))
	for i, f := range m.Formulas {
		exprs[i] = f.Expr
	}
	return exprs
}

// ParseShape parses a binding shape name.
func ParseShape(name string) (accessor.Shape, error) {
	switch name {
	case "field":
		return accessor.ShapeField, nil
	case "method":
		return accessor.ShapeMethod, nil
	case "func":
		return accessor.ShapeFunc, nil
	}
	return 0, fmt.Errorf("unknown binding shape %q", name)
}

// ParseBinding splits a binding spec such as "method:Lk" into its shape
// and target name.
func ParseBinding(spec string) (accessor.Shape, string, error) {
	kind, target, ok := strings.Cut(spec, ":")
	if !ok || target == "" {
		return 0, "", fmt.Errorf("malformed binding %q, want shape:target", spec)
	}
	shape, err := ParseShape(kind)
	if err != nil {
		return 0, "", err
	}
	return shape, target, nil
}
