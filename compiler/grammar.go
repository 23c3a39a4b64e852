package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/cache"
)

var log = commonlog.GetLogger("exprscore.compiler")

// Binding pairs a symbol name with the accessor it resolves to.
type Binding struct {
	Name     string
	Accessor accessor.Accessor
}

// Grammar is the expression grammar closed over an ordered set of symbol
// bindings. It is immutable after construction and safe for concurrent use.
type Grammar struct {
	bindings []Binding
	symbols  map[string]int
	programs *cache.LRU[*Program]
}

// GrammarOption configures a Grammar.
type GrammarOption func(*Grammar)

// WithCache keeps up to capacity parsed programs, keyed by source text.
func WithCache(capacity int) GrammarOption {
	return func(g *Grammar) {
		g.programs = cache.New[*Program](capacity)
	}
}

// NewGrammar validates bindings and builds a grammar over them. Names must
// be identifiers and unique; every binding needs an accessor.
func NewGrammar(bindings []Binding, opts ...GrammarOption) (*Grammar, error) {
	g := &Grammar{
		bindings: append([]Binding(nil), bindings...),
		symbols:  make(map[string]int, len(bindings)),
	}
	for i, b := range g.bindings {
		if !validSymbol(b.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, b.Name)
		}
		if _, dup := g.symbols[b.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, b.Name)
		}
		if b.Accessor == nil {
			return nil, fmt.Errorf("symbol %q: no accessor bound", b.Name)
		}
		g.symbols[b.Name] = i
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// MakeGrammar builds a grammar from parallel lists of names and accessors.
func MakeGrammar(names []string, accessors []accessor.Accessor, opts ...GrammarOption) (*Grammar, error) {
	if len(names) != len(accessors) {
		return nil, fmt.Errorf("%d symbol names for %d accessors", len(names), len(accessors))
	}
	bindings := make([]Binding, len(names))
	for i := range names {
		bindings[i] = Binding{Name: names[i], Accessor: accessors[i]}
	}
	return NewGrammar(bindings, opts...)
}

// Bindings returns a copy of the grammar's bindings, in slot order.
func (g *Grammar) Bindings() []Binding {
	return append([]Binding(nil), g.bindings...)
}

// Lookup returns the slot and accessor bound to name.
func (g *Grammar) Lookup(name string) (int, accessor.Accessor, bool) {
	slot, ok := g.symbols[name]
	if !ok {
		return -1, nil, false
	}
	return slot, g.bindings[slot].Accessor, true
}

// Parse parses text into a Program. Failures are *ParseError.
func (g *Grammar) Parse(text string) (*Program, error) {
	if g.programs == nil {
		return g.parse(text)
	}
	return g.programs.GetOrCompute(text, func() (*Program, error) {
		return g.parse(text)
	})
}

func (g *Grammar) parse(text string) (*Program, error) {
	prog, err := newParser(text, g.bindings, g.symbols).ParseProgram()
	if err != nil {
		log.Debugf("parse %q: %v", text, err)
		return nil, err
	}
	log.Debugf("parsed %q -> %s", text, prog)
	for _, w := range Analyze(prog) {
		log.Warningf("%q: %s", text, w)
	}
	return prog, nil
}

// Parse parses text against bindings. It is shorthand for NewGrammar
// followed by Grammar.Parse.
func Parse(text string, bindings []Binding) (*Program, error) {
	g, err := NewGrammar(bindings)
	if err != nil {
		return nil, err
	}
	return g.Parse(text)
}

// validSymbol reports whether name lexes as a single identifier.
func validSymbol(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !(isLetter(r) || r == '_' || (i > 0 && isDigit(r))) {
			return false
		}
	}
	return true
}
