// Package eval turns a parsed Program into an Evaluator over an item type.
//
// Three interchangeable strategies produce the same results:
//
//   - Tree walks the Program's AST on every call.
//   - Raw lowers the AST once into typed nodes and walks those.
//   - Bytecode compiles to a tape for the stack machine in package vm.
//
// All three thread the item through each call as a parameter. Tree and Raw
// evaluators are stateless and safe for concurrent use; a Bytecode
// evaluator owns a mutable value stack and must be confined to one
// goroutine.
package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/compiler"
)

var log = commonlog.GetLogger("exprscore.eval")

// Evaluator computes a Program's value for one item.
type Evaluator[T any] interface {
	// Eval evaluates against item. It does not allocate.
	Eval(item *T) float64
	// Close releases resources held by the evaluator.
	Close() error
}

// Strategy selects an evaluation backend.
type Strategy int

const (
	Tree Strategy = iota
	Raw
	Bytecode
)

// Strategies lists every strategy, in declaration order.
var Strategies = []Strategy{Tree, Raw, Bytecode}

var strategyNames = map[Strategy]string{
	Tree:     "tree",
	Raw:      "raw",
	Bytecode: "bytecode",
}

// ErrUnknownStrategy is returned for strategies outside Strategies.
var ErrUnknownStrategy = errors.New("unknown evaluation strategy")

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name ("tree", "raw", "bytecode" or "vm").
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tree":
		return Tree, nil
	case "raw":
		return Raw, nil
	case "bytecode", "vm":
		return Bytecode, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Compile builds an evaluator for prog using strategy s. Accessors bound
// against an item type other than T fail here with a
// *accessor.TypeBindingError. A nil prog is a programming error and panics.
func Compile[T any](prog *compiler.Program, s Strategy) (Evaluator[T], error) {
	if prog == nil {
		panic(compiler.InvalidOperand("eval.Compile", nil))
	}
	var (
		ev  Evaluator[T]
		err error
	)
	switch s {
	case Tree:
		ev, err = nonNil[T](NewTree[T](prog))
	case Raw:
		ev, err = nonNil[T](NewRaw[T](prog))
	case Bytecode:
		ev, err = nonNil[T](compiler.CompileBytecode[T](prog))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, s)
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("compiled %s evaluator for %s", s, prog)
	return ev, nil
}

// nonNil keeps a failed constructor's typed nil out of the interface.
func nonNil[T any, E Evaluator[T]](e E, err error) (Evaluator[T], error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// resolveSlots recovers the typed accessors of prog, indexed by slot.
// Missing operands panic here rather than during evaluation.
func resolveSlots[T any](prog *compiler.Program) ([]accessor.Typed[T], error) {
	compiler.Walk(prog, func(op compiler.Operand) bool {
		if op == nil {
			panic(compiler.InvalidOperand("eval", nil))
		}
		return true
	})
	erased := compiler.Accessors(prog)
	typed := make([]accessor.Typed[T], len(erased))
	for slot, a := range erased {
		if a == nil {
			continue
		}
		t, err := accessor.As[T](a)
		if err != nil {
			return nil, err
		}
		typed[slot] = t
	}
	return typed, nil
}
