package script

import (
	"fmt"

	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/compiler"
)

// Evaluator evaluates a script function against items of type T, passing
// one accessor value per parameter.
type Evaluator[T any] struct {
	fn        *Function
	accessors []accessor.Typed[T]
	args      []float64
	owned     *Engine // closed with the evaluator when set
}

// Bind pairs fn's parameters with accessors, in order.
func Bind[T any](fn *Function, accessors []accessor.Accessor) (*Evaluator[T], error) {
	if len(accessors) != len(fn.params) {
		return nil, fmt.Errorf("script: %s takes %d parameters, got %d accessors", fn.name, len(fn.params), len(accessors))
	}
	typed := make([]accessor.Typed[T], len(accessors))
	for i, a := range accessors {
		t, err := accessor.As[T](a)
		if err != nil {
			return nil, err
		}
		typed[i] = t
	}
	return &Evaluator[T]{fn: fn, accessors: typed, args: make([]float64, len(typed))}, nil
}

// Compile builds a self-contained evaluator for formula text whose
// symbols are bindings. The evaluator owns a fresh engine; the engine is
// released when Compile fails or when the evaluator is closed.
func Compile[T any](bindings []compiler.Binding, text string) (ev *Evaluator[T], err error) {
	engine := NewEngine()
	defer func() {
		if err != nil {
			engine.Close()
		}
	}()

	ev, err = Define[T](engine, "formula", bindings, text)
	if err != nil {
		return nil, err
	}
	ev.owned = engine
	return ev, nil
}

// Define defines formula text on engine under name, with one parameter per
// binding, and binds it. The evaluator shares engine and does not close it.
func Define[T any](engine *Engine, name string, bindings []compiler.Binding, text string) (*Evaluator[T], error) {
	params := make([]string, len(bindings))
	accessors := make([]accessor.Accessor, len(bindings))
	for i, b := range bindings {
		params[i] = b.Name
		accessors[i] = b.Accessor
	}
	fn, err := engine.Define(name, params, text)
	if err != nil {
		return nil, err
	}
	return Bind[T](fn, accessors)
}

// Eval reads every accessor from item and calls the function.
func (e *Evaluator[T]) Eval(item *T) (float64, error) {
	for i, a := range e.accessors {
		e.args[i] = a.Eval(item)
	}
	return e.fn.Eval(e.args...)
}

// Close releases the engine the evaluator owns, if any.
func (e *Evaluator[T]) Close() error {
	if e.owned == nil {
		return nil
	}
	return e.owned.Close()
}
