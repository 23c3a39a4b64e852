// Package script evaluates formulas with an embedded expression engine
// instead of the native compiler. It exists as a reference point: the
// engine accepts the same formula text, but every call marshals arguments
// into an environment and interprets the engine's own bytecode.
//
// An Engine is a handle on one engine instance. It is not safe for
// concurrent use; build one per goroutine.
package script

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("exprscore.script")

// ErrClosed is reported by functions of an engine that has been closed.
var ErrClosed = errors.New("script engine closed")

// EvaluationError reports a failure inside the script engine, carrying the
// engine's diagnostic text.
type EvaluationError struct {
	Function   string
	Diagnostic string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("script: %s: %s", e.Function, e.Diagnostic)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func evaluationError(fn string, err error) *EvaluationError {
	return &EvaluationError{Function: fn, Diagnostic: err.Error(), Err: err}
}

// Engine owns an expression engine instance and the functions defined in
// it.
type Engine struct {
	machine   vm.VM
	functions map[string]*Function
	closed    bool
}

// NewEngine acquires a new engine handle. Release it with Close.
func NewEngine() *Engine {
	return &Engine{functions: make(map[string]*Function)}
}

// Function is a compiled script function with positional float64
// parameters.
type Function struct {
	engine  *Engine
	name    string
	params  []string
	program *vm.Program
	env     map[string]any
}

// Define compiles body as function name over params. Redefining a name
// replaces the earlier definition.
func (e *Engine) Define(name string, params []string, body string) (*Function, error) {
	if e.closed {
		return nil, evaluationError(name, ErrClosed)
	}
	env := make(map[string]any, len(params))
	for _, p := range params {
		if _, dup := env[p]; dup {
			return nil, &EvaluationError{Function: name, Diagnostic: fmt.Sprintf("duplicate parameter %q", p)}
		}
		env[p] = 0.0
	}
	program, err := expr.Compile(body, expr.Env(env), expr.AsFloat64())
	if err != nil {
		return nil, evaluationError(name, err)
	}
	fn := &Function{
		engine:  e,
		name:    name,
		params:  append([]string(nil), params...),
		program: program,
		env:     env,
	}
	e.functions[name] = fn
	log.Debugf("defined %s(%v)", name, params)
	return fn, nil
}

// Function returns the function defined under name.
func (e *Engine) Function(name string) (*Function, bool) {
	fn, ok := e.functions[name]
	return fn, ok
}

// Close releases the engine. Functions defined in it stop working.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.functions = nil
	return nil
}

// Name returns the function's name.
func (f *Function) Name() string { return f.name }

// Params returns the function's parameter names.
func (f *Function) Params() []string { return f.params }

// Eval calls the function with args bound to its parameters in order.
func (f *Function) Eval(args ...float64) (float64, error) {
	if f.engine.closed {
		return 0, evaluationError(f.name, ErrClosed)
	}
	if len(args) != len(f.params) {
		return 0, &EvaluationError{
			Function:   f.name,
			Diagnostic: fmt.Sprintf("called with %d arguments, want %d", len(args), len(f.params)),
		}
	}
	for i, p := range f.params {
		f.env[p] = args[i]
	}
	out, err := f.engine.machine.Run(f.program, f.env)
	if err != nil {
		return 0, evaluationError(f.name, err)
	}
	return toFloat(f.name, out)
}

func toFloat(fn string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, &EvaluationError{Function: fn, Diagnostic: fmt.Sprintf("result %v (%T) is not a number", v, v)}
}
