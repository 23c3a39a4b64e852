package eval

import (
	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/compiler"
)

// TreeEvaluator evaluates a Program by walking its AST on every call.
type TreeEvaluator[T any] struct {
	prog      *compiler.Program
	accessors []accessor.Typed[T] // by binding slot
}

// NewTree builds a tree-walking evaluator over prog.
func NewTree[T any](prog *compiler.Program) (*TreeEvaluator[T], error) {
	accessors, err := resolveSlots[T](prog)
	if err != nil {
		return nil, err
	}
	return &TreeEvaluator[T]{prog: prog, accessors: accessors}, nil
}

// Eval evaluates the program against item.
func (e *TreeEvaluator[T]) Eval(item *T) float64 {
	return e.eval(e.prog, item)
}

func (e *TreeEvaluator[T]) eval(op compiler.Operand, item *T) float64 {
	switch n := op.(type) {
	case *compiler.FloatLiteral:
		return n.Value
	case *compiler.AccessorRef:
		return e.accessors[n.Slot].Eval(item)
	case *compiler.Signed:
		v := e.eval(n.Operand, item)
		if n.Negative() {
			return -v
		}
		return v
	case *compiler.Program:
		acc := e.eval(n.First, item)
		for _, oper := range n.Rest {
			acc = oper.Operator.Apply(acc, e.eval(oper.Operand, item))
		}
		return acc
	}
	panic(compiler.InvalidOperand("tree evaluator", op))
}

// Close is a no-op; tree evaluators hold no resources.
func (e *TreeEvaluator[T]) Close() error { return nil }
