package eval

import (
	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/compiler"
)

// RawEvaluator evaluates a Program lowered once into a tree of typed
// nodes. Accessors are embedded in their nodes, so evaluation neither
// consults a table nor switches on operand kinds.
type RawEvaluator[T any] struct {
	root node[T]
}

// NewRaw lowers prog into a raw evaluator.
func NewRaw[T any](prog *compiler.Program) (*RawEvaluator[T], error) {
	accessors, err := resolveSlots[T](prog)
	if err != nil {
		return nil, err
	}
	return &RawEvaluator[T]{root: lower(prog, accessors)}, nil
}

// Eval evaluates the lowered program against item.
func (e *RawEvaluator[T]) Eval(item *T) float64 {
	return e.root.eval(item)
}

// Close is a no-op; raw evaluators hold no resources.
func (e *RawEvaluator[T]) Close() error { return nil }

type node[T any] interface {
	eval(item *T) float64
}

type constNode[T any] struct{ value float64 }

func (n *constNode[T]) eval(*T) float64 { return n.value }

type accessorNode[T any] struct{ acc accessor.Typed[T] }

func (n *accessorNode[T]) eval(item *T) float64 { return n.acc.Eval(item) }

type negNode[T any] struct{ operand node[T] }

func (n *negNode[T]) eval(item *T) float64 { return -n.operand.eval(item) }

type binaryNode[T any] struct {
	op          compiler.Operator
	left, right node[T]
}

func (n *binaryNode[T]) eval(item *T) float64 {
	return n.op.Apply(n.left.eval(item), n.right.eval(item))
}

// lower converts an operand into nodes. A Program's left fold becomes a
// left-leaning chain of binary nodes; a '+' sign disappears.
func lower[T any](op compiler.Operand, accessors []accessor.Typed[T]) node[T] {
	switch n := op.(type) {
	case *compiler.FloatLiteral:
		return &constNode[T]{value: n.Value}
	case *compiler.AccessorRef:
		return &accessorNode[T]{acc: accessors[n.Slot]}
	case *compiler.Signed:
		inner := lower(n.Operand, accessors)
		if n.Negative() {
			return &negNode[T]{operand: inner}
		}
		return inner
	case *compiler.Program:
		left := lower(n.First, accessors)
		for _, oper := range n.Rest {
			left = &binaryNode[T]{op: oper.Operator, left: left, right: lower(oper.Operand, accessors)}
		}
		return left
	}
	panic(compiler.InvalidOperand("raw lowering", op))
}
