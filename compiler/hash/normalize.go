package hash

import (
	"github.com/chazu/exprscore/compiler"
)

// ---------------------------------------------------------------------------
// AST Normalization: compiler AST → frozen hashing AST
//
// Rewrites applied, all of which preserve the computed value bit for bit:
//   - '+' signs are dropped and pairs of '-' signs cancel
//   - a fold with no steps is replaced by its first operand
//   - a fold whose first operand is itself a fold is flattened into it,
//     since ((a op b) op c) is what the outer fold computes anyway
// ---------------------------------------------------------------------------

// Normalize transforms a compiler operand into the frozen hashing AST.
// It panics with *compiler.InvalidProgramError on a nil operand.
func Normalize(op compiler.Operand) HNode {
	switch n := op.(type) {
	case *compiler.FloatLiteral:
		return &HConst{Value: n.Value}

	case *compiler.AccessorRef:
		return &HSymbol{Name: n.Name}

	case *compiler.Signed:
		inner := Normalize(n.Operand)
		if !n.Negative() {
			return inner
		}
		if neg, ok := inner.(*HNeg); ok {
			return neg.Operand
		}
		return &HNeg{Operand: inner}

	case *compiler.Program:
		first := Normalize(n.First)
		if len(n.Rest) == 0 {
			return first
		}
		fold := &HFold{First: first}
		if inner, ok := first.(*HFold); ok {
			fold.First = inner.First
			fold.Steps = append(fold.Steps, inner.Steps...)
		}
		for _, oper := range n.Rest {
			fold.Steps = append(fold.Steps, HStep{Operator: byte(oper.Operator), Operand: Normalize(oper.Operand)})
		}
		return fold
	}
	panic(compiler.InvalidOperand("hash.Normalize", op))
}
