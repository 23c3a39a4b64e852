package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/exprscore/accessor"
)

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for scoring expressions
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from two positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Operand is the tagged union of expression operands: *FloatLiteral,
// *AccessorRef, *Signed or *Program. A nil Operand is the invalid Nil
// case; it never comes out of the parser and evaluators treat it as a
// programming error.
type Operand interface {
	Node
	operand() // marker method
}

// FloatLiteral represents a numeric literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) operand()   {}

// AccessorRef represents a bound symbol.
type AccessorRef struct {
	SpanVal  Span
	Name     string
	Slot     int // index of the binding in the parser's binding list
	Accessor accessor.Accessor
}

func (n *AccessorRef) Span() Span { return n.SpanVal }
func (n *AccessorRef) node()      {}
func (n *AccessorRef) operand()   {}

// Signed represents a unary sign applied to an operand.
type Signed struct {
	SpanVal Span
	Sign    byte // '+' or '-'
	Operand Operand
}

func (n *Signed) Span() Span { return n.SpanVal }
func (n *Signed) node()      {}
func (n *Signed) operand()   {}

// Negative reports whether the sign flips the operand.
func (n *Signed) Negative() bool { return n.Sign == '-' }

// Operator is one of the four binary operators.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

func (o Operator) String() string { return string(rune(o)) }

// Apply computes lhs o rhs with native float semantics. Division by zero
// yields an infinity or NaN, never an error.
func (o Operator) Apply(lhs, rhs float64) float64 {
	switch o {
	case OpAdd:
		return lhs + rhs
	case OpSub:
		return lhs - rhs
	case OpMul:
		return lhs * rhs
	case OpDiv:
		return lhs / rhs
	}
	panic(fmt.Sprintf("compiler: invalid operator %q", byte(o)))
}

// Operation is one (operator, operand) step of a Program.
type Operation struct {
	Operator Operator
	Operand  Operand
}

// Program is a left-associative operator chain: First, then each
// Operation of Rest applied in order. Precedence is encoded by nesting,
// so evaluating a Program is a plain left fold.
//
// A Program is immutable once parsed and may be shared by any number of
// evaluators and goroutines.
type Program struct {
	SpanVal Span
	First   Operand
	Rest    []Operation
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}
func (n *Program) operand()   {}

// String renders the program in postfix order, the same order the
// bytecode compiler emits it in.
func (n *Program) String() string {
	var sb strings.Builder
	writePostfix(&sb, n)
	return sb.String()
}

func writePostfix(sb *strings.Builder, op Operand) {
	sep := func() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
	}
	switch n := op.(type) {
	case *FloatLiteral:
		sep()
		sb.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *AccessorRef:
		sep()
		sb.WriteString(n.Name)
	case *Signed:
		writePostfix(sb, n.Operand)
		if n.Negative() {
			sep()
			sb.WriteString("neg")
		}
	case *Program:
		writePostfix(sb, n.First)
		for _, oper := range n.Rest {
			writePostfix(sb, oper.Operand)
			sep()
			sb.WriteString(opNames[oper.Operator])
		}
	default:
		sep()
		sb.WriteString("<nil>")
	}
}

var opNames = map[Operator]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
}

// Walk calls fn for op and every operand below it, depth first, in source
// order. Walking stops early when fn returns false.
func Walk(op Operand, fn func(Operand) bool) bool {
	if !fn(op) {
		return false
	}
	switch n := op.(type) {
	case *Signed:
		return Walk(n.Operand, fn)
	case *Program:
		if !Walk(n.First, fn) {
			return false
		}
		for _, oper := range n.Rest {
			if !Walk(oper.Operand, fn) {
				return false
			}
		}
	}
	return true
}

// Accessors returns the bound accessors referenced by op, indexed by slot.
// Slots that op never references are nil.
func Accessors(op Operand) []accessor.Accessor {
	var out []accessor.Accessor
	Walk(op, func(o Operand) bool {
		if ref, ok := o.(*AccessorRef); ok {
			for len(out) <= ref.Slot {
				out = append(out, nil)
			}
			out[ref.Slot] = ref.Accessor
		}
		return true
	})
	return out
}
