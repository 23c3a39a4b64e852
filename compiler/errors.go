package compiler

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ParseError, for use with errors.Is.
var (
	ErrSyntax   = errors.New("syntax error")
	ErrUnbound  = errors.New("unbound symbol")
	ErrTrailing = errors.New("unconsumed input")
)

// Binding errors reported by NewGrammar.
var (
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrInvalidSymbol   = errors.New("invalid symbol name")
)

// ParseError reports where and why an expression failed to parse.
type ParseError struct {
	Pos    Position
	Reason string
	Kind   error // ErrSyntax, ErrUnbound or ErrTrailing
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// InvalidProgramError reports a malformed AST, such as a nil operand, that
// reached a compiler or evaluator. Well-formed parses never produce one,
// so it is raised with panic.
type InvalidProgramError struct {
	Where string  // the pass that found it
	Node  Operand // offending node, nil for a missing operand
}

func (e *InvalidProgramError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s: invalid program: nil operand", e.Where)
	}
	return fmt.Sprintf("%s: invalid program: unexpected node %T", e.Where, e.Node)
}

// InvalidOperand builds the InvalidProgramError for op found in pass where.
func InvalidOperand(where string, op Operand) *InvalidProgramError {
	return &InvalidProgramError{Where: where, Node: op}
}
