package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: advisory checks on parsed programs
// ---------------------------------------------------------------------------

// SemanticAnalyzer inspects a parsed program for constructs that are legal
// but almost certainly not what the author meant. Its findings never stop
// a program from compiling.
type SemanticAnalyzer struct {
	warnings []string

	// Symbols referenced so far, for the constant-formula check
	referenced map[string]bool
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{referenced: make(map[string]bool)}
}

// Warnings returns accumulated analysis warnings.
func (s *SemanticAnalyzer) Warnings() []string {
	return s.warnings
}

// Referenced reports whether the analyzed program mentions name.
func (s *SemanticAnalyzer) Referenced(name string) bool {
	return s.referenced[name]
}

// warnAt records a warning with position information.
func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...any) {
	pos := node.Span().Start
	msg := fmt.Sprintf("warning: line %d, column %d: %s", pos.Line, pos.Column, fmt.Sprintf(format, args...))
	s.warnings = append(s.warnings, msg)
}

// AnalyzeProgram performs semantic analysis on a parsed program.
func (s *SemanticAnalyzer) AnalyzeProgram(prog *Program) {
	s.analyzeOperand(prog)

	if len(s.referenced) == 0 {
		s.warnAt(prog, "formula references no symbols and scores every item the same")
	}
}

// analyzeOperand analyzes an operand and everything below it.
func (s *SemanticAnalyzer) analyzeOperand(op Operand) {
	switch n := op.(type) {
	case *AccessorRef:
		s.referenced[n.Name] = true

	case *Signed:
		if inner, ok := n.Operand.(*Signed); ok && n.Negative() && inner.Negative() {
			s.warnAt(n, "double negation cancels out")
		}
		s.analyzeOperand(n.Operand)

	case *Program:
		s.analyzeOperand(n.First)
		for _, oper := range n.Rest {
			if oper.Operator == OpDiv && literalZero(oper.Operand) {
				s.warnAt(oper.Operand, "division by constant zero")
			}
			s.analyzeOperand(oper.Operand)
		}
	}
}

// literalZero reports whether op is a zero literal, possibly signed.
func literalZero(op Operand) bool {
	switch n := op.(type) {
	case *FloatLiteral:
		return n.Value == 0
	case *Signed:
		return literalZero(n.Operand)
	case *Program:
		return len(n.Rest) == 0 && literalZero(n.First)
	}
	return false
}

// ---------------------------------------------------------------------------
// Integration with Grammar
// ---------------------------------------------------------------------------

// Analyze runs semantic analysis on a program and returns any warnings.
func Analyze(prog *Program) []string {
	analyzer := NewSemanticAnalyzer()
	analyzer.AnalyzeProgram(prog)
	return analyzer.Warnings()
}
