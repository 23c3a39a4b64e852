package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for scoring expressions
// ---------------------------------------------------------------------------
//
//	expression := term (('+'|'-') term)*
//	term       := factor (('*'|'/') factor)*
//	factor     := number | symbol | '(' expression ')' | ('-'|'+') factor
//
// A term or expression with no operators collapses to its single operand;
// everything else becomes a *Program.

// Parser parses expression source into a Program.
type Parser struct {
	lexer    *Lexer
	curToken Token
	prevEnd  Position // end of the last consumed token
	symbols  map[string]int
	bindings []Binding
	err      *ParseError
}

// newParser creates a parser for input that resolves symbols against
// symbols (name -> slot in bindings).
func newParser(input string, bindings []Binding, symbols map[string]int) *Parser {
	p := &Parser{
		lexer:    NewLexer(input),
		symbols:  symbols,
		bindings: bindings,
	}
	p.curToken = p.lexer.NextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	cur := p.curToken
	p.prevEnd = Position{
		Offset: cur.Pos.Offset + len(cur.Literal),
		Line:   cur.Pos.Line,
		Column: cur.Pos.Column + utf8.RuneCountInString(cur.Literal),
	}
	p.curToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// failf records the first parse error; later ones are consequences.
func (p *Parser) failf(kind error, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{Pos: p.curToken.Pos, Reason: fmt.Sprintf(format, args...), Kind: kind}
}

// unexpected records a syntax error for the current token.
func (p *Parser) unexpected(want string) {
	switch p.curToken.Type {
	case TokenEOF:
		p.failf(ErrSyntax, "unexpected end of input, expected %s", want)
	case TokenError:
		p.failf(ErrSyntax, "%s", p.curToken.Literal)
	default:
		p.failf(ErrSyntax, "unexpected %q, expected %s", p.curToken.Literal, want)
	}
}

// ParseProgram parses the whole input. The full input must be consumed.
func (p *Parser) ParseProgram() (*Program, error) {
	op := p.parseExpression()
	if p.err == nil && !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenError) {
			p.unexpected("operator")
		} else {
			p.failf(ErrTrailing, "unexpected %q after expression", p.curToken.Literal)
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	if prog, ok := op.(*Program); ok {
		return prog, nil
	}
	return &Program{SpanVal: op.Span(), First: op}, nil
}

func (p *Parser) parseExpression() Operand {
	return p.parseChain(p.parseTerm, TokenPlus, TokenMinus)
}

func (p *Parser) parseTerm() Operand {
	return p.parseChain(p.parseFactor, TokenStar, TokenSlash)
}

// parseChain parses operand ((opA|opB) operand)*.
func (p *Parser) parseChain(next func() Operand, opA, opB TokenType) Operand {
	start := p.curToken.Pos
	first := next()
	if p.err != nil {
		return nil
	}

	var rest []Operation
	for p.curTokenIs(opA) || p.curTokenIs(opB) {
		op := Operator(p.curToken.Literal[0])
		p.nextToken()
		rhs := next()
		if p.err != nil {
			return nil
		}
		rest = append(rest, Operation{Operator: op, Operand: rhs})
	}

	if len(rest) == 0 {
		return first
	}
	return &Program{SpanVal: MakeSpan(start, p.prevEnd), First: first, Rest: rest}
}

func (p *Parser) parseFactor() Operand {
	tok := p.curToken
	switch tok.Type {
	case TokenNumber:
		return p.parseNumber()

	case TokenIdentifier:
		slot, ok := p.symbols[tok.Literal]
		if !ok {
			p.failf(ErrUnbound, "unbound symbol %q", tok.Literal)
			return nil
		}
		p.nextToken()
		return &AccessorRef{
			SpanVal:  MakeSpan(tok.Pos, p.prevEnd),
			Name:     tok.Literal,
			Slot:     slot,
			Accessor: p.bindings[slot].Accessor,
		}

	case TokenLParen:
		p.nextToken()
		inner := p.parseExpression()
		if p.err != nil {
			return nil
		}
		if !p.curTokenIs(TokenRParen) {
			p.unexpected("')'")
			return nil
		}
		p.nextToken()
		return inner

	case TokenMinus, TokenPlus:
		p.nextToken()
		operand := p.parseFactor()
		if p.err != nil {
			return nil
		}
		return &Signed{SpanVal: MakeSpan(tok.Pos, p.prevEnd), Sign: tok.Literal[0], Operand: operand}
	}

	p.unexpected("number, symbol, '(' or sign")
	return nil
}

func (p *Parser) parseNumber() Operand {
	tok := p.curToken
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			p.failf(ErrSyntax, "number %s out of range", tok.Literal)
		} else {
			p.failf(ErrSyntax, "malformed number %q", tok.Literal)
		}
		return nil
	}
	p.nextToken()
	return &FloatLiteral{SpanVal: MakeSpan(tok.Pos, p.prevEnd), Value: value}
}
