package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) + - * /`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"0", "0"},
		{"3.14", "3.14"},
		{"2.", "2."},
		{".5", ".5"},
		{"1e10", "1e10"},
		{"1.5e-3", "1.5e-3"},
		{"2.0E+5", "2.0E+5"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenNumber {
			t.Errorf("Lexer(%q): type = %v, want NUMBER", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
		if next := l.NextToken(); next.Type != TokenEOF {
			t.Errorf("Lexer(%q): trailing token %v", tc.input, next)
		}
	}
}

func TestLexerSignIsSeparate(t *testing.T) {
	toks := Tokenize("-3")
	if len(toks) != 3 {
		t.Fatalf("Tokenize(-3) = %v, want 3 tokens", toks)
	}
	if toks[0].Type != TokenMinus || toks[1].Type != TokenNumber || toks[1].Literal != "3" {
		t.Errorf("Tokenize(-3) = %v, want MINUS NUMBER(3)", toks)
	}
}

func TestLexerExponentNeedsDigits(t *testing.T) {
	toks := Tokenize("2e")
	if len(toks) != 3 {
		t.Fatalf("Tokenize(2e) = %v, want 3 tokens", toks)
	}
	if toks[0].Literal != "2" || toks[1].Type != TokenIdentifier || toks[1].Literal != "e" {
		t.Errorf("Tokenize(2e) = %v, want NUMBER(2) IDENTIFIER(e)", toks)
	}

	toks = Tokenize("2e+")
	if toks[0].Literal != "2" || toks[1].Type != TokenIdentifier {
		t.Errorf("Tokenize(2e+) = %v, want NUMBER(2) IDENTIFIER(e) ...", toks)
	}
}

func TestLexerIdentifiers(t *testing.T) {
	tests := []string{"like", "follow_count", "_x", "x1", "élan"}
	for _, input := range tests {
		toks := Tokenize(input)
		if toks[0].Type != TokenIdentifier || toks[0].Literal != input {
			t.Errorf("Tokenize(%q) = %v, want IDENTIFIER", input, toks)
		}
	}
}

func TestLexerWhitespace(t *testing.T) {
	for _, input := range []string{"like+2", " like +\t2 ", "like\v+\f2", "\r\nlike\u00a0+ 2\n"} {
		toks := Tokenize(input)
		if len(toks) != 4 {
			t.Fatalf("Tokenize(%q) = %v, want 4 tokens", input, toks)
		}
		if toks[0].Literal != "like" || toks[1].Type != TokenPlus || toks[2].Literal != "2" || toks[3].Type != TokenEOF {
			t.Errorf("Tokenize(%q) = %v", input, toks)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	toks := Tokenize("a +\n  12")
	want := []Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 2, Line: 1, Column: 3},
		{Offset: 6, Line: 2, Column: 3},
		{Offset: 8, Line: 2, Column: 5},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tok := range toks {
		if tok.Pos != want[i] {
			t.Errorf("token[%d] %v at %+v, want %+v", i, tok, tok.Pos, want[i])
		}
	}
}

func TestLexerError(t *testing.T) {
	toks := Tokenize("1 % 2")
	last := toks[len(toks)-1]
	if last.Type != TokenError {
		t.Fatalf("last token = %v, want ERROR", last)
	}
	if last.Pos.Column != 3 {
		t.Errorf("error column = %d, want 3", last.Pos.Column)
	}
}
