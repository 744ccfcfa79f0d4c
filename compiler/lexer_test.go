package compiler

import (
	"testing"
)

func TestLexerTokens(t *testing.T) {
	input := `let x = 42; return x + 1.5;`
	want := []TokenType{
		TokenLet, TokenIdent, TokenAssign, TokenInteger, TokenSemicolon,
		TokenReturn, TokenIdent, TokenPlus, TokenFloat, TokenSemicolon,
		TokenEOF,
	}

	tokens := Tokenize(input)
	if len(tokens) != len(want) {
		t.Fatalf("token count = %d, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Errorf("token %d = %s, want %s", i, tok.Type, want[i])
		}
	}
}

func TestLexerConstructDelimiters(t *testing.T) {
	tests := []struct {
		input string
		want  []TokenType
		desc  string
	}{
		{"{| |}", []TokenType{TokenBlockOpen, TokenBlockClose, TokenEOF}, "construct delimiters"},
		{"{ }", []TokenType{TokenLBrace, TokenRBrace, TokenEOF}, "plain braces"},
		{"${x}", []TokenType{TokenDollarBrace, TokenIdent, TokenRBrace, TokenEOF}, "capture marker"},
		{"a || b", []TokenType{TokenIdent, TokenOrOr, TokenIdent, TokenEOF}, "logical or"},
		{"{|x|}", []TokenType{TokenBlockOpen, TokenIdent, TokenBlockClose, TokenEOF}, "tight construct"},
	}

	for _, tc := range tests {
		tokens := Tokenize(tc.input)
		if len(tokens) != len(tc.want) {
			t.Errorf("%s: token count = %d, want %d: %v", tc.desc, len(tokens), len(tc.want), tokens)
			continue
		}
		for i, tok := range tokens {
			if tok.Type != tc.want[i] {
				t.Errorf("%s: token %d = %s, want %s", tc.desc, i, tok.Type, tc.want[i])
			}
		}
	}
}

func TestLexerOperators(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"==", TokenEq},
		{"!=", TokenNotEq},
		{"<=", TokenLtEq},
		{">=", TokenGtEq},
		{"<", TokenLt},
		{">", TokenGt},
		{"&&", TokenAndAnd},
		{"!", TokenBang},
		{"=", TokenAssign},
		{"%", TokenPercent},
	}

	for _, tc := range tests {
		tokens := Tokenize(tc.input)
		if tokens[0].Type != tc.want {
			t.Errorf("lex %q: got %s, want %s", tc.input, tokens[0].Type, tc.want)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
		desc  string
	}{
		{`"hello"`, "hello", "double quoted"},
		{`'hello'`, "hello", "single quoted"},
		{`"a\nb"`, "a\nb", "newline escape"},
		{`"say \"hi\""`, `say "hi"`, "escaped quote"},
	}

	for _, tc := range tests {
		tokens := Tokenize(tc.input)
		if tokens[0].Type != TokenString {
			t.Errorf("%s: got %s, want STRING", tc.desc, tokens[0].Type)
			continue
		}
		if tokens[0].Literal != tc.want {
			t.Errorf("%s: literal = %q, want %q", tc.desc, tokens[0].Literal, tc.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tokens := Tokenize(`"oops`)
	if tokens[0].Type != TokenError {
		t.Errorf("got %s, want ERROR", tokens[0].Type)
	}
}

func TestLexerComments(t *testing.T) {
	input := `
		// line comment
		let x = 1; /* block
		comment */ let y = 2;
	`
	tokens := Tokenize(input)
	var idents []string
	for _, tok := range tokens {
		if tok.Type == TokenIdent {
			idents = append(idents, tok.Literal)
		}
	}
	if len(idents) != 2 || idents[0] != "x" || idents[1] != "y" {
		t.Errorf("idents = %v, want [x y]", idents)
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := Tokenize("let x = 1;\nreturn x;")
	// The return keyword starts line 2.
	for _, tok := range tokens {
		if tok.Type == TokenReturn {
			if tok.Pos.Line != 2 {
				t.Errorf("return at line %d, want 2", tok.Pos.Line)
			}
			return
		}
	}
	t.Fatal("no return token found")
}
