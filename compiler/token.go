package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the blok surface language
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger // 42
	TokenFloat   // 3.14, 1.5e10
	TokenString  // "hello" or 'hello'
	TokenIdent   // foo, Bar

	// Keywords
	TokenLet
	TokenConst
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenAwait
	TokenTrue
	TokenFalse
	TokenNull

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenEq      // ==
	TokenNotEq   // !=
	TokenLt      // <
	TokenLtEq    // <=
	TokenGt      // >
	TokenGtEq    // >=
	TokenAndAnd  // &&
	TokenOrOr    // ||
	TokenBang    // !
	TokenAssign  // =

	// Delimiters
	TokenLParen      // (
	TokenRParen      // )
	TokenLBracket    // [
	TokenRBracket    // ]
	TokenLBrace      // {
	TokenRBrace      // }
	TokenComma       // ,
	TokenSemicolon   // ;
	TokenColon       // :
	TokenDot         // .
	TokenBlockOpen   // {|
	TokenBlockClose  // |}
	TokenDollarBrace // ${
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenError:       "ERROR",
	TokenInteger:     "INTEGER",
	TokenFloat:       "FLOAT",
	TokenString:      "STRING",
	TokenIdent:       "IDENT",
	TokenLet:         "let",
	TokenConst:       "const",
	TokenReturn:      "return",
	TokenIf:          "if",
	TokenElse:        "else",
	TokenWhile:       "while",
	TokenAwait:       "await",
	TokenTrue:        "true",
	TokenFalse:       "false",
	TokenNull:        "null",
	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenStar:        "*",
	TokenSlash:       "/",
	TokenPercent:     "%",
	TokenEq:          "==",
	TokenNotEq:       "!=",
	TokenLt:          "<",
	TokenLtEq:        "<=",
	TokenGt:          ">",
	TokenGtEq:        ">=",
	TokenAndAnd:      "&&",
	TokenOrOr:        "||",
	TokenBang:        "!",
	TokenAssign:      "=",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBracket:    "[",
	TokenRBracket:    "]",
	TokenLBrace:      "{",
	TokenRBrace:      "}",
	TokenComma:       ",",
	TokenSemicolon:   ";",
	TokenColon:       ":",
	TokenDot:         ".",
	TokenBlockOpen:   "{|",
	TokenBlockClose:  "|}",
	TokenDollarBrace: "${",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"let":    TokenLet,
	"const":  TokenConst,
	"return": TokenReturn,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"await":  TokenAwait,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"null":   TokenNull,
}
