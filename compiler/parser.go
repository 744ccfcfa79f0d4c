package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for the blok surface language
// ---------------------------------------------------------------------------

// Parser parses blok source code into an AST. Construct literals are
// validated as they are parsed: the scope analyzer and capture resolver
// run on every {| |} body, so a Construct node that violates the
// capture invariant is never built.
type Parser struct {
	tokens []Token
	pos    int
	input  string // original source text (for body source preservation)

	errors []*SyntaxError
	capErr *CaptureError

	// constructDepth tracks nesting inside {| |} bodies. Capture
	// markers ${name} are only legal when it is > 0.
	constructDepth int
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	return &Parser{
		tokens: Tokenize(input),
		input:  input,
	}
}

// cur returns the current token.
func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming the current one.
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// next advances to the next token.
func (p *Parser) next() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

// curIs checks if the current token is of the given type.
func (p *Parser) curIs(t TokenType) bool {
	return p.cur().Type == t
}

// expect advances past the current token if it matches, otherwise
// records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errorf("expected %s, got %s", t, p.cur().Type)
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &SyntaxError{
		Pos: p.cur().Pos,
		Msg: fmt.Sprintf(format, args...),
	})
}

// Err returns the first recorded syntax error, or the first capture
// error when the parse was otherwise clean.
func (p *Parser) Err() error {
	if len(p.errors) > 0 {
		return p.errors[0]
	}
	if p.capErr != nil {
		return p.capErr
	}
	return nil
}

// Errors returns all accumulated syntax errors.
func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseStatements parses statements until one of the given terminator
// token types (or EOF) is reached.
func (p *Parser) parseStatements(terminators ...TokenType) []Stmt {
	var stmts []Stmt

	for {
		if p.curIs(TokenEOF) || p.curIs(TokenError) {
			if p.curIs(TokenError) {
				p.errorf("%s", p.cur().Literal)
			}
			return stmts
		}
		for _, t := range terminators {
			if p.curIs(t) {
				return stmts
			}
		}

		before := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.pos == before {
			// No progress; skip the offending token to avoid looping.
			p.next()
		}
	}
}

// parseStatement parses a single statement.
func (p *Parser) parseStatement() Stmt {
	switch p.cur().Type {
	case TokenLet, TokenConst:
		return p.parseLet()
	case TokenReturn:
		return p.parseReturn()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenLBrace:
		return p.parseBlock()
	default:
		return p.parseExprStatement()
	}
}

// parseLet parses a let or const declaration.
func (p *Parser) parseLet() Stmt {
	start := p.cur().Pos
	isConst := p.curIs(TokenConst)
	p.next() // consume let/const

	if !p.curIs(TokenIdent) {
		p.errorf("expected identifier after %s", map[bool]string{true: "const", false: "let"}[isConst])
		return nil
	}
	name := p.cur().Literal
	p.next()

	if !p.expect(TokenAssign) {
		return nil
	}

	value := p.parseExpression()
	if value == nil {
		return nil
	}
	end := p.cur().Pos
	p.expect(TokenSemicolon)

	return &LetStmt{
		SpanVal: MakeSpan(start, end),
		Name:    name,
		Value:   value,
		Const:   isConst,
	}
}

// parseReturn parses a return statement.
func (p *Parser) parseReturn() Stmt {
	start := p.cur().Pos
	p.next() // consume return

	var value Expr
	if !p.curIs(TokenSemicolon) && !p.curIs(TokenBlockClose) && !p.curIs(TokenRBrace) && !p.curIs(TokenEOF) {
		value = p.parseExpression()
	}
	end := p.cur().Pos
	p.expect(TokenSemicolon)

	return &ReturnStmt{SpanVal: MakeSpan(start, end), Value: value}
}

// parseIf parses an if statement with an optional else branch.
func (p *Parser) parseIf() Stmt {
	start := p.cur().Pos
	p.next() // consume if

	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	then, ok := p.parseBlock().(*BlockStmt)
	if !ok {
		return nil
	}

	var elseStmt Stmt
	if p.curIs(TokenElse) {
		p.next()
		if p.curIs(TokenIf) {
			elseStmt = p.parseIf()
		} else {
			elseStmt = p.parseBlock()
		}
	}

	return &IfStmt{
		SpanVal:   MakeSpan(start, p.cur().Pos),
		Condition: cond,
		Then:      then,
		Else:      elseStmt,
	}
}

// parseWhile parses a while loop.
func (p *Parser) parseWhile() Stmt {
	start := p.cur().Pos
	p.next() // consume while

	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	body, ok := p.parseBlock().(*BlockStmt)
	if !ok {
		return nil
	}

	return &WhileStmt{
		SpanVal:   MakeSpan(start, p.cur().Pos),
		Condition: cond,
		Body:      body,
	}
}

// parseBlock parses a braced statement list.
func (p *Parser) parseBlock() Stmt {
	start := p.cur().Pos
	if !p.expect(TokenLBrace) {
		return nil
	}
	stmts := p.parseStatements(TokenRBrace)
	end := p.cur().Pos
	p.expect(TokenRBrace)
	return &BlockStmt{SpanVal: MakeSpan(start, end), Statements: stmts}
}

// parseExprStatement parses an expression statement.
func (p *Parser) parseExprStatement() Stmt {
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	end := p.cur().Pos
	p.expect(TokenSemicolon)
	return &ExprStmt{SpanVal: MakeSpan(expr.Span().Start, end), Expr: expr}
}

// ---------------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------------

// parseExpression parses a single expression.
func (p *Parser) parseExpression() Expr {
	return p.parseAssign()
}

// parseAssign parses an assignment or delegates to the next level.
func (p *Parser) parseAssign() Expr {
	if p.curIs(TokenIdent) && p.peek().Type == TokenAssign {
		start := p.cur().Pos
		name := p.cur().Literal
		p.next() // ident
		p.next() // =
		value := p.parseAssign()
		if value == nil {
			return nil
		}
		return &Assign{SpanVal: MakeSpan(start, value.Span().End), Name: name, Value: value}
	}
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && p.curIs(TokenOrOr) {
		op := p.cur().Type
		p.next()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: spanAcross(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseEquality()
	for left != nil && p.curIs(TokenAndAnd) {
		op := p.cur().Type
		p.next()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: spanAcross(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() Expr {
	left := p.parseComparison()
	for left != nil && (p.curIs(TokenEq) || p.curIs(TokenNotEq)) {
		op := p.cur().Type
		p.next()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: spanAcross(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for left != nil && (p.curIs(TokenLt) || p.curIs(TokenLtEq) || p.curIs(TokenGt) || p.curIs(TokenGtEq)) {
		op := p.cur().Type
		p.next()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: spanAcross(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.curIs(TokenPlus) || p.curIs(TokenMinus)) {
		op := p.cur().Type
		p.next()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: spanAcross(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for left != nil && (p.curIs(TokenStar) || p.curIs(TokenSlash) || p.curIs(TokenPercent)) {
		op := p.cur().Type
		p.next()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &Binary{SpanVal: spanAcross(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	switch p.cur().Type {
	case TokenBang, TokenMinus:
		start := p.cur().Pos
		op := p.cur().Type
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &Unary{SpanVal: MakeSpan(start, operand.Span().End), Op: op, Operand: operand}
	case TokenAwait:
		start := p.cur().Pos
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &Await{SpanVal: MakeSpan(start, operand.Span().End), Operand: operand}
	}
	return p.parsePostfix()
}

// parsePostfix parses call, member, index and tagged construct forms.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()

	for expr != nil {
		switch p.cur().Type {
		case TokenLParen:
			expr = p.parseCall(expr)

		case TokenDot:
			p.next()
			if !p.curIs(TokenIdent) {
				p.errorf("expected property name after '.'")
				return nil
			}
			name := p.cur().Literal
			end := p.cur().Pos
			p.next()
			expr = &Member{SpanVal: MakeSpan(expr.Span().Start, end), Object: expr, Name: name}

		case TokenLBracket:
			p.next()
			key := p.parseExpression()
			if key == nil {
				return nil
			}
			end := p.cur().Pos
			if !p.expect(TokenRBracket) {
				return nil
			}
			expr = &Index{SpanVal: MakeSpan(expr.Span().Start, end), Object: expr, Key: key}

		case TokenBlockOpen:
			// Tagged form f{| body |} ≡ f({| body |}).
			c := p.parseConstruct(nil)
			if c == nil {
				return nil
			}
			expr = &Call{
				SpanVal:   MakeSpan(expr.Span().Start, c.Span().End),
				Callee:    expr,
				Arguments: []Expr{c},
			}

		case TokenLt:
			// Either a captured tagged form f<a, b>{| body |} or a
			// plain comparison. Scan ahead over the token stream; only
			// a full <ident, ...>{| sequence commits to the former.
			names, after := p.scanCaptureList()
			if names == nil {
				return expr
			}
			p.pos = after
			c := p.parseConstruct(names)
			if c == nil {
				return nil
			}
			// f<a, b>{| body |} ≡ f({| body |}, { a, b }), with each
			// binding's current value structurally cloned.
			capObj := &CaptureObject{SpanVal: c.Span(), Names: names}
			expr = &Call{
				SpanVal:   MakeSpan(expr.Span().Start, c.Span().End),
				Callee:    expr,
				Arguments: []Expr{c, capObj},
			}

		default:
			return expr
		}
	}
	return expr
}

// scanCaptureList checks whether the tokens at the current position
// form <ident(, ident)*>{| without consuming anything. On a match it
// returns the capture names and the index of the {| token; otherwise
// it returns (nil, 0).
func (p *Parser) scanCaptureList() ([]string, int) {
	i := p.pos
	if p.tokens[i].Type != TokenLt {
		return nil, 0
	}
	i++

	var names []string
	for {
		if i >= len(p.tokens) || p.tokens[i].Type != TokenIdent {
			return nil, 0
		}
		names = append(names, p.tokens[i].Literal)
		i++
		if i < len(p.tokens) && p.tokens[i].Type == TokenComma {
			i++
			continue
		}
		break
	}

	if i >= len(p.tokens) || p.tokens[i].Type != TokenGt {
		return nil, 0
	}
	i++
	if i >= len(p.tokens) || p.tokens[i].Type != TokenBlockOpen {
		return nil, 0
	}
	return names, i
}

// parseCall parses a call argument list.
func (p *Parser) parseCall(callee Expr) Expr {
	p.next() // consume (

	var args []Expr
	for !p.curIs(TokenRParen) && !p.curIs(TokenEOF) {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.curIs(TokenComma) {
			p.next()
			continue
		}
		break
	}
	end := p.cur().Pos
	if !p.expect(TokenRParen) {
		return nil
	}

	return &Call{SpanVal: MakeSpan(callee.Span().Start, end), Callee: callee, Arguments: args}
}

// parseConstruct parses a {| body |} construct literal. The explicit
// capture names (from an outer <a, b> list) may be nil. The body is
// scope-analyzed and capture-checked immediately; on a capture
// violation no Construct node is produced.
func (p *Parser) parseConstruct(explicit []string) *Construct {
	open := p.cur()
	p.next() // consume {|

	bodyStart := open.Pos.Offset + len("{|")

	p.constructDepth++
	stmts := p.parseStatements(TokenBlockClose)
	p.constructDepth--

	closeTok := p.cur()
	if !p.expect(TokenBlockClose) {
		return nil
	}

	source := ""
	if bodyStart <= closeTok.Pos.Offset && closeTok.Pos.Offset <= len(p.input) {
		source = p.input[bodyStart:closeTok.Pos.Offset]
	}

	body := &Body{SpanVal: MakeSpan(open.Pos, closeTok.Pos), Statements: stmts}

	free, markers := AnalyzeScope(body)
	declared, err := ResolveCaptures(free, explicit, markers)
	if err != nil {
		err.Pos = open.Pos
		if p.capErr == nil {
			p.capErr = err
		}
		return nil
	}

	return &Construct{
		SpanVal:  MakeSpan(open.Pos, closeTok.Pos),
		Body:     body,
		Source:   source,
		Explicit: explicit,
		Markers:  markers,
		Declared: declared,
		Free:     free,
	}
}

// parsePrimary parses literals, identifiers, grouping, array/object
// literals, capture markers and bare construct literals.
func (p *Parser) parsePrimary() Expr {
	tok := p.cur()

	switch tok.Type {
	case TokenInteger:
		p.next()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", tok.Literal)
			return nil
		}
		return &IntLiteral{SpanVal: MakeSpan(tok.Pos, tok.Pos), Value: v}

	case TokenFloat:
		p.next()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("invalid float literal %q", tok.Literal)
			return nil
		}
		return &FloatLiteral{SpanVal: MakeSpan(tok.Pos, tok.Pos), Value: v}

	case TokenString:
		p.next()
		return &StringLiteral{SpanVal: MakeSpan(tok.Pos, tok.Pos), Value: tok.Literal}

	case TokenTrue, TokenFalse:
		p.next()
		return &BoolLiteral{SpanVal: MakeSpan(tok.Pos, tok.Pos), Value: tok.Type == TokenTrue}

	case TokenNull:
		p.next()
		return &NullLiteral{SpanVal: MakeSpan(tok.Pos, tok.Pos)}

	case TokenIdent:
		p.next()
		return &Ident{SpanVal: MakeSpan(tok.Pos, tok.Pos), Name: tok.Literal}

	case TokenDollarBrace:
		return p.parseCaptureRef()

	case TokenLParen:
		p.next()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr

	case TokenLBracket:
		return p.parseArrayLiteral()

	case TokenLBrace:
		return p.parseObjectLiteral()

	case TokenBlockOpen:
		c := p.parseConstruct(nil)
		if c == nil {
			return nil
		}
		return c

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil

	default:
		p.errorf("unexpected token %s", tok.Type)
		return nil
	}
}

// parseCaptureRef parses an inline capture marker ${name}.
func (p *Parser) parseCaptureRef() Expr {
	start := p.cur().Pos
	p.next() // consume ${

	if p.constructDepth == 0 {
		p.errorf("capture marker outside of construct body")
		return nil
	}
	if !p.curIs(TokenIdent) {
		p.errorf("expected identifier inside capture marker")
		return nil
	}
	name := p.cur().Literal
	p.next()

	end := p.cur().Pos
	if !p.expect(TokenRBrace) {
		return nil
	}

	return &CaptureRef{SpanVal: MakeSpan(start, end), Name: name}
}

// parseArrayLiteral parses [a, b, c].
func (p *Parser) parseArrayLiteral() Expr {
	start := p.cur().Pos
	p.next() // consume [

	var elems []Expr
	for !p.curIs(TokenRBracket) && !p.curIs(TokenEOF) {
		elem := p.parseExpression()
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
		if p.curIs(TokenComma) {
			p.next()
			continue
		}
		break
	}
	end := p.cur().Pos
	if !p.expect(TokenRBracket) {
		return nil
	}

	return &ArrayLiteral{SpanVal: MakeSpan(start, end), Elements: elems}
}

// parseObjectLiteral parses {k: v, ...}.
func (p *Parser) parseObjectLiteral() Expr {
	start := p.cur().Pos
	p.next() // consume {

	var keys []string
	var values []Expr
	for !p.curIs(TokenRBrace) && !p.curIs(TokenEOF) {
		if !p.curIs(TokenIdent) && !p.curIs(TokenString) {
			p.errorf("expected object key, got %s", p.cur().Type)
			return nil
		}
		keys = append(keys, p.cur().Literal)
		p.next()

		if !p.expect(TokenColon) {
			return nil
		}
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		values = append(values, value)

		if p.curIs(TokenComma) {
			p.next()
			continue
		}
		break
	}
	end := p.cur().Pos
	if !p.expect(TokenRBrace) {
		return nil
	}

	return &ObjectLiteral{SpanVal: MakeSpan(start, end), Keys: keys, Values: values}
}

// spanAcross joins the spans of two expressions.
func spanAcross(left, right Expr) Span {
	return MakeSpan(left.Span().Start, right.Span().End)
}
