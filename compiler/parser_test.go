package compiler

import (
	"errors"
	"testing"
)

// parseExprFromProgram parses a single expression statement and
// returns its expression.
func parseExprFromProgram(t *testing.T, input string) Expr {
	t.Helper()
	body, err := ParseProgram(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	if len(body.Statements) != 1 {
		t.Fatalf("parse %q: %d statements, want 1", input, len(body.Statements))
	}
	es, ok := body.Statements[0].(*ExprStmt)
	if !ok {
		t.Fatalf("parse %q: expected ExprStmt, got %T", input, body.Statements[0])
	}
	return es.Expr
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		check func(Expr) bool
		desc  string
	}{
		{"42;", func(e Expr) bool { return e.(*IntLiteral).Value == 42 }, "integer"},
		{"3.14;", func(e Expr) bool { return e.(*FloatLiteral).Value == 3.14 }, "float"},
		{`"hello";`, func(e Expr) bool { return e.(*StringLiteral).Value == "hello" }, "string"},
		{"true;", func(e Expr) bool { return e.(*BoolLiteral).Value == true }, "true"},
		{"false;", func(e Expr) bool { return e.(*BoolLiteral).Value == false }, "false"},
		{"null;", func(e Expr) bool { _, ok := e.(*NullLiteral); return ok }, "null"},
		{"foo;", func(e Expr) bool { return e.(*Ident).Name == "foo" }, "identifier"},
	}

	for _, tc := range tests {
		expr := parseExprFromProgram(t, tc.input)
		if !tc.check(expr) {
			t.Errorf("%s: check failed for %q", tc.desc, tc.input)
		}
	}
}

func TestParserPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3).
	expr := parseExprFromProgram(t, "1 + 2 * 3;")
	bin, ok := expr.(*Binary)
	if !ok || bin.Op != TokenPlus {
		t.Fatalf("expected top-level +, got %T", expr)
	}
	right, ok := bin.Right.(*Binary)
	if !ok || right.Op != TokenStar {
		t.Fatalf("expected * on the right, got %T", bin.Right)
	}
}

func TestParserComparisonNotCaptureList(t *testing.T) {
	// a < b stays a comparison even though < can open a capture list.
	expr := parseExprFromProgram(t, "a < b;")
	bin, ok := expr.(*Binary)
	if !ok || bin.Op != TokenLt {
		t.Fatalf("expected <, got %T", expr)
	}
}

func TestParserStatements(t *testing.T) {
	input := `
		let x = 1;
		const y = 2;
		x = x + y;
		if (x > 2) { return x; } else { return y; }
	`
	body, err := ParseProgram(input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(body.Statements) != 4 {
		t.Fatalf("got %d statements, want 4", len(body.Statements))
	}

	let, ok := body.Statements[0].(*LetStmt)
	if !ok || let.Name != "x" || let.Const {
		t.Errorf("statement 0: expected let x, got %+v", body.Statements[0])
	}
	konst, ok := body.Statements[1].(*LetStmt)
	if !ok || konst.Name != "y" || !konst.Const {
		t.Errorf("statement 1: expected const y, got %+v", body.Statements[1])
	}
	ifStmt, ok := body.Statements[3].(*IfStmt)
	if !ok {
		t.Fatalf("statement 3: expected if, got %T", body.Statements[3])
	}
	if ifStmt.Else == nil {
		t.Error("if statement lost its else branch")
	}
}

func TestParserWhile(t *testing.T) {
	body, err := ParseProgram(`let i = 0; while (i < 10) { i = i + 1; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, ok := body.Statements[1].(*WhileStmt); !ok {
		t.Fatalf("expected while, got %T", body.Statements[1])
	}
}

func TestParserBareConstruct(t *testing.T) {
	expr := parseExprFromProgram(t, "{| return 1+1; |};")
	c, ok := expr.(*Construct)
	if !ok {
		t.Fatalf("expected Construct, got %T", expr)
	}
	if len(c.Declared) != 0 {
		t.Errorf("declared = %v, want empty", c.Declared)
	}
	if len(c.Body.Statements) != 1 {
		t.Errorf("body statements = %d, want 1", len(c.Body.Statements))
	}
	if c.Source != " return 1+1; " {
		t.Errorf("source = %q", c.Source)
	}
}

func TestParserTaggedConstructDesugar(t *testing.T) {
	// f{| return 1; |} ≡ f({| return 1; |})
	expr := parseExprFromProgram(t, "f{| return 1; |};")
	call, ok := expr.(*Call)
	if !ok {
		t.Fatalf("expected Call, got %T", expr)
	}
	if ident, ok := call.Callee.(*Ident); !ok || ident.Name != "f" {
		t.Fatalf("callee = %+v, want f", call.Callee)
	}
	if len(call.Arguments) != 1 {
		t.Fatalf("arguments = %d, want 1", len(call.Arguments))
	}
	if _, ok := call.Arguments[0].(*Construct); !ok {
		t.Fatalf("argument 0 = %T, want Construct", call.Arguments[0])
	}
}

func TestParserCapturedTaggedConstructDesugar(t *testing.T) {
	// f<a, b>{| return a+b; |} ≡ f({| return a+b; |}, { a, b })
	expr := parseExprFromProgram(t, "f<a, b>{| return a+b; |};")
	call, ok := expr.(*Call)
	if !ok {
		t.Fatalf("expected Call, got %T", expr)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("arguments = %d, want 2", len(call.Arguments))
	}

	c, ok := call.Arguments[0].(*Construct)
	if !ok {
		t.Fatalf("argument 0 = %T, want Construct", call.Arguments[0])
	}
	if len(c.Declared) != 2 || c.Declared[0] != "a" || c.Declared[1] != "b" {
		t.Errorf("declared = %v, want [a b]", c.Declared)
	}

	obj, ok := call.Arguments[1].(*CaptureObject)
	if !ok {
		t.Fatalf("argument 1 = %T, want CaptureObject", call.Arguments[1])
	}
	if len(obj.Names) != 2 || obj.Names[0] != "a" || obj.Names[1] != "b" {
		t.Errorf("capture object names = %v, want [a b]", obj.Names)
	}
}

func TestParserNestedConstruct(t *testing.T) {
	expr := parseExprFromProgram(t, "{| let inner = {| return 1; |}; return inner; |};")
	c, ok := expr.(*Construct)
	if !ok {
		t.Fatalf("expected Construct, got %T", expr)
	}
	if len(c.Free) != 0 {
		t.Errorf("outer free = %v, want empty", c.Free)
	}
}

func TestParserCaptureMarker(t *testing.T) {
	expr := parseExprFromProgram(t, "{| return ${endpoint}; |};")
	c := expr.(*Construct)
	if len(c.Markers) != 1 || c.Markers[0] != "endpoint" {
		t.Errorf("markers = %v, want [endpoint]", c.Markers)
	}
	if len(c.Declared) != 1 || c.Declared[0] != "endpoint" {
		t.Errorf("declared = %v, want [endpoint]", c.Declared)
	}
}

func TestParserCaptureMarkerOutsideConstruct(t *testing.T) {
	_, err := ParseProgram("let x = ${y};")
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestParserUndeclaredCaptureFails(t *testing.T) {
	_, err := ParseProgram("{| return secret; |};")
	var capErr *CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CaptureError, got %v", err)
	}
	if len(capErr.Names) != 1 || capErr.Names[0] != "secret" {
		t.Errorf("names = %v, want [secret]", capErr.Names)
	}
}

func TestParserSyntaxErrors(t *testing.T) {
	tests := []string{
		"let = 1;",
		"{| return 1+1;", // unterminated construct
		"if x { }",
		"let x 1;",
		"f(1, ;",
	}

	for _, input := range tests {
		_, err := ParseProgram(input)
		if err == nil {
			t.Errorf("parse %q: expected error, got none", input)
			continue
		}
		var synErr *SyntaxError
		if !errors.As(err, &synErr) {
			t.Errorf("parse %q: expected SyntaxError, got %T", input, err)
		}
	}
}

func TestParserArrayAndObjectLiterals(t *testing.T) {
	expr := parseExprFromProgram(t, `[1, "two", {a: 3}];`)
	arr, ok := expr.(*ArrayLiteral)
	if !ok {
		t.Fatalf("expected ArrayLiteral, got %T", expr)
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("elements = %d, want 3", len(arr.Elements))
	}
	obj, ok := arr.Elements[2].(*ObjectLiteral)
	if !ok {
		t.Fatalf("element 2 = %T, want ObjectLiteral", arr.Elements[2])
	}
	if len(obj.Keys) != 1 || obj.Keys[0] != "a" {
		t.Errorf("object keys = %v, want [a]", obj.Keys)
	}
}

func TestParserMemberIndexCall(t *testing.T) {
	expr := parseExprFromProgram(t, `console.log(items[0]);`)
	call, ok := expr.(*Call)
	if !ok {
		t.Fatalf("expected Call, got %T", expr)
	}
	member, ok := call.Callee.(*Member)
	if !ok || member.Name != "log" {
		t.Fatalf("callee = %T, want Member log", call.Callee)
	}
	if _, ok := call.Arguments[0].(*Index); !ok {
		t.Fatalf("argument = %T, want Index", call.Arguments[0])
	}
}

func TestParserAwait(t *testing.T) {
	expr := parseExprFromProgram(t, "await work;")
	aw, ok := expr.(*Await)
	if !ok {
		t.Fatalf("expected Await, got %T", expr)
	}
	if ident, ok := aw.Operand.(*Ident); !ok || ident.Name != "work" {
		t.Errorf("operand = %+v, want work", aw.Operand)
	}
}
