package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for the blok surface language
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// NullLiteral represents the null literal.
type NullLiteral struct {
	SpanVal Span
}

func (n *NullLiteral) Span() Span { return n.SpanVal }
func (n *NullLiteral) node()      {}
func (n *NullLiteral) expr()      {}

// ArrayLiteral represents an array literal [a, b, c].
type ArrayLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ArrayLiteral) Span() Span { return n.SpanVal }
func (n *ArrayLiteral) node()      {}
func (n *ArrayLiteral) expr()      {}

// ObjectLiteral represents an object literal {k: v, ...}.
// Keys and Values are parallel slices in source order.
type ObjectLiteral struct {
	SpanVal Span
	Keys    []string
	Values  []Expr
}

func (n *ObjectLiteral) Span() Span { return n.SpanVal }
func (n *ObjectLiteral) node()      {}
func (n *ObjectLiteral) expr()      {}

// Ident represents an identifier reference.
type Ident struct {
	SpanVal Span
	Name    string
}

func (n *Ident) Span() Span { return n.SpanVal }
func (n *Ident) node()      {}
func (n *Ident) expr()      {}

// CaptureRef represents an inline capture marker ${name}. It declares
// name as a capture of the enclosing construct and evaluates to the
// bound capture value.
type CaptureRef struct {
	SpanVal Span
	Name    string
}

func (n *CaptureRef) Span() Span { return n.SpanVal }
func (n *CaptureRef) node()      {}
func (n *CaptureRef) expr()      {}

// Binary represents a binary operation (a + b, a == b, a && b, ...).
type Binary struct {
	SpanVal Span
	Op      TokenType
	Left    Expr
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Unary represents a prefix operation (!x, -x).
type Unary struct {
	SpanVal Span
	Op      TokenType
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// Call represents a function call f(a, b).
type Call struct {
	SpanVal   Span
	Callee    Expr
	Arguments []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// Member represents property access a.b.
type Member struct {
	SpanVal Span
	Object  Expr
	Name    string
}

func (n *Member) Span() Span { return n.SpanVal }
func (n *Member) node()      {}
func (n *Member) expr()      {}

// Index represents subscript access a[i].
type Index struct {
	SpanVal Span
	Object  Expr
	Key     Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}

// Await represents an await expression.
type Await struct {
	SpanVal Span
	Operand Expr
}

func (n *Await) Span() Span { return n.SpanVal }
func (n *Await) node()      {}
func (n *Await) expr()      {}

// Assign represents an assignment expression x = expr.
type Assign struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) expr()      {}

// Construct represents a blok construct literal {| body |}. Declared,
// Free and Markers are filled in at parse time by the scope analyzer
// and capture resolver; a Construct node with Free ⊄ Declared is never
// built, parsing fails instead.
type Construct struct {
	SpanVal  Span
	Body     *Body
	Source   string   // body source text, verbatim
	Explicit []string // captures from an outer <a, b> list, if any
	Markers  []string // captures from inline ${} markers
	Declared []string // Explicit ∪ Markers, sorted
	Free     []string // free identifiers of Body, sorted
}

func (n *Construct) Span() Span { return n.SpanVal }
func (n *Construct) node()      {}
func (n *Construct) expr()      {}

// CaptureObject represents the implicit { a, b } argument produced by
// desugaring a captured tagged form f<a, b>{| ... |}. Each name's
// current binding is structurally cloned at evaluation time.
type CaptureObject struct {
	SpanVal Span
	Names   []string
}

func (n *CaptureObject) Span() Span { return n.SpanVal }
func (n *CaptureObject) node()      {}
func (n *CaptureObject) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// LetStmt represents a let or const declaration.
type LetStmt struct {
	SpanVal Span
	Name    string
	Value   Expr
	Const   bool
}

func (n *LetStmt) Span() Span { return n.SpanVal }
func (n *LetStmt) node()      {}
func (n *LetStmt) stmt()      {}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr // nil for a bare return
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// IfStmt represents an if statement with an optional else branch.
type IfStmt struct {
	SpanVal   Span
	Condition Expr
	Then      *BlockStmt
	Else      Stmt // *BlockStmt, *IfStmt (else if), or nil
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// WhileStmt represents a while loop.
type WhileStmt struct {
	SpanVal   Span
	Condition Expr
	Body      *BlockStmt
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// BlockStmt represents a braced statement list, opening a new scope.
type BlockStmt struct {
	SpanVal    Span
	Statements []Stmt
}

func (n *BlockStmt) Span() Span { return n.SpanVal }
func (n *BlockStmt) node()      {}
func (n *BlockStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Body is the statement list of a construct body or a top-level program.
type Body struct {
	SpanVal    Span
	Statements []Stmt
}

func (n *Body) Span() Span { return n.SpanVal }
func (n *Body) node()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// ZeroSpan returns an empty span.
func ZeroSpan() Span {
	return Span{}
}
