package compiler

import "sort"

// ---------------------------------------------------------------------------
// Scope Analyzer: free-variable computation for construct bodies
// ---------------------------------------------------------------------------

// intrinsicGlobals are names resolvable in any execution context. They
// never count as free variables of a construct body.
var intrinsicGlobals = map[string]bool{
	"console":   true,
	"Math":      true,
	"JSON":      true,
	"Promise":   true,
	"fetch":     true,
	"undefined": true,
	"NaN":       true,
	"Infinity":  true,
	"parseInt":  true,
	"parseFloat": true,
}

// IsIntrinsicGlobal reports whether name resolves as a language
// intrinsic in every context.
func IsIntrinsicGlobal(name string) bool {
	return intrinsicGlobals[name]
}

// scopeAnalyzer walks a body and computes the set of identifiers that
// are referenced but not bound by the body's own declarations. Nested
// construct bodies are opaque: their free variables are their own
// problem and contribute nothing to the enclosing body.
type scopeAnalyzer struct {
	scopes  []map[string]bool // innermost last
	free    map[string]bool
	markers map[string]bool
}

// AnalyzeScope computes the free identifiers and inline capture marker
// names of a body. Both result slices are sorted. The walk is a pure
// function of the AST; it has no side effects.
func AnalyzeScope(body *Body) (free []string, markers []string) {
	a := &scopeAnalyzer{
		free:    make(map[string]bool),
		markers: make(map[string]bool),
	}
	a.pushScope()
	a.walkStmts(body.Statements)
	a.popScope()
	return sortedNames(a.free), sortedNames(a.markers)
}

func (a *scopeAnalyzer) pushScope() {
	a.scopes = append(a.scopes, make(map[string]bool))
}

func (a *scopeAnalyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *scopeAnalyzer) declare(name string) {
	a.scopes[len(a.scopes)-1][name] = true
}

func (a *scopeAnalyzer) bound(name string) bool {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if a.scopes[i][name] {
			return true
		}
	}
	return false
}

// reference records an identifier use. A name is free unless it is
// lexically bound, satisfied by a capture marker, or an intrinsic.
func (a *scopeAnalyzer) reference(name string) {
	if a.bound(name) || a.markers[name] || intrinsicGlobals[name] {
		return
	}
	a.free[name] = true
}

func (a *scopeAnalyzer) walkStmts(stmts []Stmt) {
	for _, stmt := range stmts {
		a.walkStmt(stmt)
	}
}

func (a *scopeAnalyzer) walkStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *ExprStmt:
		a.walkExpr(st.Expr)
	case *LetStmt:
		// The initializer is evaluated before the name is bound, so
		// `let x = x;` leaves the right-hand x free.
		a.walkExpr(st.Value)
		a.declare(st.Name)
	case *ReturnStmt:
		if st.Value != nil {
			a.walkExpr(st.Value)
		}
	case *IfStmt:
		a.walkExpr(st.Condition)
		a.walkBlock(st.Then)
		if st.Else != nil {
			a.walkStmt(st.Else)
		}
	case *WhileStmt:
		a.walkExpr(st.Condition)
		a.walkBlock(st.Body)
	case *BlockStmt:
		a.walkBlock(st)
	}
}

func (a *scopeAnalyzer) walkBlock(block *BlockStmt) {
	a.pushScope()
	a.walkStmts(block.Statements)
	a.popScope()
}

func (a *scopeAnalyzer) walkExpr(expr Expr) {
	switch e := expr.(type) {
	case *Ident:
		a.reference(e.Name)
	case *CaptureRef:
		a.markers[e.Name] = true
		delete(a.free, e.Name)
	case *Assign:
		a.walkExpr(e.Value)
		a.reference(e.Name)
	case *Binary:
		a.walkExpr(e.Left)
		a.walkExpr(e.Right)
	case *Unary:
		a.walkExpr(e.Operand)
	case *Await:
		a.walkExpr(e.Operand)
	case *Call:
		a.walkExpr(e.Callee)
		for _, arg := range e.Arguments {
			a.walkExpr(arg)
		}
	case *Member:
		a.walkExpr(e.Object)
	case *Index:
		a.walkExpr(e.Object)
		a.walkExpr(e.Key)
	case *ArrayLiteral:
		for _, elem := range e.Elements {
			a.walkExpr(elem)
		}
	case *ObjectLiteral:
		for _, v := range e.Values {
			a.walkExpr(v)
		}
	case *CaptureObject:
		// Produced by desugaring an enclosing tagged form; the names
		// read the enclosing scope at evaluation time.
		for _, name := range e.Names {
			a.reference(name)
		}
	case *Construct:
		// Opaque. An outer construct is never responsible for an
		// inner construct's captures.
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *NullLiteral:
		// OK
	}
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
