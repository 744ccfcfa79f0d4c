package compiler

// ---------------------------------------------------------------------------
// Compile entry points
// ---------------------------------------------------------------------------

// Result is a successfully validated construct body. Declared always
// contains Free as a subset; a Result violating that is never built.
type Result struct {
	Body     *Body
	Source   string
	Declared []string // Explicit ∪ Markers, sorted
	Free     []string // free identifiers, sorted
	Markers  []string // names declared via inline ${} markers, sorted
}

// CompileBody parses source as a construct body and validates it
// against the explicit capture list. The error is a *SyntaxError for
// malformed source or a *CaptureError for an undeclared free variable.
func CompileBody(source string, explicit []string) (*Result, error) {
	p := NewParser(source)
	p.constructDepth = 1 // body context: ${} markers are legal
	stmts := p.parseStatements()
	if err := p.Err(); err != nil {
		return nil, err
	}

	body := &Body{Statements: stmts}
	if len(stmts) > 0 {
		body.SpanVal = MakeSpan(stmts[0].Span().Start, stmts[len(stmts)-1].Span().End)
	}

	free, markers := AnalyzeScope(body)
	declared, capErr := ResolveCaptures(free, explicit, markers)
	if capErr != nil {
		return nil, capErr
	}

	return &Result{
		Body:     body,
		Source:   source,
		Declared: declared,
		Free:     free,
		Markers:  markers,
	}, nil
}

// ParseProgram parses a top-level program: a statement list in the
// same grammar as construct bodies, except that capture markers are
// only legal inside {| |} literals.
func ParseProgram(source string) (*Body, error) {
	p := NewParser(source)
	stmts := p.parseStatements()
	if err := p.Err(); err != nil {
		return nil, err
	}

	body := &Body{Statements: stmts}
	if len(stmts) > 0 {
		body.SpanVal = MakeSpan(stmts[0].Span().Start, stmts[len(stmts)-1].Span().End)
	}
	return body, nil
}
