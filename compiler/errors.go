package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Parse-time error taxonomy
// ---------------------------------------------------------------------------

// SyntaxError reports malformed source. It is fatal and carries the
// position of the first offending token.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// CaptureError reports free identifiers of a construct body that are
// absent from its declared capture set. Names is sorted and never empty.
type CaptureError struct {
	Pos   Position
	Names []string
}

func (e *CaptureError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("capture error at line %d: variable '%s' is not declared as a capture", e.Pos.Line, e.Names[0])
	}
	return fmt.Sprintf("capture error at line %d: variables %s are not declared as captures", e.Pos.Line, quoteJoin(e.Names))
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
