package runtime

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Runtime error taxonomy
// ---------------------------------------------------------------------------
//
// Parse-time failures (SyntaxError, CaptureError) live in the compiler
// package; everything below is reported at binding, reification or
// transfer time. All of these surface synchronously at the offending
// operation and are never silently recovered. Errors raised by a
// reified body during execution are ordinary errors flowing through
// the Future and are not part of this taxonomy.

// CloneError reports a captured value that cannot be structurally
// cloned. Capture names the offending capture binding.
type CloneError struct {
	Capture string
	Reason  string
}

func (e *CloneError) Error() string {
	if e.Capture == "" {
		return fmt.Sprintf("clone error: %s", e.Reason)
	}
	return fmt.Sprintf("clone error: capture '%s': %s", e.Capture, e.Reason)
}

// IncompleteReificationError reports a reify call whose combined
// bindings are a strict subset of the declared captures. Missing is
// sorted and names every absent identifier.
type IncompleteReificationError struct {
	Missing []string
}

func (e *IncompleteReificationError) Error() string {
	return fmt.Sprintf("incomplete reification: missing captures %s", quoteJoin(e.Missing))
}

// UnexpectedBindingError reports a reify call (or handle construction)
// that supplies bindings outside the declared capture set, or
// re-supplies a capture the handle already carries.
type UnexpectedBindingError struct {
	Extra []string
}

func (e *UnexpectedBindingError) Error() string {
	return fmt.Sprintf("unexpected bindings %s", quoteJoin(e.Extra))
}

// TransferConsumedError reports any operation on a handle whose
// usability has moved away: the handle is mid-transfer or consumed.
// This state is permanent once the transfer is confirmed.
type TransferConsumedError struct {
	HandleID string
}

func (e *TransferConsumedError) Error() string {
	return fmt.Sprintf("handle %s has been transferred and is no longer usable", e.HandleID)
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
