package runtime

import "fmt"

// ---------------------------------------------------------------------------
// Structural clone
// ---------------------------------------------------------------------------

// maxCloneDepth bounds recursion so that cyclic or pathologically deep
// values fail with a CloneError instead of exhausting the stack.
const maxCloneDepth = 512

// Clone deep-copies a value over the structurally clonable domain. The
// result shares no mutable state with the input: mutating the original
// after cloning never changes what the clone observes.
func Clone(v Value) (Value, error) {
	return cloneDepth(v, 0)
}

// CloneCapture clones a capture binding's value, attributing any
// failure to the named capture.
func CloneCapture(name string, v Value) (Value, error) {
	c, err := cloneDepth(v, 0)
	if err != nil {
		if ce, ok := err.(*CloneError); ok {
			return nil, &CloneError{Capture: name, Reason: ce.Reason}
		}
		return nil, err
	}
	return c, nil
}

func cloneDepth(v Value, depth int) (Value, error) {
	if depth > maxCloneDepth {
		return nil, &CloneError{Reason: "value is too deeply nested (possible cycle)"}
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string:
		return x, nil
	case []byte:
		c := make([]byte, len(x))
		copy(c, x)
		return c, nil
	case []Value:
		c := make([]Value, len(x))
		for i, elem := range x {
			ce, err := cloneDepth(elem, depth+1)
			if err != nil {
				return nil, err
			}
			c[i] = ce
		}
		return c, nil
	case map[string]Value:
		c := make(map[string]Value, len(x))
		for k, elem := range x {
			ce, err := cloneDepth(elem, depth+1)
			if err != nil {
				return nil, err
			}
			c[k] = ce
		}
		return c, nil
	default:
		return nil, &CloneError{Reason: fmt.Sprintf("value of type %s is not structurally clonable", TypeName(v))}
	}
}
