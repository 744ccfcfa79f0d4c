package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: the runtime value domain
// ---------------------------------------------------------------------------

// Value is any runtime value. The structurally clonable domain is:
// nil, bool, int64, float64, string, []byte, []Value and
// map[string]Value. Handles, futures and Go functions are valid
// runtime values but are not clonable and therefore cannot be
// captured or transferred.
type Value = interface{}

// GoFunc is a host function callable from blok code.
type GoFunc func(args []Value) (Value, error)

// Truthy reports the boolean interpretation of a value.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// TypeName returns a human-readable name for a value's type.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64, float64:
		return "number"
	case string:
		return "string"
	case []byte:
		return "bytes"
	case []Value:
		return "array"
	case map[string]Value:
		return "object"
	case *Handle:
		return "handle"
	case *Future:
		return "future"
	case GoFunc:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Display formats a value for user-facing output.
func Display(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case []byte:
		return fmt.Sprintf("%x", x)
	case []Value:
		parts := make([]string, len(x))
		for i, elem := range x {
			parts[i] = Display(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]Value:
		parts := make([]string, 0, len(x))
		for _, k := range sortedKeys(x) {
			parts = append(parts, k+": "+Display(x[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Handle:
		return "<handle " + x.ID().String() + ">"
	case *Future:
		return "<future>"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
