package compiler

import "sort"

// ---------------------------------------------------------------------------
// Capture Resolver: declared-capture reconciliation
// ---------------------------------------------------------------------------

// ResolveCaptures unifies the two surface forms for declaring captures
// (an explicit <a, b> list and inline ${} markers) into one declared
// set, then verifies that every free variable of the body is declared.
//
// A declared capture that is never referenced is permitted; it simply
// becomes an unused but required binding. Any free variable absent from
// the declared set fails with a CaptureError naming every offender.
func ResolveCaptures(free, explicit, markers []string) ([]string, *CaptureError) {
	declared := make(map[string]bool, len(explicit)+len(markers))
	for _, name := range explicit {
		declared[name] = true
	}
	for _, name := range markers {
		declared[name] = true
	}

	var missing []string
	for _, name := range free {
		if !declared[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &CaptureError{Names: missing}
	}

	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
