package runtime

import (
	"context"
	"sort"
)

// ---------------------------------------------------------------------------
// Task: the invocable unit of work produced by reification
// ---------------------------------------------------------------------------

// Submitter schedules work onto a single-threaded execution context's
// run queue. agent.Agent is the canonical implementation.
type Submitter interface {
	Submit(fn func())
}

// Task is a reified callable: a definition plus a complete, cloned set
// of capture values. A task exposes exactly one operation: Invoke with
// no further arguments.
type Task struct {
	def      *Definition
	captures map[string]Value
	runner   Submitter
}

// Captures returns the capture names bound in this task, sorted.
func (t *Task) Captures() []string {
	names := make([]string, 0, len(t.captures))
	for name := range t.captures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke schedules the body for execution with each declared capture
// bound to its resolved value and returns a future settled by the
// body's completion: fulfilled with its returned value or rejected
// with the error it raised. The context bounds scheduling and awaiting
// inside the body, not the task's queue position.
//
// Each Invoke is independent: tasks reified from the same handle
// observe the same capture values (copies) and do not interfere.
func (t *Task) Invoke(ctx context.Context) *Future {
	f := NewFuture()

	run := func() {
		// Each invocation evaluates over its own copy of the captures
		// so that one run's mutations are invisible to the next.
		captures := make(map[string]Value, len(t.captures))
		for name, v := range t.captures {
			c, err := Clone(v)
			if err != nil {
				f.Reject(err)
				return
			}
			captures[name] = c
		}

		interp := NewInterp(t.runner)
		v, err := interp.runBody(ctx, t.def, captures)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}

	if t.runner != nil {
		t.runner.Submit(run)
	} else {
		go run()
	}
	return f
}
