package runtime

import (
	"context"
	"sync"
)

// ---------------------------------------------------------------------------
// Future: eventual completion of a reified body
// ---------------------------------------------------------------------------

// Future is the result of invoking a reified callable. It settles
// exactly once: fulfilled with the body's returned value or rejected
// with the error it raised.
type Future struct {
	done chan struct{}
	once sync.Once

	value Value
	err   error
}

// NewFuture creates an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve fulfills the future. Settling is first-wins; later calls to
// Resolve or Reject are ignored.
func (f *Future) Resolve(v Value) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Reject settles the future with an error.
func (f *Future) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or the context is done.
func (f *Future) Await(ctx context.Context) (Value, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the future has settled, without blocking.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
