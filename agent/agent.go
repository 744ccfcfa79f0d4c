// Package agent provides single-threaded cooperative execution
// contexts. Each agent owns one goroutine draining a run queue; every
// body reified against an agent executes there, so two agents never
// share memory and all cross-agent movement goes through the transfer
// codec.
package agent

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("blok.agent")

// Agent serializes all execution through a single goroutine. It
// implements runtime.Submitter.
type Agent struct {
	name     string
	requests chan func()
	quit     chan struct{}
	done     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New creates an Agent and starts its processing goroutine.
func New(name string) *Agent {
	a := &Agent{
		name:     name,
		requests: make(chan func(), 64),
		quit:     make(chan struct{}),
	}
	a.done.Add(1)
	go a.loop()
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// loop drains queued work sequentially on the agent goroutine.
func (a *Agent) loop() {
	defer a.done.Done()
	for {
		select {
		case fn := <-a.requests:
			a.run(fn)
		case <-a.quit:
			// Drain anything already queued before exiting.
			for {
				select {
				case fn := <-a.requests:
					a.run(fn)
				default:
					return
				}
			}
		}
	}
}

// run executes one queued function, recovering from panics so a
// misbehaving body cannot take the agent down.
func (a *Agent) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("agent %s: recovered from panic: %v", a.name, r)
		}
	}()
	fn()
}

// Submit enqueues work on the agent's run queue. It blocks if the
// queue is full and is a no-op after Stop.
func (a *Agent) Submit(fn func()) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		log.Warningf("agent %s: submit after stop dropped", a.name)
		return
	}
	a.mu.Unlock()

	select {
	case a.requests <- fn:
	case <-a.quit:
	}
}

// Do submits a function and blocks until it has run, returning its
// result.
func (a *Agent) Do(fn func() (interface{}, error)) (interface{}, error) {
	type result struct {
		value interface{}
		err   error
	}
	done := make(chan result, 1)
	a.Submit(func() {
		v, err := fn()
		done <- result{v, err}
	})

	select {
	case r := <-done:
		return r.value, r.err
	case <-a.quit:
		return nil, fmt.Errorf("agent %s stopped", a.name)
	}
}

// Stop shuts down the agent goroutine after draining queued work.
func (a *Agent) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()

	close(a.quit)
	a.done.Wait()
}
