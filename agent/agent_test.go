package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chazu/blok/compiler"
	"github.com/chazu/blok/runtime"
)

func TestAgentSerializesWork(t *testing.T) {
	a := New("test")
	defer a.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		a.Submit(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d; run queue should preserve submission order", i, got)
		}
	}
}

func TestAgentDo(t *testing.T) {
	a := New("test")
	defer a.Stop()

	v, err := a.Do(func() (interface{}, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if v != 42 {
		t.Errorf("got %v, want 42", v)
	}

	boom := errors.New("boom")
	if _, err := a.Do(func() (interface{}, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
}

func TestAgentRecoversFromPanic(t *testing.T) {
	a := New("test")
	defer a.Stop()

	a.Submit(func() { panic("misbehaving body") })

	// The agent must survive and keep processing.
	v, err := a.Do(func() (interface{}, error) { return "alive", nil })
	if err != nil {
		t.Fatalf("do after panic: %v", err)
	}
	if v != "alive" {
		t.Errorf("got %v, want alive", v)
	}
}

func TestAgentStopDrainsQueue(t *testing.T) {
	a := New("test")

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		a.Submit(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	a.Stop()

	mu.Lock()
	defer mu.Unlock()
	if ran != 5 {
		t.Errorf("ran %d of 5 queued functions before stopping", ran)
	}
}

func TestAgentSubmitAfterStop(t *testing.T) {
	a := New("test")
	a.Stop()

	// Must not block or panic.
	a.Submit(func() { t.Error("work ran on a stopped agent") })
	a.Stop() // idempotent
}

func TestPoolSize(t *testing.T) {
	p := NewPool(3)
	defer p.Stop()
	if p.Size() != 3 {
		t.Errorf("size = %d, want 3", p.Size())
	}

	clamped := NewPool(0)
	defer clamped.Stop()
	if clamped.Size() != 1 {
		t.Errorf("size = %d, want 1 after clamping", clamped.Size())
	}
}

func TestPoolMove(t *testing.T) {
	p := NewPool(2)
	defer p.Stop()

	res, err := compiler.CompileBody("return n + 1;", []string{"n"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	h, err := runtime.NewHandle(runtime.NewDefinition(res), nil, p.Agent(0))
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}

	moved, err := p.Move(h, 1)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if h.State() != runtime.StateConsumed {
		t.Errorf("origin state = %s, want consumed", h.State())
	}

	task, err := moved.Reify(map[string]runtime.Value{"n": int64(41)})
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := task.Invoke(ctx).Await(ctx)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if v != int64(42) {
		t.Errorf("got %v, want 42", v)
	}
}

func TestPoolMoveOutOfRange(t *testing.T) {
	p := NewPool(1)
	defer p.Stop()

	res, err := compiler.CompileBody("return 1;", nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	h, err := runtime.NewHandle(runtime.NewDefinition(res), nil, nil)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}

	if _, err := p.Move(h, 5); err == nil {
		t.Fatal("expected out-of-range error")
	}
	// A failed move must not consume the handle.
	if h.State() != runtime.StateLocal {
		t.Errorf("state = %s, want local", h.State())
	}
}
