package agent

import (
	"fmt"

	"github.com/chazu/blok/runtime"
	"github.com/chazu/blok/transfer"
)

// Pool manages a fixed set of agents. Handles move between agents via
// the transfer codec, never by sharing.
type Pool struct {
	agents []*Agent
}

// NewPool creates and starts n agents. n is clamped to at least 1.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{agents: make([]*Agent, n)}
	for i := range p.agents {
		p.agents[i] = New(fmt.Sprintf("agent-%d", i))
	}
	log.Infof("started pool of %d agents", n)
	return p
}

// Size returns the number of agents in the pool.
func (p *Pool) Size() int { return len(p.agents) }

// Agent returns the i'th agent.
func (p *Pool) Agent(i int) *Agent { return p.agents[i] }

// Move transfers a handle into the i'th agent's context. The origin
// handle is consumed on success; the returned handle is a fresh Local
// handle owned by the destination agent.
func (p *Pool) Move(h *runtime.Handle, i int) (*runtime.Handle, error) {
	if i < 0 || i >= len(p.agents) {
		return nil, fmt.Errorf("agent index %d out of range [0, %d)", i, len(p.agents))
	}
	dest, err := transfer.Move(h, p.agents[i])
	if err != nil {
		return nil, err
	}
	log.Debugf("moved handle %s to %s as %s", h.ID(), p.agents[i].Name(), dest.ID())
	return dest, nil
}

// Stop shuts down every agent in the pool.
func (p *Pool) Stop() {
	for _, a := range p.agents {
		a.Stop()
	}
}
