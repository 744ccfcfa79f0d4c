package runtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Handle: the opaque, transferable wrapper around a Definition
// ---------------------------------------------------------------------------

// TransferState tracks where a handle's usability lives.
type TransferState int

const (
	// StateLocal means the handle is usable in this context.
	StateLocal TransferState = iota
	// StateTransferred means an encode is in flight; the handle is
	// not usable while the destination has not confirmed receipt.
	StateTransferred
	// StateConsumed is terminal: the destination confirmed receipt
	// and exactly one usable handle exists, elsewhere.
	StateConsumed
)

func (s TransferState) String() string {
	switch s {
	case StateLocal:
		return "local"
	case StateTransferred:
		return "transferred"
	case StateConsumed:
		return "consumed"
	}
	return "unknown"
}

// Handle wraps a shared Definition plus zero or more already-bound
// capture values. It is opaque by design: callers can query capture
// names and completeness but never the body source, so a handle cannot
// be treated as a string or re-parsed.
//
// All state transitions go through the handle's mutex, so a transfer
// is atomic with respect to usability: no concurrent operation can
// slip in between encode and consumption.
type Handle struct {
	mu       sync.Mutex
	id       uuid.UUID
	def      *Definition
	provided map[string]Value
	state    TransferState
	runner   Submitter
}

// NewHandle creates a Local handle over a definition. Each provided
// capture value is structurally cloned at bind time; a value outside
// the clonable domain fails with a CloneError naming the capture, and
// a name outside the declared set fails with an UnexpectedBindingError.
func NewHandle(def *Definition, provided map[string]Value, runner Submitter) (*Handle, error) {
	var extra []string
	for name := range provided {
		if !def.declares(name) {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &UnexpectedBindingError{Extra: extra}
	}

	bound := make(map[string]Value, len(provided))
	for name, v := range provided {
		c, err := CloneCapture(name, v)
		if err != nil {
			return nil, err
		}
		bound[name] = c
	}

	return &Handle{
		id:       uuid.New(),
		def:      def,
		provided: bound,
		runner:   runner,
	}, nil
}

// ID returns the handle's identity.
func (h *Handle) ID() uuid.UUID { return h.id }

// Declared returns the declared capture names, sorted.
func (h *Handle) Declared() []string { return h.def.Declared() }

// Provided returns the names of already-bound captures, sorted.
func (h *Handle) Provided() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.provided))
	for name := range h.provided {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Complete reports whether every declared capture has a bound value.
func (h *Handle) Complete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.provided) == len(h.def.declared)
}

// State returns the handle's transfer state.
func (h *Handle) State() TransferState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Transferable reports whether the handle is eligible for transfer.
func (h *Handle) Transferable() bool {
	return h.State() == StateLocal
}

// usableLocked reports a TransferConsumedError unless the handle is
// Local. Callers hold h.mu.
func (h *Handle) usableLocked() error {
	if h.state != StateLocal {
		return &TransferConsumedError{HandleID: h.id.String()}
	}
	return nil
}

// Reify combines the handle's bound captures with the supplied
// bindings and returns an invocable Task. The union must cover the
// declared capture set exactly: a superset (including re-supplying an
// already-bound capture) fails with UnexpectedBindingError, a strict
// subset with IncompleteReificationError naming every missing name.
//
// Reify is idempotent and side-effect-free on the handle: it may be
// called any number of times, each call producing an independent
// callable over freshly cloned capture values.
func (h *Handle) Reify(bindings map[string]Value) (*Task, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.usableLocked(); err != nil {
		return nil, err
	}

	var extra []string
	for name := range bindings {
		if !h.def.declares(name) {
			extra = append(extra, name)
			continue
		}
		if _, dup := h.provided[name]; dup {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &UnexpectedBindingError{Extra: extra}
	}

	var missing []string
	for _, name := range h.def.declared {
		if _, ok := h.provided[name]; ok {
			continue
		}
		if _, ok := bindings[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return nil, &IncompleteReificationError{Missing: missing}
	}

	captures := make(map[string]Value, len(h.def.declared))
	for name, v := range h.provided {
		c, err := CloneCapture(name, v)
		if err != nil {
			return nil, err
		}
		captures[name] = c
	}
	for name, v := range bindings {
		c, err := CloneCapture(name, v)
		if err != nil {
			return nil, err
		}
		captures[name] = c
	}

	return &Task{
		def:      h.def,
		captures: captures,
		runner:   h.runner,
	}, nil
}

// ---------------------------------------------------------------------------
// Transfer state machine
// ---------------------------------------------------------------------------

// HandleSnapshot is the encodable content of a handle: everything the
// destination context needs to rebuild an equivalent Local handle.
type HandleSnapshot struct {
	Source   string
	Declared []string
	Provided map[string]Value
}

// BeginTransfer atomically moves a Local handle to Transferred and
// returns a snapshot of its content with every provided capture value
// independently cloned. A non-clonable capture fails with a CloneError
// and leaves the handle Local.
func (h *Handle) BeginTransfer() (*HandleSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.usableLocked(); err != nil {
		return nil, err
	}

	provided := make(map[string]Value, len(h.provided))
	for name, v := range h.provided {
		c, err := CloneCapture(name, v)
		if err != nil {
			return nil, err
		}
		provided[name] = c
	}

	h.state = StateTransferred
	return &HandleSnapshot{
		Source:   h.def.source,
		Declared: h.def.Declared(),
		Provided: provided,
	}, nil
}

// ConfirmTransfer marks a Transferred handle Consumed after the
// destination acknowledged receipt. There is no path back.
func (h *Handle) ConfirmTransfer() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateTransferred {
		return &TransferConsumedError{HandleID: h.id.String()}
	}
	h.state = StateConsumed
	return nil
}

// AbortTransfer returns a Transferred handle to Local after a failed
// delivery. A Consumed handle stays consumed.
func (h *Handle) AbortTransfer() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateTransferred {
		return &TransferConsumedError{HandleID: h.id.String()}
	}
	h.state = StateLocal
	return nil
}
