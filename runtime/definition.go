package runtime

import (
	"crypto/sha256"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/blok/compiler"
)

// ---------------------------------------------------------------------------
// Definition: immutable validated construct body
// ---------------------------------------------------------------------------

// Definition is the immutable, parsed-and-validated representation of
// a construct body. It is created once, never mutated, and may be
// referenced by many handles. The invariant freeVariables ⊆
// declaredCaptures holds by construction: the compile path fails
// before a Definition violating it could exist.
type Definition struct {
	id       uuid.UUID
	hash     [32]byte
	source   string
	body     *compiler.Body
	declared []string // sorted
	free     []string // sorted
	markers  []string // sorted
}

// NewDefinition builds a Definition from a validated compile result.
func NewDefinition(res *compiler.Result) *Definition {
	return &Definition{
		id:       uuid.New(),
		hash:     contentHash(res.Source, res.Declared),
		source:   res.Source,
		body:     res.Body,
		declared: append([]string(nil), res.Declared...),
		free:     append([]string(nil), res.Free...),
		markers:  append([]string(nil), res.Markers...),
	}
}

// definitionFromConstruct builds a Definition from an already-validated
// construct literal node.
func definitionFromConstruct(c *compiler.Construct) *Definition {
	return &Definition{
		id:       uuid.New(),
		hash:     contentHash(c.Source, c.Declared),
		source:   c.Source,
		body:     c.Body,
		declared: append([]string(nil), c.Declared...),
		free:     append([]string(nil), c.Free...),
		markers:  append([]string(nil), c.Markers...),
	}
}

// contentHash derives the content address of a definition from its
// source text and declared capture set.
func contentHash(source string, declared []string) [32]byte {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(declared, ",")))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ID returns the definition's unique identity.
func (d *Definition) ID() uuid.UUID { return d.id }

// Hash returns the definition's content address.
func (d *Definition) Hash() [32]byte { return d.hash }

// Source returns the body source text.
func (d *Definition) Source() string { return d.source }

// Declared returns a copy of the declared capture set, sorted.
func (d *Definition) Declared() []string {
	return append([]string(nil), d.declared...)
}

// Free returns a copy of the free-variable set, sorted.
func (d *Definition) Free() []string {
	return append([]string(nil), d.free...)
}

// Markers returns a copy of the inline-marker capture names, sorted.
func (d *Definition) Markers() []string {
	return append([]string(nil), d.markers...)
}

func (d *Definition) declares(name string) bool {
	for _, n := range d.declared {
		if n == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Registry: per-context interning of definitions
// ---------------------------------------------------------------------------

// Registry owns the definitions created in one execution context. Each
// evaluation of construct syntax produces a fresh Definition (and so a
// fresh Handle), but the immutable body representation is shared for
// identical source text: interning an already-seen content hash reuses
// the cached parsed body.
type Registry struct {
	mu     sync.RWMutex
	defs   map[uuid.UUID]*Definition
	bodies map[[32]byte]*compiler.Body
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:   make(map[uuid.UUID]*Definition),
		bodies: make(map[[32]byte]*compiler.Body),
	}
}

// Intern records a fresh definition for the given compile result,
// sharing the cached body representation when the same source has been
// interned before. Sharing is safe because bodies are never mutated.
func (r *Registry) Intern(res *compiler.Result) *Definition {
	d := NewDefinition(res)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.bodies[d.hash]; ok {
		d.body = cached
	} else {
		r.bodies[d.hash] = d.body
	}
	r.defs[d.id] = d
	return d
}

// InternConstruct records a fresh definition for an already-validated
// construct literal, sharing the cached body for identical source.
func (r *Registry) InternConstruct(c *compiler.Construct) *Definition {
	d := definitionFromConstruct(c)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.bodies[d.hash]; ok {
		d.body = cached
	} else {
		r.bodies[d.hash] = d.body
	}
	r.defs[d.id] = d
	return d
}

// Lookup returns the definition with the given identity, or nil.
func (r *Registry) Lookup(id uuid.UUID) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[id]
}

// Release drops the registry's reference to a definition. Handles
// already holding the definition keep it alive.
func (r *Registry) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.defs, id)
}

// Len returns the number of live definitions in the registry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
