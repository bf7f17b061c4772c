package simulation

import (
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/samber/lo"
)

// ErrNotFound is returned by Registry lookups for an unknown id (§7
// "Lookup errors"). Callers map it to a 404.
var ErrNotFound = fmt.Errorf("simulation: not found")

// Registry is the keyed map of active simulations described in §4.4. All
// mutations are serialized behind a single exclusive lock; the lock is
// never held while calling into a simulation or its proxy (§9 "Registry
// lock discipline").
type Registry struct {
	mu   sync.Mutex
	byID map[string]FaultSimulation
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]FaultSimulation)}
}

// NewID generates a fresh UUID-style simulation id.
func NewID() string { return uuid.NewV4().String() }

// Add inserts sim under its own ID(). Called by createSimulation after
// Simulate() has brought the proxy up.
func (r *Registry) Add(sim FaultSimulation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[sim.ID()] = sim
}

// Get returns the simulation for id, or ErrNotFound.
func (r *Registry) Get(id string) (FaultSimulation, error) {
	r.mu.Lock()
	sim, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sim, nil
}

// Enable looks up id and delegates to its Enable, outside the lock.
func (r *Registry) Enable(id string) error {
	sim, err := r.Get(id)
	if err != nil {
		return err
	}
	return sim.Enable()
}

// Resolve looks up id and delegates to its Resolve, outside the lock.
func (r *Registry) Resolve(id string) error {
	sim, err := r.Get(id)
	if err != nil {
		return err
	}
	return sim.Resolve()
}

// CleanUp looks up id and delegates to its CleanUp, outside the lock. The
// entry is deliberately left in the registry (in StateDestroyed) rather
// than deleted: that's what makes cleanUp idempotent for a *known* id
// (§8 "Lifecycle idempotence" - a second cleanUp call succeeds as a no-op)
// while still letting a later enable/resolve on the same id fail as a
// lifecycle-misuse client error rather than a lookup 404 (§7). Entries are
// only ever pruned by an operator process restart.
func (r *Registry) CleanUp(id string) error {
	sim, err := r.Get(id)
	if err != nil {
		return err
	}
	return sim.CleanUp()
}

// Snapshot returns every currently registered simulation, for listing or
// bulk shutdown. The slice is a copy; callers may range over it without
// holding the registry lock.
func (r *Registry) Snapshot() []FaultSimulation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Values(r.byID)
}
