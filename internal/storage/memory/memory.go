// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/OCAP2/waypoints/pkg/core"
)

// Backend keeps the registry state in memory only. Nothing survives a restart.
type Backend struct {
	mu    sync.RWMutex
	state *core.State
	saves int
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{}
}

// NewWithState creates a memory backend that already holds state.
func NewWithState(state core.State) *Backend {
	b := &Backend{}
	s := clone(state)
	b.state = &s
	return b
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Load returns a copy of the stored state
func (b *Backend) Load() (core.State, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.state == nil {
		return core.State{}, false, nil
	}
	return clone(*b.state), true, nil
}

// Save stores a copy of state
func (b *Backend) Save(state core.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := clone(state)
	b.state = &s
	b.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// Location names the backend for logs
func (b *Backend) Location() string {
	return "memory"
}

func clone(s core.State) core.State {
	out := s
	out.Waypoints = make([]core.Waypoint, len(s.Waypoints))
	copy(out.Waypoints, s.Waypoints)
	return out
}
