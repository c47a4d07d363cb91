// internal/storage/storage.go
package storage

import "github.com/OCAP2/waypoints/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Every Save is a full rewrite of the registry state.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Load returns the persisted state. found is false when nothing has been saved yet.
	Load() (state core.State, found bool, err error)

	// Save replaces the persisted state.
	Save(state core.State) error
}

// Describer is an optional interface for backends that can name where they persist to.
type Describer interface {
	Location() string
}
