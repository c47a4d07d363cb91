// Package store holds the waypoint registry: an insertion-ordered set of
// waypoints keyed by name, the world tag and the permission threshold.
// Every mutation rewrites the full state through a storage.Backend.
//
// A Store is not safe for concurrent use; callers serialize events.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/OCAP2/waypoints/internal/storage"
	"github.com/OCAP2/waypoints/pkg/core"
)

// DimensionGroup is one dimension's slice of a listing.
type DimensionGroup struct {
	Dimension core.Dimension
	Waypoints []core.Waypoint
}

// Count returns the number of waypoints in the group.
func (g DimensionGroup) Count() int {
	return len(g.Waypoints)
}

// Store is the waypoint registry.
type Store struct {
	backend storage.Backend
	logger  *slog.Logger

	world           string
	permissionLevel int
	waypoints       []core.Waypoint
	index           map[string]int
}

// Open loads the registry from backend. When the backend holds no state yet
// the defaults are written out immediately.
func Open(backend storage.Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "store"),
		index:   make(map[string]int),
	}

	state, found, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load waypoints: %w", err)
	}

	if !found {
		state = core.DefaultState()
		s.logger.Info("No saved waypoints, writing defaults",
			"world", state.World, "permission_level", state.PermissionLevel)
		if err := backend.Save(state); err != nil {
			return nil, fmt.Errorf("failed to save default state: %w", err)
		}
	}

	s.world = state.World
	s.permissionLevel = state.PermissionLevel
	for _, w := range state.Waypoints {
		s.upsert(w)
	}

	s.logger.Info("Waypoints loaded", "count", len(s.waypoints), "world", s.world)
	return s, nil
}

// Add inserts w, replacing any waypoint with the same name in place.
func (s *Store) Add(w core.Waypoint) error {
	if w.Name == "" {
		return core.ErrNameEmpty
	}
	if !w.Dimension.Valid() {
		return core.ErrDimensionUnrecognized
	}
	s.upsert(w)
	s.logger.Debug("Waypoint added", "name", w.Name, "dimension", w.Dimension.String())
	return s.save()
}

// Import upserts every waypoint and saves once. Invalid waypoints are
// skipped. Returns the number imported.
func (s *Store) Import(ws []core.Waypoint) (int, error) {
	n := 0
	for _, w := range ws {
		if w.Name == "" || !w.Dimension.Valid() {
			continue
		}
		s.upsert(w)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.save()
}

// RemoveMatching deletes every waypoint whose name contains sub and saves
// once. Returns the number removed.
func (s *Store) RemoveMatching(sub string) (int, error) {
	kept := make([]core.Waypoint, 0, len(s.waypoints))
	removed := 0
	for _, w := range s.waypoints {
		if strings.Contains(w.Name, sub) {
			removed++
			continue
		}
		kept = append(kept, w)
	}

	s.waypoints = kept
	s.reindex()
	s.logger.Debug("Waypoints removed", "filter", sub, "count", removed)

	if err := s.save(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Search returns the waypoints whose name contains sub, in insertion order.
func (s *Store) Search(sub string) []core.Waypoint {
	var out []core.Waypoint
	for _, w := range s.waypoints {
		if strings.Contains(w.Name, sub) {
			out = append(out, w)
		}
	}
	return out
}

// Find resolves a dimension filter token and groups waypoints by dimension.
// Groups follow core.Dimensions order and are present even when empty.
func (s *Store) Find(token string) ([]DimensionGroup, error) {
	dims, err := core.ResolveDimensionFilter(token)
	if err != nil {
		return nil, err
	}

	groups := make([]DimensionGroup, 0, len(dims))
	for _, d := range dims {
		g := DimensionGroup{Dimension: d}
		for _, w := range s.waypoints {
			if w.Dimension == d {
				g.Waypoints = append(g.Waypoints, w)
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Get returns the waypoint with the exact name.
func (s *Store) Get(name string) (core.Waypoint, bool) {
	i, ok := s.index[name]
	if !ok {
		return core.Waypoint{}, false
	}
	return s.waypoints[i], true
}

// All returns a copy of every waypoint in insertion order.
func (s *Store) All() []core.Waypoint {
	out := make([]core.Waypoint, len(s.waypoints))
	copy(out, s.waypoints)
	return out
}

func (s *Store) Len() int {
	return len(s.waypoints)
}

func (s *Store) World() string {
	return s.world
}

func (s *Store) PermissionLevel() int {
	return s.permissionLevel
}

// SetWorld sets the world tag used in share strings.
func (s *Store) SetWorld(world string) error {
	s.world = world
	return s.save()
}

// SetPermissionLevel sets the threshold callers must exceed to mutate.
func (s *Store) SetPermissionLevel(level int) error {
	s.permissionLevel = level
	return s.save()
}

// State returns a snapshot of the persisted document.
func (s *Store) State() core.State {
	return core.State{
		World:           s.world,
		PermissionLevel: s.permissionLevel,
		Waypoints:       s.All(),
	}
}

func (s *Store) upsert(w core.Waypoint) {
	if i, ok := s.index[w.Name]; ok {
		s.waypoints[i] = w
		return
	}
	s.index[w.Name] = len(s.waypoints)
	s.waypoints = append(s.waypoints, w)
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.waypoints))
	for i, w := range s.waypoints {
		s.index[w.Name] = i
	}
}

func (s *Store) save() error {
	if err := s.backend.Save(s.State()); err != nil {
		return fmt.Errorf("failed to save waypoints: %w", err)
	}
	return nil
}
