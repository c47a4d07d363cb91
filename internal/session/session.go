// Package session tracks the per-player interaction state of the chat
// flows (bulk paste and delete confirmation).
package session

import (
	"sort"
	"sync"

	"github.com/OCAP2/waypoints/internal/parser"
)

// State is a player's position in an interactive flow.
type State int

const (
	Idle State = iota
	SkipToAwaitingBulkPaste
	AwaitingBulkPaste
	SkipToAwaitingDeleteConfirmation
	AwaitingDeleteConfirmation
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SkipToAwaitingBulkPaste:
		return "skip_to_awaiting_bulk_paste"
	case AwaitingBulkPaste:
		return "awaiting_bulk_paste"
	case SkipToAwaitingDeleteConfirmation:
		return "skip_to_awaiting_delete_confirmation"
	case AwaitingDeleteConfirmation:
		return "awaiting_delete_confirmation"
	default:
		return "unknown"
	}
}

// Session is one player's flow state. Format is set for bulk paste,
// DeleteFilter for delete confirmation.
type Session struct {
	State        State
	Format       parser.Format
	DeleteFilter string
}

// Skipping reports whether the next line is consumed without being read.
func (s Session) Skipping() bool {
	return s.State == SkipToAwaitingBulkPaste || s.State == SkipToAwaitingDeleteConfirmation
}

// Advance returns the session after one skipped line. Non-skip states are
// returned unchanged.
func (s Session) Advance() Session {
	switch s.State {
	case SkipToAwaitingBulkPaste:
		s.State = AwaitingBulkPaste
	case SkipToAwaitingDeleteConfirmation:
		s.State = AwaitingDeleteConfirmation
	}
	return s
}

// Tracker maps player names to their active session. Idle players have no entry.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]Session),
	}
}

// Get returns the player's session, or an Idle session and false.
func (t *Tracker) Get(player string) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[player]
	return s, ok
}

// Set stores a session. Setting an Idle session removes the entry.
func (t *Tracker) Set(player string, s Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.State == Idle {
		delete(t.sessions, player)
		return
	}
	t.sessions[player] = s
}

// BeginBulkPaste starts a bulk paste flow with the given format.
func (t *Tracker) BeginBulkPaste(player string, format parser.Format) {
	t.Set(player, Session{State: SkipToAwaitingBulkPaste, Format: format})
}

// BeginDelete starts a delete confirmation flow for filter.
func (t *Tracker) BeginDelete(player, filter string) {
	t.Set(player, Session{State: SkipToAwaitingDeleteConfirmation, DeleteFilter: filter})
}

// Delete removes a player's session. Absent players are ignored.
func (t *Tracker) Delete(player string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, player)
}

// Len returns the number of players mid-flow.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Players returns the names of players mid-flow, sorted.
func (t *Tracker) Players() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.sessions))
	for name := range t.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all sessions
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = make(map[string]Session)
}
