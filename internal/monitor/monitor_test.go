package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/waypoints/internal/host"
	"github.com/OCAP2/waypoints/internal/session"
	"github.com/OCAP2/waypoints/internal/storage/memory"
	"github.com/OCAP2/waypoints/internal/store"
	"github.com/OCAP2/waypoints/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addingHandler adds a waypoint named after each chat line.
type addingHandler struct {
	store    *store.Store
	sessions *session.Tracker
}

func (h *addingHandler) HandleChat(_ context.Context, src host.Source, text string) error {
	h.sessions.BeginDelete(src.Name, text)
	return h.store.Add(core.Waypoint{Name: text, Dimension: core.End})
}

func (h *addingHandler) HandlePlayerLeft(player string) {
	h.sessions.Delete(player)
}

func newTestService(t *testing.T, file string) (*Service, *addingHandler) {
	t.Helper()
	st, err := store.Open(memory.New(), nil)
	require.NoError(t, err)
	tracker := session.NewTracker()

	s, err := NewService(Dependencies{
		Store:      st,
		Sessions:   tracker,
		StatusFile: file,
		Interval:   time.Hour,
	})
	require.NoError(t, err)
	return s, &addingHandler{store: st, sessions: tracker}
}

func TestNewService_InitialSnapshot(t *testing.T) {
	s, _ := newTestService(t, "")

	st := s.Status()
	assert.Equal(t, core.DefaultPermissionLevel, st.PermissionLevel)
	assert.Equal(t, 0, st.Waypoints)
	assert.Equal(t, map[string]int{
		"minecraft:overworld":  0,
		"minecraft:the_nether": 0,
		"minecraft:the_end":    0,
	}, st.Dimensions)
	assert.Empty(t, st.Sessions)
}

func TestWrap_SnapshotsAfterEvents(t *testing.T) {
	s, h := newTestService(t, "")
	wrapped := s.Wrap(h)

	require.NoError(t, wrapped.HandleChat(context.Background(), host.PlayerSource("Steve"), "base"))

	st := s.Status()
	assert.Equal(t, 1, st.Waypoints)
	assert.Equal(t, 1, st.Dimensions["minecraft:the_end"])
	assert.Equal(t, []string{"Steve"}, st.Sessions)

	wrapped.HandlePlayerLeft("Steve")
	assert.Empty(t, s.Status().Sessions)
}

func TestWriteStatus(t *testing.T) {
	file := filepath.Join(t.TempDir(), "status", "status.json")
	s, h := newTestService(t, file)

	require.NoError(t, s.Wrap(h).HandleChat(context.Background(), host.PlayerSource("Alex"), "farm"))
	require.NoError(t, s.WriteStatus())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var got Status
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.Waypoints)
	assert.Equal(t, []string{"Alex"}, got.Sessions)

	// unchanged snapshot is not rewritten
	require.NoError(t, os.Remove(file))
	require.NoError(t, s.WriteStatus())
	assert.NoFileExists(t, file)
}

func TestWriteStatus_Disabled(t *testing.T) {
	s, _ := newTestService(t, "")
	assert.NoError(t, s.WriteStatus())
}

func TestStartStop(t *testing.T) {
	file := filepath.Join(t.TempDir(), "status.json")
	s, _ := newTestService(t, file)

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	// the final write happens on stop
	assert.FileExists(t, file)
}
