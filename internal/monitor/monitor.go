// Package monitor publishes a periodic status report of the waypoint
// registry to a JSON file and as OTel gauges.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/waypoints/internal/host"
	"github.com/OCAP2/waypoints/internal/session"
	"github.com/OCAP2/waypoints/internal/store"
	"github.com/OCAP2/waypoints/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Store      *store.Store
	Sessions   *session.Tracker
	Logger     *slog.Logger
	Meter      metric.Meter
	StatusFile string // empty disables the file
	Interval   time.Duration
}

// Status is a point-in-time view of the registry.
type Status struct {
	Time            time.Time      `json:"time"`
	World           string         `json:"world"`
	PermissionLevel int            `json:"permissionLevel"`
	Waypoints       int            `json:"waypoints"`
	Dimensions      map[string]int `json:"dimensions"`
	Sessions        []string       `json:"sessions"`
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	latest    Status
	written   time.Time
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}

	waypoints metric.Int64ObservableGauge
	sessions  metric.Int64ObservableGauge
}

// NewService creates a new monitor service and registers its gauges.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Meter == nil {
		deps.Meter = noop.Meter{}
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	s := &Service{deps: deps}

	var err error
	s.waypoints, err = deps.Meter.Int64ObservableGauge(
		"registry.waypoints",
		metric.WithDescription("Waypoints in the registry by dimension"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating waypoints gauge: %w", err)
	}

	s.sessions, err = deps.Meter.Int64ObservableGauge(
		"registry.sessions",
		metric.WithDescription("Players in a bulk paste or delete confirmation flow"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions gauge: %w", err)
	}

	_, err = deps.Meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			st := s.Status()
			for dim, n := range st.Dimensions {
				o.ObserveInt64(s.waypoints, int64(n),
					metric.WithAttributes(attribute.String("dimension", dim)))
			}
			o.ObserveInt64(s.sessions, int64(len(st.Sessions)))
			return nil
		},
		s.waypoints, s.sessions,
	)
	if err != nil {
		return nil, fmt.Errorf("registering registry callback: %w", err)
	}

	s.Snapshot()
	return s, nil
}

// Snapshot captures the registry state. It reads the store, so it must run
// on the goroutine that handles events.
func (s *Service) Snapshot() Status {
	st := Status{
		Time:            time.Now().UTC(),
		World:           s.deps.Store.World(),
		PermissionLevel: s.deps.Store.PermissionLevel(),
		Waypoints:       s.deps.Store.Len(),
		Dimensions:      map[string]int{},
		Sessions:        []string{},
	}
	groups, _ := s.deps.Store.Find(core.FilterAll)
	for _, g := range groups {
		st.Dimensions[g.Dimension.String()] = g.Count()
	}
	if s.deps.Sessions != nil {
		st.Sessions = s.deps.Sessions.Players()
	}

	s.mu.Lock()
	s.latest = st
	s.mu.Unlock()
	return st
}

// Status returns the last snapshot.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Wrap returns an EventHandler that snapshots the registry after every event
// handled by h.
func (s *Service) Wrap(h host.EventHandler) host.EventHandler {
	return &snapshotHandler{next: h, monitor: s}
}

type snapshotHandler struct {
	next    host.EventHandler
	monitor *Service
}

func (h *snapshotHandler) HandleChat(ctx context.Context, src host.Source, text string) error {
	defer h.monitor.Snapshot()
	return h.next.HandleChat(ctx, src, text)
}

func (h *snapshotHandler) HandlePlayerLeft(player string) {
	h.next.HandlePlayerLeft(player)
	h.monitor.Snapshot()
}

// WriteStatus writes the last snapshot to the status file if it changed
// since the previous write.
func (s *Service) WriteStatus() error {
	if s.deps.StatusFile == "" {
		return nil
	}

	st := s.Status()
	s.mu.RLock()
	unchanged := st.Time.Equal(s.written)
	s.mu.RUnlock()
	if unchanged {
		return nil
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.deps.StatusFile), 0755); err != nil {
		return fmt.Errorf("error creating status dir: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("error writing status file: %w", err)
	}

	s.mu.Lock()
	s.written = st.Time
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "file", s.deps.StatusFile, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
}
