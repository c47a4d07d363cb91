package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/OCAP2/waypoints/internal/host"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) contains(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

var steve = host.Source{Name: "Steve", Player: true}

func TestDispatcher_Handler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("list", func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	err := d.Dispatch(context.Background(), NewEvent(steve, "list", []string{"all"}, "all"))

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.Command != "list" || len(got.Args) != 1 || got.Args[0] != "all" {
		t.Errorf("handler received %+v", got)
	}
	if got.Source != steve {
		t.Errorf("expected source %v, got %v", steve, got.Source)
	}
	if got.ID == "" {
		t.Error("expected event id to be set")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(context.Background(), Event{Command: "teleport"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_HandlerError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	boom := errors.New("boom")

	d.Register("del", func(_ context.Context, e Event) error {
		return boom
	})

	err := d.Dispatch(context.Background(), Event{Command: "del"})
	if !errors.Is(err, boom) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("search", func(_ context.Context, e Event) error {
		return nil
	}, Logged())
	d.Register("add", func(_ context.Context, e Event) error {
		return errors.New("parse failed")
	}, Logged())

	_ = d.Dispatch(context.Background(), NewEvent(steve, "search", []string{"home"}, "home"))
	if !logger.contains("DEBUG: handling event") || !logger.contains("DEBUG: event complete") {
		t.Errorf("expected debug logs, got %v", logger.messages)
	}
	if logger.contains("ERROR:") {
		t.Error("successful handler should not log errors")
	}

	_ = d.Dispatch(context.Background(), NewEvent(steve, "add", nil, ""))
	if !logger.contains("ERROR: event failed") {
		t.Errorf("expected error log, got %v", logger.messages)
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	noop := func(context.Context, Event) error { return nil }

	d.Register("search", noop)
	d.Register("", noop)
	d.Register("add", noop)

	if !d.HasHandler("") {
		t.Error("expected empty command to be registered")
	}
	if d.HasHandler("teleport") {
		t.Error("unexpected handler for teleport")
	}

	got := d.Commands()
	want := []string{"", "add", "search"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDispatcher_ReRegisterReplaces(t *testing.T) {
	d, _ := newTestDispatcher(t)
	calls := 0

	d.Register("list", func(context.Context, Event) error { calls += 10; return nil })
	d.Register("list", func(context.Context, Event) error { calls++; return nil })

	_ = d.Dispatch(context.Background(), Event{Command: "list"})
	if calls != 1 {
		t.Errorf("expected replacement handler to run once, calls=%d", calls)
	}
}
