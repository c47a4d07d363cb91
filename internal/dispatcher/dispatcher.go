package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/waypoints/internal/host"
)

// ErrUnknownCommand is returned by Dispatch when no handler matches.
var ErrUnknownCommand = errors.New("unknown command")

// Event represents one chat command addressed to the plugin.
type Event struct {
	ID        string
	Command   string
	Args      []string
	Raw       string // text after the subcommand, untokenized
	Source    host.Source
	Timestamp time.Time
}

// NewEvent builds an Event stamped with a fresh ID and the current time.
func NewEvent(src host.Source, command string, args []string, raw string) Event {
	return Event{
		ID:        uuid.NewString(),
		Command:   command,
		Args:      args,
		Raw:       raw,
		Source:    src,
		Timestamp: time.Now(),
	}
}

// HandlerFunc processes an event.
type HandlerFunc func(ctx context.Context, e Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers. Handlers run on the
// caller's goroutine.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := meter()

	var err error
	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	h, ok := d.handlers[e.Command]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}

	cmdAttr := metric.WithAttributes(attribute.String("command", e.Command))
	err := h(ctx, e)
	d.processed.Add(ctx, 1, cmdAttr)
	if err != nil {
		d.failed.Add(ctx, 1, cmdAttr)
	}
	return err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "id", e.ID, "command", command, "source", e.Source.Name, "args", len(e.Args))

		err := h(ctx, e)

		if err != nil {
			d.logger.Error("event failed", "id", e.ID, "command", command, "source", e.Source.Name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "id", e.ID, "command", command, "duration", time.Since(start))
		}

		return err
	}
}
