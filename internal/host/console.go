package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/OCAP2/waypoints/internal/queue"
)

// Line protocol verbs. Input lines are CHAT|<player>|<text>, LEFT|<player>
// and CONSOLE|<text>; output lines are SAY|<text> and TELL|<name>|<text>.
const (
	VerbChat    = "CHAT"
	VerbLeft    = "LEFT"
	VerbConsole = "CONSOLE"
	VerbSay     = "SAY"
	VerbTell    = "TELL"
)

// ErrMalformedLine is returned by ParseEvent for lines outside the protocol.
var ErrMalformedLine = errors.New("malformed protocol line")

// EventKind distinguishes host events.
type EventKind int

const (
	EventChat EventKind = iota
	EventLeft
)

// Event is one decoded input line.
type Event struct {
	Kind   EventKind
	Source Source
	Text   string
}

// ParseEvent decodes one input line.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimRight(line, "\r\n")
	verb, rest, _ := strings.Cut(line, "|")

	switch verb {
	case VerbChat:
		player, text, ok := strings.Cut(rest, "|")
		if !ok || player == "" {
			return Event{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}
		return Event{Kind: EventChat, Source: PlayerSource(player), Text: text}, nil
	case VerbLeft:
		if rest == "" {
			return Event{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}
		return Event{Kind: EventLeft, Source: PlayerSource(rest)}, nil
	case VerbConsole:
		return Event{Kind: EventChat, Source: ConsoleSource(), Text: rest}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
}

// Message is one outgoing chat message.
type Message struct {
	Broadcast bool
	To        string
	Text      string
}

// Console is a Host speaking the line protocol over a reader/writer pair.
// Outgoing messages are buffered and written after each event.
type Console struct {
	out    io.Writer
	perms  Permissions
	styler *Styler
	outbox *queue.Queue[Message]
	logger *slog.Logger
}

// NewConsole creates a Console writing to out. colors enables terminal styling
// of § codes; otherwise they are stripped.
func NewConsole(out io.Writer, perms Permissions, colors bool, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		out:    out,
		perms:  perms,
		styler: NewStyler(out, colors),
		outbox: queue.New[Message](),
		logger: logger.With("component", "console"),
	}
}

func (c *Console) PermissionLevel(src Source) int {
	return c.perms.Level(src)
}

func (c *Console) Broadcast(text string) {
	c.outbox.Push(Message{Broadcast: true, Text: text})
}

func (c *Console) Reply(src Source, text string) {
	c.outbox.Push(Message{To: src.Name, Text: text})
}

// Flush writes every buffered message, one protocol line per text line.
func (c *Console) Flush() error {
	w := bufio.NewWriter(c.out)
	for _, m := range c.outbox.Drain() {
		for _, line := range strings.Split(m.Text, "\n") {
			line = c.styler.Render(line)
			var err error
			if m.Broadcast {
				_, err = fmt.Fprintf(w, "%s|%s\n", VerbSay, line)
			} else {
				_, err = fmt.Fprintf(w, "%s|%s|%s\n", VerbTell, m.To, line)
			}
			if err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// Serve reads events from r until EOF or ctx is cancelled, handing each to
// h and flushing replies after it. Malformed lines are logged and skipped.
// An error from h stops the loop. Cancellation returns promptly even while
// r blocks; the reading goroutine then exits on its next line or EOF.
func (c *Console) Serve(ctx context.Context, r io.Reader, h EventHandler) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line = <-lines:
		}

		if err := c.handleLine(ctx, line, h); err != nil {
			return err
		}
	}
}

func (c *Console) handleLine(ctx context.Context, line string, h EventHandler) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	e, err := ParseEvent(line)
	if err != nil {
		c.logger.Warn("Skipping input line", "error", err)
		return nil
	}

	switch e.Kind {
	case EventLeft:
		h.HandlePlayerLeft(e.Source.Name)
	case EventChat:
		if err := h.HandleChat(ctx, e.Source, e.Text); err != nil {
			_ = c.Flush()
			return err
		}
	}

	if err := c.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
