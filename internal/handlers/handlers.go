// Package handlers implements the waypoint chat service: command handlers,
// the per-player bulk paste and delete confirmation flows, and permission
// checks.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buildkite/shellwords"

	"github.com/OCAP2/waypoints/internal/dispatcher"
	"github.com/OCAP2/waypoints/internal/host"
	"github.com/OCAP2/waypoints/internal/i18n"
	"github.com/OCAP2/waypoints/internal/parser"
	"github.com/OCAP2/waypoints/internal/session"
	"github.com/OCAP2/waypoints/internal/store"
)

// DefaultCommandPrefix introduces waypoint commands in chat.
const DefaultCommandPrefix = "!!wp"

// ConfirmWord is the exact line that confirms a pending deletion.
const ConfirmWord = "YES"

var (
	// ErrPermissionDenied is returned when the caller's level does not exceed the threshold.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument is returned for missing or malformed command arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Store         *store.Store
	Sessions      *session.Tracker
	Host          host.Host
	Parser        *parser.Parser
	Translator    *i18n.Translator
	Logger        *slog.Logger
	CommandPrefix string
}

// Service is the waypoint plugin. It owns the registry and the per-player
// flow state and is driven one chat event at a time.
type Service struct {
	deps       Dependencies
	logger     *slog.Logger
	dispatcher *dispatcher.Dispatcher
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewTracker()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.CommandPrefix == "" {
		deps.CommandPrefix = DefaultCommandPrefix
	}
	if deps.Translator == nil {
		tr, err := i18n.New(i18n.BaseLocale)
		if err != nil {
			deps.Logger.Error("Failed to load message catalogs", "error", err)
		}
		deps.Translator = tr
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger.With("component", "handlers"),
	}
}

// RegisterHandlers installs every subcommand on d and routes chat commands
// through it.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	s.dispatcher = d

	d.Register("", s.handleHelp)
	d.Register("list", s.handleList)
	d.Register("search", s.handleSearch)
	d.Register("add", s.handleAdd, dispatcher.Logged())
	d.Register("addvoxel", s.handleAddVoxel, dispatcher.Logged())
	d.Register("addxaero", s.handleAddXaero, dispatcher.Logged())
	d.Register("del", s.handleDelete, dispatcher.Logged())
	d.Register("set_world", s.handleSetWorld, dispatcher.Logged())
	d.Register("set_permission_level", s.handleSetPermissionLevel, dispatcher.Logged())
}

// LogAttrs reports live registry state for log records.
func (s *Service) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("world", s.deps.Store.World()),
		slog.Int("waypoints", s.deps.Store.Len()),
		slog.Int("sessions", s.deps.Sessions.Len()),
	}
}

// HandleChat processes one chat line. A player mid-flow has the line
// consumed by the flow; otherwise lines starting with the command prefix are
// dispatched. Only storage failures are returned.
func (s *Service) HandleChat(ctx context.Context, src host.Source, text string) error {
	if src.Player {
		if sess, ok := s.deps.Sessions.Get(src.Name); ok {
			return s.handleFlowLine(src, sess, text)
		}
	}

	command, raw, ok := s.splitCommand(text)
	if !ok {
		return nil
	}

	args, err := shellwords.SplitPosix(raw)
	if err != nil {
		args = strings.Fields(raw)
	}

	err = s.dispatcher.Dispatch(ctx, dispatcher.NewEvent(src, command, args, raw))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		s.reply(src, "unknown_command", command, s.deps.CommandPrefix)
		return nil
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrInvalidArgument):
		return nil
	default:
		return err
	}
}

// HandlePlayerLeft discards any flow state of the player.
func (s *Service) HandlePlayerLeft(player string) {
	if _, ok := s.deps.Sessions.Get(player); ok {
		s.logger.Debug("Discarding session of departed player", "player", player)
	}
	s.deps.Sessions.Delete(player)
}

// splitCommand recognizes "<prefix> <subcommand> <raw...>".
func (s *Service) splitCommand(text string) (command, raw string, ok bool) {
	prefix := s.deps.CommandPrefix
	if !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := text[len(prefix):]
	if rest != "" && rest[0] != ' ' {
		return "", "", false
	}
	rest = strings.TrimLeft(rest, " ")
	command, raw, _ = strings.Cut(rest, " ")
	return command, strings.TrimLeft(raw, " "), true
}

func (s *Service) handleFlowLine(src host.Source, sess session.Session, text string) error {
	if sess.Skipping() {
		s.deps.Sessions.Set(src.Name, sess.Advance())
		return nil
	}

	switch sess.State {
	case session.AwaitingBulkPaste:
		res, err := s.deps.Parser.Parse(sess.Format, text)
		if err != nil {
			s.deps.Sessions.Delete(src.Name)
			s.reply(src, "bulk.ended", s.reason(err))
			return nil
		}
		if err := s.commit(res); err != nil {
			return err
		}
		s.reply(src, "bulk.continue")
		return nil

	case session.AwaitingDeleteConfirmation:
		s.deps.Sessions.Delete(src.Name)
		if text != ConfirmWord {
			s.reply(src, "del.cancelled")
			return nil
		}
		n, err := s.deps.Store.RemoveMatching(sess.DeleteFilter)
		if err != nil {
			return err
		}
		s.logger.Info("Waypoints deleted", "player", src.Name, "filter", sess.DeleteFilter, "count", n)
		s.reply(src, "del.done", n)
		return nil
	}

	s.deps.Sessions.Delete(src.Name)
	return nil
}

// commit stores a parsed waypoint and announces it.
func (s *Service) commit(res parser.Result) error {
	if err := s.deps.Store.Add(res.Waypoint); err != nil {
		return err
	}
	s.deps.Host.Broadcast(s.t("add.broadcast", res.Waypoint.Format(s.deps.Store.World())))
	return nil
}

func (s *Service) authorized(src host.Source) bool {
	return s.deps.Host.PermissionLevel(src) > s.deps.Store.PermissionLevel()
}

// requirePermission replies key and returns ErrPermissionDenied when src is
// not authorized.
func (s *Service) requirePermission(src host.Source, key string) error {
	if s.authorized(src) {
		return nil
	}
	s.reply(src, key)
	return fmt.Errorf("%w: %s level %d", ErrPermissionDenied, src, s.deps.Host.PermissionLevel(src))
}

func (s *Service) usage(src host.Source, syntax string) error {
	s.reply(src, "usage", s.deps.CommandPrefix+" "+syntax)
	return fmt.Errorf("%w: expected %s", ErrInvalidArgument, syntax)
}

func (s *Service) t(key string, args ...any) string {
	if s.deps.Translator == nil {
		return key
	}
	return s.deps.Translator.T(key, args...)
}

func (s *Service) reply(src host.Source, key string, args ...any) {
	s.deps.Host.Reply(src, s.t(key, args...))
}

// reason localizes the reason carried by a parse error.
func (s *Service) reason(err error) string {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return s.t(pe.Reason)
	}
	return err.Error()
}
