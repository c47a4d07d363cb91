package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/waypoints/internal/dispatcher"
	"github.com/OCAP2/waypoints/internal/parser"
	"github.com/OCAP2/waypoints/pkg/core"
)

func (s *Service) handleHelp(_ context.Context, e dispatcher.Event) error {
	s.reply(e.Source, "help", s.deps.CommandPrefix, s.deps.Store.PermissionLevel())
	return nil
}

func (s *Service) handleList(_ context.Context, e dispatcher.Event) error {
	token := core.FilterAll
	if len(e.Args) > 0 {
		token = e.Args[0]
	}

	groups, err := s.deps.Store.Find(token)
	if err != nil {
		s.reply(e.Source, "list.dimension_unrecognized", token)
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	lines := []string{s.t("list.header", s.deps.CommandPrefix, token)}
	for _, g := range groups {
		lines = append(lines, s.t("list.dimension", g.Dimension.String(), g.Count()))
		for _, w := range g.Waypoints {
			lines = append(lines, w.ChatLine())
		}
	}
	s.deps.Host.Reply(e.Source, strings.Join(lines, "\n"))
	return nil
}

func (s *Service) handleSearch(_ context.Context, e dispatcher.Event) error {
	sub := rawArg(e)
	if sub == "" {
		return s.usage(e.Source, "search <text>")
	}

	found := s.deps.Store.Search(sub)
	lines := []string{s.t("search.header", len(found), sub)}
	for _, w := range found {
		lines = append(lines, w.ChatLine())
	}
	s.deps.Host.Reply(e.Source, strings.Join(lines, "\n"))
	return nil
}

// handleAdd parses an inline waypoint, or starts a VoxelMap bulk paste when
// no waypoint is given.
func (s *Service) handleAdd(ctx context.Context, e dispatcher.Event) error {
	if e.Raw == "" {
		return s.handleAddVoxel(ctx, e)
	}
	if err := s.requirePermission(e.Source, "add.no_permission"); err != nil {
		return err
	}

	res, err := s.deps.Parser.Parse(parser.FormatVoxelMap, e.Raw)
	if err != nil {
		var pe *parser.ParseError
		read := 0
		if errors.As(err, &pe) {
			read = pe.CharsRead
		}
		s.reply(e.Source, "add.invalid", read, s.reason(err))
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return s.commit(res)
}

func (s *Service) handleAddVoxel(_ context.Context, e dispatcher.Event) error {
	return s.beginBulkPaste(e, parser.FormatVoxelMap, "bulk.voxel_start")
}

func (s *Service) handleAddXaero(_ context.Context, e dispatcher.Event) error {
	return s.beginBulkPaste(e, parser.FormatXaero, "bulk.xaero_start")
}

func (s *Service) beginBulkPaste(e dispatcher.Event, format parser.Format, prompt string) error {
	if err := s.requirePermission(e.Source, "add.no_permission"); err != nil {
		return err
	}
	if !e.Source.Player {
		s.reply(e.Source, "bulk.console")
		return nil
	}
	s.deps.Sessions.BeginBulkPaste(e.Source.Name, format)
	s.reply(e.Source, prompt)
	return nil
}

// handleDelete previews the matching waypoints and waits for confirmation.
func (s *Service) handleDelete(_ context.Context, e dispatcher.Event) error {
	if err := s.requirePermission(e.Source, "del.no_permission"); err != nil {
		return err
	}
	filter := rawArg(e)
	if filter == "" {
		return s.usage(e.Source, "del <text>")
	}
	if !e.Source.Player {
		s.reply(e.Source, "bulk.console")
		return nil
	}

	found := s.deps.Store.Search(filter)
	world := s.deps.Store.World()
	lines := []string{s.t("del.preview", len(found), filter)}
	for _, w := range found {
		lines = append(lines, w.Format(world))
	}
	lines = append(lines, s.t("del.confirm"))

	s.deps.Sessions.BeginDelete(e.Source.Name, filter)
	s.deps.Host.Reply(e.Source, strings.Join(lines, "\n"))
	return nil
}

func (s *Service) handleSetWorld(_ context.Context, e dispatcher.Event) error {
	if err := s.requirePermission(e.Source, "world.no_permission"); err != nil {
		return err
	}
	world := rawArg(e)
	if world == "" {
		return s.usage(e.Source, "set_world <name>")
	}

	if err := s.deps.Store.SetWorld(world); err != nil {
		return err
	}
	s.deps.Host.Broadcast(s.t("world.set", world))
	return nil
}

func (s *Service) handleSetPermissionLevel(_ context.Context, e dispatcher.Event) error {
	if err := s.requirePermission(e.Source, "level.no_permission"); err != nil {
		return err
	}
	if len(e.Args) == 0 {
		return s.usage(e.Source, "set_permission_level <level>")
	}

	level, err := strconv.Atoi(e.Args[0])
	if err != nil {
		s.reply(e.Source, "level.invalid", e.Args[0])
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if err := s.deps.Store.SetPermissionLevel(level); err != nil {
		return err
	}
	s.deps.Host.Broadcast(s.t("level.set", level))
	return nil
}

// rawArg returns the untokenized argument text with one pair of enclosing
// quotes removed, so inner whitespace survives.
func rawArg(e dispatcher.Event) string {
	arg := strings.TrimSpace(e.Raw)
	if len(arg) >= 2 {
		if q := arg[0]; (q == '"' || q == '\'') && arg[len(arg)-1] == q {
			arg = arg[1 : len(arg)-1]
		}
	}
	return arg
}
