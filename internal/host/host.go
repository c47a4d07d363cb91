// Package host defines the collaborators the waypoint service consumes from
// the game server (permission lookup, broadcast, reply) and provides a
// line-protocol console implementation.
package host

import (
	"context"
	"strings"
)

// ConsoleName is the Source name used for the server console.
const ConsoleName = "Console"

// Source identifies who sent a chat line or command.
type Source struct {
	Name   string
	Player bool
}

// PlayerSource returns the Source for a connected player.
func PlayerSource(name string) Source {
	return Source{Name: name, Player: true}
}

// ConsoleSource returns the Source for the server console.
func ConsoleSource() Source {
	return Source{Name: ConsoleName}
}

func (s Source) String() string {
	if s.Player {
		return s.Name
	}
	return "[" + s.Name + "]"
}

// Host is the game server as seen by the waypoint service.
type Host interface {
	PermissionLevel(src Source) int
	Broadcast(text string)
	Reply(src Source, text string)
}

// EventHandler receives chat lines and disconnects from the host.
type EventHandler interface {
	HandleChat(ctx context.Context, src Source, text string) error
	HandlePlayerLeft(player string)
}

// Permissions maps sources to permission levels. Player names compare
// case-insensitively.
type Permissions struct {
	Console int
	Default int
	Players map[string]int
}

// NewPermissions builds Permissions, normalizing player names.
func NewPermissions(console, def int, players map[string]int) Permissions {
	p := Permissions{Console: console, Default: def, Players: make(map[string]int, len(players))}
	for name, lvl := range players {
		p.Players[strings.ToLower(name)] = lvl
	}
	return p
}

// Level returns the permission level of src.
func (p Permissions) Level(src Source) int {
	if !src.Player {
		return p.Console
	}
	if lvl, ok := p.Players[strings.ToLower(src.Name)]; ok {
		return lvl
	}
	return p.Default
}
