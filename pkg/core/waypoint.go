// pkg/core/waypoint.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Waypoint is a named 3D block position in one dimension.
// Values are never mutated once constructed; the registry replaces them by name.
type Waypoint struct {
	Name      string
	X         int
	Y         int
	Z         int
	Dimension Dimension
}

// NewWaypoint builds a Waypoint from textual fields.
// dim may be a canonical id or a signed integer id.
func NewWaypoint(name, x, y, z, dim string) (Waypoint, error) {
	var w Waypoint
	if name == "" {
		return w, ErrNameEmpty
	}

	coords := [3]int{}
	for i, raw := range [3]string{x, y, z} {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return w, fmt.Errorf("%w: %q", ErrCoordinateFormatInvalid, raw)
		}
		coords[i] = v
	}

	d, err := ParseDimension(strings.TrimSpace(dim))
	if err != nil {
		return w, err
	}

	w.Name = name
	w.X, w.Y, w.Z = coords[0], coords[1], coords[2]
	w.Dimension = d
	return w, nil
}

// Format renders the waypoint in the bracketed share syntax, tagged with the world name.
func (w Waypoint) Format(world string) string {
	return fmt.Sprintf("[name:%s, x:%d, y:%d, z:%d, dim:%s, world:%s]",
		w.Name, w.X, w.Y, w.Z, w.Dimension, world)
}

// ChatLine renders the waypoint for list and search output.
func (w Waypoint) ChatLine() string {
	return fmt.Sprintf("%s §a(%d, %d, %d)§r §7@§r %s", w.Name, w.X, w.Y, w.Z, w.Dimension.Label())
}

// VoxelMapCommand returns the client command that adds this waypoint in VoxelMap.
func (w Waypoint) VoxelMapCommand(world string) string {
	return "/newWaypoint " + w.Format(world)
}

// XaeroCommand returns the client command that adds this waypoint in Xaero's Minimap.
func (w Waypoint) XaeroCommand() string {
	initial := ""
	for _, r := range w.Name {
		initial = string(r)
		break
	}
	return fmt.Sprintf("xaero_waypoint_add:%s:%s:%d:%d:%d:6:false:0:Internal_%s_waypoints",
		EscapeXaeroColons(w.Name), EscapeXaeroColons(initial), w.X, w.Y, w.Z, w.Dimension.Short())
}

// XaeroColonEscape stands in for a literal colon inside Xaero share fields.
const XaeroColonEscape = "^col^"

// EscapeXaeroColons replaces colons with the Xaero escape token.
func EscapeXaeroColons(s string) string {
	return strings.ReplaceAll(s, ":", XaeroColonEscape)
}

// UnescapeXaeroColons reverses EscapeXaeroColons.
func UnescapeXaeroColons(s string) string {
	return strings.ReplaceAll(s, XaeroColonEscape, ":")
}

// State is the persisted registry document.
// Waypoints are kept in insertion order.
type State struct {
	World           string
	PermissionLevel int
	Waypoints       []Waypoint
}

// DefaultPermissionLevel is the threshold written on first start.
const DefaultPermissionLevel = 2

// DefaultState returns the state used when nothing has been persisted yet.
func DefaultState() State {
	return State{
		World:           "",
		PermissionLevel: DefaultPermissionLevel,
		Waypoints:       []Waypoint{},
	}
}
