package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/waypoints/internal/dispatcher"
	"github.com/OCAP2/waypoints/internal/host"
	"github.com/OCAP2/waypoints/internal/i18n"
	"github.com/OCAP2/waypoints/internal/logging"
	"github.com/OCAP2/waypoints/internal/session"
	"github.com/OCAP2/waypoints/internal/storage/memory"
	"github.com/OCAP2/waypoints/internal/store"
	"github.com/OCAP2/waypoints/pkg/core"

	"github.com/rs/zerolog"
)

const (
	admin  = "Steve" // level 3, above the default threshold
	guest  = "Alex"  // level 0
	prefix = "§b[Waypoints]§r "
)

// flakyBackend is a memory backend whose saves can be made to fail.
type flakyBackend struct {
	memory.Backend
	fail bool
}

func (b *flakyBackend) Save(state core.State) error {
	if b.fail {
		return errors.New("disk full")
	}
	return b.Backend.Save(state)
}

type fixture struct {
	svc     *Service
	host    *host.Recorder
	store   *store.Store
	backend *flakyBackend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := &flakyBackend{}
	st, err := store.Open(backend, nil)
	require.NoError(t, err)

	tr, err := i18n.New("en-US")
	require.NoError(t, err)

	rec := host.NewRecorder(host.NewPermissions(4, 0, map[string]int{admin: 3, guest: 0}))

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)

	svc := NewService(Dependencies{
		Store:      st,
		Sessions:   session.NewTracker(),
		Host:       rec,
		Translator: tr,
	})
	svc.RegisterHandlers(d)

	return &fixture{svc: svc, host: rec, store: st, backend: backend}
}

func (f *fixture) say(t *testing.T, player, text string) []host.Message {
	t.Helper()
	require.NoError(t, f.svc.HandleChat(context.Background(), host.PlayerSource(player), text))
	return f.host.Take()
}

func (f *fixture) console(t *testing.T, text string) []host.Message {
	t.Helper()
	require.NoError(t, f.svc.HandleChat(context.Background(), host.ConsoleSource(), text))
	return f.host.Take()
}

func (f *fixture) seed(t *testing.T, ws ...core.Waypoint) {
	t.Helper()
	for _, w := range ws {
		require.NoError(t, f.store.Add(w))
	}
}

func (f *fixture) names() []string {
	var out []string
	for _, w := range f.store.All() {
		out = append(out, w.Name)
	}
	return out
}

func reply(to, text string) host.Message {
	return host.Message{To: to, Text: text}
}

func broadcast(text string) host.Message {
	return host.Message{Broadcast: true, Text: text}
}

func TestHandleChat_IgnoresNonCommands(t *testing.T) {
	f := newFixture(t)

	assert.Empty(t, f.say(t, admin, "hello everyone"))
	assert.Empty(t, f.say(t, admin, "!!wpx list"))
	assert.Empty(t, f.say(t, admin, "!!help"))
}

func TestHelp(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, guest, "!!wp")
	require.Len(t, msgs, 1)
	assert.Equal(t, guest, msgs[0].To)
	assert.Contains(t, msgs[0].Text, "§b!!wp list [dim]§r")
	assert.Contains(t, msgs[0].Text, "above 2")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, guest, "!!wp teleport home")
	assert.Equal(t, []host.Message{
		reply(guest, prefix+"Unknown command teleport, type !!wp for help"),
	}, msgs)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		core.Waypoint{Name: "spawn", X: 0, Y: 64, Z: 0, Dimension: core.Overworld},
		core.Waypoint{Name: "hub", X: 10, Y: 70, Z: 10, Dimension: core.Nether},
	)

	msgs := f.say(t, guest, "!!wp list")
	require.Len(t, msgs, 1)
	assert.Equal(t,
		prefix+"!!wp list all results:\n"+
			"Dimension §2minecraft:overworld§r has §41§r waypoints:\n"+
			"spawn §a(0, 64, 0)§r §7@§r §2Overworld§r\n"+
			"Dimension §2minecraft:the_nether§r has §41§r waypoints:\n"+
			"hub §a(10, 70, 10)§r §7@§r §4Nether§r\n"+
			"Dimension §2minecraft:the_end§r has §40§r waypoints:",
		msgs[0].Text)
}

func TestList_DimensionTokensAgree(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		core.Waypoint{Name: "spawn", Dimension: core.Overworld},
		core.Waypoint{Name: "hub", Dimension: core.Nether},
	)

	byID := f.say(t, guest, "!!wp list 0")
	byName := f.say(t, guest, "!!wp list minecraft:overworld")
	require.Len(t, byID, 1)
	require.Len(t, byName, 1)

	assert.Contains(t, byID[0].Text, "spawn")
	assert.NotContains(t, byID[0].Text, "hub")
	// only the echoed token differs
	assert.Equal(t,
		byID[0].Text[len(prefix+"!!wp list 0 results:"):],
		byName[0].Text[len(prefix+"!!wp list minecraft:overworld results:"):])
}

func TestList_UnknownDimension(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, guest, "!!wp list mars")
	assert.Equal(t, []host.Message{reply(guest, prefix+"Dimension not found: mars")}, msgs)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		core.Waypoint{Name: "iron farm", X: 1, Y: 2, Z: 3},
		core.Waypoint{Name: "gold farm", X: 4, Y: 5, Z: 6, Dimension: core.Nether},
		core.Waypoint{Name: "home"},
	)

	msgs := f.say(t, guest, `!!wp search "iron farm"`)
	require.Len(t, msgs, 1)
	assert.Equal(t,
		prefix+"§b1§r waypoints whose name contains §biron farm§r:\n"+
			"iron farm §a(1, 2, 3)§r §7@§r §2Overworld§r",
		msgs[0].Text)

	msgs = f.say(t, guest, "!!wp search farm")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "§b2§r waypoints")

	msgs = f.say(t, guest, "!!wp search")
	assert.Equal(t, []host.Message{reply(guest, prefix+"Usage: !!wp search <text>")}, msgs)
}

func TestAddInline(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, admin, "!!wp add [name:home, x:1, y:64, z:-1, dim:minecraft:overworld]")

	assert.Equal(t, []host.Message{
		broadcast("Added waypoint §b[name:home, x:1, y:64, z:-1, dim:minecraft:overworld, world:]§r"),
	}, msgs)
	w, ok := f.store.Get("home")
	require.True(t, ok)
	assert.Equal(t, core.Waypoint{Name: "home", X: 1, Y: 64, Z: -1, Dimension: core.Overworld}, w)
}

func TestAddInline_Upsert(t *testing.T) {
	f := newFixture(t)

	f.say(t, admin, "!!wp add [name:home, x:1, y:64, z:-1, dim:0]")
	f.say(t, admin, "!!wp add [name:home, x:5, y:70, z:5, dim:-1]")

	assert.Equal(t, []string{"home"}, f.names())
	w, _ := f.store.Get("home")
	assert.Equal(t, 5, w.X)
	assert.Equal(t, core.Nether, w.Dimension)
}

func TestAddInline_ParseFailure(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, admin, "!!wp add [name:x, x:1, y:2, z:abc, dim:0]")

	assert.Equal(t, []host.Message{
		reply(admin, prefix+"Invalid waypoint at char 32: waypoint coordinates must be integers"),
	}, msgs)
	assert.Equal(t, 0, f.store.Len())
}

func TestBulkPaste_VoxelMap(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, admin, "!!wp add")
	assert.Equal(t, []host.Message{
		reply(admin, prefix+"Now share waypoints with VoxelMap to add them for everyone"),
	}, msgs)

	// echoed prompt line is skipped even when it looks like a waypoint
	assert.Empty(t, f.say(t, admin, "[name:skipped, x:0, y:0, z:0, dim:0]"))

	msgs = f.say(t, admin, "[name:a, x:1, y:2, z:3, dim:minecraft:overworld, world:]")
	assert.Equal(t, []host.Message{
		broadcast("Added waypoint §b[name:a, x:1, y:2, z:3, dim:minecraft:overworld, world:]§r"),
		reply(admin, prefix+"Type anything to finish, or keep sharing waypoints to add"),
	}, msgs)

	msgs = f.say(t, admin, "[name:b, x:4, y:5, z:6, dim:minecraft:the_end, world:]")
	require.Len(t, msgs, 2)

	msgs = f.say(t, admin, "done")
	assert.Equal(t, []host.Message{
		reply(admin, prefix+"Invalid waypoint, finished adding waypoints\n msg: no key:value pairs found"),
	}, msgs)

	assert.Equal(t, []string{"a", "b"}, f.names())
	_, active := f.svc.deps.Sessions.Get(admin)
	assert.False(t, active)

	// flow is over: a further share line is plain chat
	assert.Empty(t, f.say(t, admin, "[name:c, x:0, y:0, z:0, dim:0]"))
	assert.Equal(t, 2, f.store.Len())
}

func TestBulkPaste_Xaero(t *testing.T) {
	f := newFixture(t)

	f.say(t, admin, "!!wp addxaero")
	f.say(t, admin, "ignored")

	msgs := f.say(t, admin, "xaero-waypoint:base^col^1:B:100:70:-300:6:false:0:Internal-the-nether-waypoints")
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Broadcast)

	w, ok := f.store.Get("base:1")
	require.True(t, ok)
	assert.Equal(t, core.Nether, w.Dimension)

	// a bracketed line is not a xaero share string
	msgs = f.say(t, admin, "[name:a, x:1, y:2, z:3, dim:0]")
	assert.Equal(t, []host.Message{
		reply(admin, prefix+"Invalid waypoint, finished adding waypoints\n msg: xaero share format is incorrect"),
	}, msgs)
	assert.Equal(t, 1, f.store.Len())
}

func TestBulkPaste_ConsoleRejected(t *testing.T) {
	f := newFixture(t)

	msgs := f.console(t, "!!wp addvoxel")
	assert.Equal(t, []host.Message{
		reply(host.ConsoleName, prefix+"The console cannot use this command"),
	}, msgs)
	assert.Equal(t, 0, f.svc.deps.Sessions.Len())
}

func TestDelete_Confirmed(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		core.Waypoint{Name: "iron foo", X: 1},
		core.Waypoint{Name: "home"},
		core.Waypoint{Name: "foo bar", X: 2, Dimension: core.End},
	)

	msgs := f.say(t, admin, "!!wp del foo")
	require.Len(t, msgs, 1)
	assert.Equal(t,
		prefix+"About to delete §b2§r waypoints whose name contains §bfoo§r:\n"+
			"[name:iron foo, x:1, y:0, z:0, dim:minecraft:overworld, world:]\n"+
			"[name:foo bar, x:2, y:0, z:0, dim:minecraft:the_end, world:]\n"+
			"Type YES to confirm, anything else cancels",
		msgs[0].Text)
	assert.Equal(t, 3, f.store.Len(), "nothing removed before confirmation")

	// the line right after the command is skipped, even YES
	assert.Empty(t, f.say(t, admin, "YES"))
	assert.Equal(t, 3, f.store.Len())

	msgs = f.say(t, admin, "YES")
	assert.Equal(t, []host.Message{reply(admin, prefix+"Deleted 2 waypoints")}, msgs)
	assert.Equal(t, []string{"home"}, f.names())
}

func TestDelete_Cancelled(t *testing.T) {
	tests := []string{"NO", "yes", "YES ", " YES", ""}

	for _, answer := range tests {
		t.Run(answer, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, core.Waypoint{Name: "foo"}, core.Waypoint{Name: "bar"})

			f.say(t, admin, "!!wp del foo")
			f.say(t, admin, "L1")
			msgs := f.say(t, admin, answer)

			assert.Equal(t, []host.Message{reply(admin, prefix+"Deletion cancelled")}, msgs)
			assert.Equal(t, []string{"foo", "bar"}, f.names())
			assert.Equal(t, 0, f.svc.deps.Sessions.Len())
		})
	}
}

func TestDelete_Usage(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"!!wp del", `!!wp del ""`, "!!wp del   "} {
		msgs := f.say(t, admin, text)
		assert.Equal(t, []host.Message{reply(admin, prefix+"Usage: !!wp del <text>")}, msgs, text)
	}
	assert.Equal(t, 0, f.svc.deps.Sessions.Len())
}

func TestSearch_KeepsInnerSpacing(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		core.Waypoint{Name: "iron  farm"},
		core.Waypoint{Name: "iron farm"},
	)

	msgs := f.say(t, guest, "!!wp search iron  farm")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "§b1§r waypoints whose name contains §biron  farm§r:")

	msgs = f.say(t, admin, `!!wp del "iron  farm"`)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "About to delete §b1§r waypoints")
}

func TestPlayerLeft_ClearsFlow(t *testing.T) {
	f := newFixture(t)
	f.seed(t, core.Waypoint{Name: "foo"})

	f.say(t, admin, "!!wp del foo")
	f.say(t, admin, "L1")
	f.svc.HandlePlayerLeft(admin)
	f.svc.HandlePlayerLeft(admin)

	assert.Empty(t, f.say(t, admin, "YES"), "confirmation after reconnect is plain chat")
	assert.Equal(t, 1, f.store.Len())
}

func TestFlows_ArePerPlayer(t *testing.T) {
	f := newFixture(t)
	f.store.SetPermissionLevel(-1)
	f.seed(t, core.Waypoint{Name: "foo"})

	f.say(t, admin, "!!wp del foo")
	f.say(t, guest, "!!wp addvoxel")

	assert.Equal(t, 2, f.svc.deps.Sessions.Len())

	f.say(t, guest, "L1")
	f.say(t, guest, "[name:g, x:0, y:0, z:0, dim:0]")
	assert.Equal(t, []string{"foo", "g"}, f.names())

	f.say(t, admin, "L1")
	f.say(t, admin, "YES")
	assert.Equal(t, []string{"g"}, f.names())
}

func TestSetWorld(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, admin, "!!wp set_world survival")
	assert.Equal(t, []host.Message{broadcast(prefix + "World is now §2survival§r")}, msgs)
	assert.Equal(t, "survival", f.store.World())

	f.say(t, admin, `!!wp set_world "my world"`)
	assert.Equal(t, "my world", f.store.World())

	f.say(t, admin, "!!wp set_world a  b")
	assert.Equal(t, "a  b", f.store.World())

	f.say(t, admin, "!!wp set_world 'x  y'")
	assert.Equal(t, "x  y", f.store.World())

	msgs = f.say(t, admin, `!!wp set_world ""`)
	assert.Equal(t, []host.Message{reply(admin, prefix+"Usage: !!wp set_world <name>")}, msgs)
	assert.Equal(t, "x  y", f.store.World())
}

func TestSetPermissionLevel(t *testing.T) {
	f := newFixture(t)

	msgs := f.say(t, admin, "!!wp set_permission_level 1")
	assert.Equal(t, []host.Message{broadcast(prefix + "Permission level is now §21§r")}, msgs)
	assert.Equal(t, 1, f.store.PermissionLevel())

	msgs = f.say(t, admin, "!!wp set_permission_level high")
	assert.Equal(t, []host.Message{reply(admin, prefix+"Permission level must be an integer: high")}, msgs)
	assert.Equal(t, 1, f.store.PermissionLevel())

	// raising the threshold to the admin's own level locks them out
	f.say(t, admin, "!!wp set_permission_level 3")
	msgs = f.say(t, admin, "!!wp set_world x")
	assert.Equal(t, []host.Message{reply(admin, prefix+"You do not have permission to set the world!")}, msgs)
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		command string
		denial  string
	}{
		{"!!wp add [name:a, x:1, y:2, z:3, dim:0]", "You do not have permission to add waypoints!"},
		{"!!wp add", "You do not have permission to add waypoints!"},
		{"!!wp addvoxel", "You do not have permission to add waypoints!"},
		{"!!wp addxaero", "You do not have permission to add waypoints!"},
		{"!!wp del a", "You do not have permission to delete waypoints!"},
		{"!!wp set_world w", "You do not have permission to set the world!"},
		{"!!wp set_permission_level 0", "You do not have permission to set the permission level!"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, core.Waypoint{Name: "a"})
			before := f.store.State()
			saves := f.backend.Saves()

			// level equal to the threshold is still rejected
			require.NoError(t, f.store.SetPermissionLevel(0))
			before.PermissionLevel = 0
			saves++

			msgs := f.say(t, guest, tt.command)

			assert.Equal(t, []host.Message{reply(guest, prefix+tt.denial)}, msgs)
			assert.Equal(t, before, f.store.State())
			assert.Equal(t, saves, f.backend.Saves())
			assert.Equal(t, 0, f.svc.deps.Sessions.Len())
		})
	}
}

func TestPermissions_ReadCommandsOpen(t *testing.T) {
	f := newFixture(t)
	f.seed(t, core.Waypoint{Name: "a"})
	require.NoError(t, f.store.SetPermissionLevel(100))

	assert.Len(t, f.say(t, guest, "!!wp list"), 1)
	assert.Len(t, f.say(t, guest, "!!wp search a"), 1)
	assert.Len(t, f.say(t, guest, "!!wp"), 1)
}

func TestStorageFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.backend.fail = true

	err := f.svc.HandleChat(context.Background(), host.PlayerSource(admin), "!!wp set_world x")
	assert.ErrorContains(t, err, "disk full")

	err = f.svc.HandleChat(context.Background(), host.PlayerSource(admin), "!!wp add [name:a, x:1, y:2, z:3, dim:0]")
	assert.ErrorContains(t, err, "disk full")
}

func TestLogAttrs(t *testing.T) {
	f := newFixture(t)
	f.seed(t, core.Waypoint{Name: "a"})
	require.NoError(t, f.store.SetWorld("w"))
	f.say(t, admin, "!!wp addvoxel")

	attrs := f.svc.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "w", attrs[0].Value.String())
	assert.Equal(t, int64(1), attrs[1].Value.Int64())
	assert.Equal(t, int64(1), attrs[2].Value.Int64())
}
