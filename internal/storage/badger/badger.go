// Package badgerstorage implements the storage.Backend interface on an
// embedded Badger key-value store. Each waypoint is one key; an order key
// keeps insertion order.
package badgerstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v3"

	"github.com/OCAP2/waypoints/pkg/core"
)

var (
	keyWorld           = []byte("meta/world")
	keyPermissionLevel = []byte("meta/permission_level")
	keyOrder           = []byte("meta/order")
	waypointPrefix     = []byte("waypoint/")
)

// Config holds configuration for the Badger storage backend.
type Config struct {
	Dir      string
	InMemory bool
	Logger   badger.Logger // nil silences badger
}

type record struct {
	Name      string `json:"name"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Z         int    `json:"z"`
	Dimension string `json:"dimension"`
}

// Backend persists registry state in Badger.
type Backend struct {
	cfg Config
	db  *badger.DB
}

// New creates a new Badger storage backend. The database is opened by Init.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init opens the database.
func (b *Backend) Init() error {
	opts := badger.DefaultOptions(b.cfg.Dir)
	if b.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = b.cfg.Logger

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	b.db = db
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Location returns the database directory.
func (b *Backend) Location() string {
	if b.cfg.InMemory {
		return "badger:memory"
	}
	return b.cfg.Dir
}

// Load reads settings, the order index and every waypoint it names.
func (b *Backend) Load() (core.State, bool, error) {
	var state core.State
	found := false

	err := b.db.View(func(txn *badger.Txn) error {
		world, err := getValue(txn, keyWorld)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		state.World = string(world)

		state.PermissionLevel = core.DefaultPermissionLevel
		level, err := getValue(txn, keyPermissionLevel)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			state.PermissionLevel, err = strconv.Atoi(string(level))
			if err != nil {
				return fmt.Errorf("invalid permission level %q: %w", level, err)
			}
		}

		var order []string
		raw, err := getValue(txn, keyOrder)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &order); err != nil {
				return fmt.Errorf("invalid order index: %w", err)
			}
		}

		state.Waypoints = make([]core.Waypoint, 0, len(order))
		for _, name := range order {
			raw, err := getValue(txn, waypointKey(name))
			if err != nil {
				return fmt.Errorf("waypoint %q: %w", name, err)
			}
			var r record
			if err := json.Unmarshal(raw, &r); err != nil {
				return fmt.Errorf("waypoint %q: %w", name, err)
			}
			dim, err := core.ParseDimension(r.Dimension)
			if err != nil {
				return fmt.Errorf("waypoint %q: %w", name, err)
			}
			state.Waypoints = append(state.Waypoints, core.Waypoint{
				Name:      r.Name,
				X:         r.X,
				Y:         r.Y,
				Z:         r.Z,
				Dimension: dim,
			})
		}
		return nil
	})
	if err != nil {
		return core.State{}, false, fmt.Errorf("error reading state: %w", err)
	}
	return state, found, nil
}

// Save replaces every key in a single transaction.
func (b *Backend) Save(state core.State) error {
	order := make([]string, 0, len(state.Waypoints))
	for _, w := range state.Waypoints {
		order = append(order, w.Name)
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("error encoding order index: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		// drop stale waypoint keys
		var stale [][]byte
		it := txn.NewIterator(badger.IteratorOptions{Prefix: waypointPrefix})
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("error deleting %s: %w", k, err)
			}
		}

		for _, w := range state.Waypoints {
			data, err := json.Marshal(record{
				Name:      w.Name,
				X:         w.X,
				Y:         w.Y,
				Z:         w.Z,
				Dimension: w.Dimension.String(),
			})
			if err != nil {
				return fmt.Errorf("error encoding waypoint %q: %w", w.Name, err)
			}
			if err := txn.Set(waypointKey(w.Name), data); err != nil {
				return fmt.Errorf("error writing waypoint %q: %w", w.Name, err)
			}
		}

		if err := txn.Set(keyOrder, orderJSON); err != nil {
			return err
		}
		if err := txn.Set(keyPermissionLevel, []byte(strconv.Itoa(state.PermissionLevel))); err != nil {
			return err
		}
		return txn.Set(keyWorld, []byte(state.World))
	})
}

func waypointKey(name string) []byte {
	return append(append([]byte{}, waypointPrefix...), name...)
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
