// Package gormstorage implements the storage.Backend interface on top of any
// GORM dialector. Driver-specific packages open the connection and embed Backend.
package gormstorage

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OCAP2/waypoints/pkg/core"
)

const (
	settingWorld           = "world"
	settingPermissionLevel = "permission_level"
)

// WaypointRecord is one row of the waypoints table.
// Position preserves insertion order across rewrites.
type WaypointRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Position  int    `gorm:"index"`
	Name      string `gorm:"uniqueIndex;not null"`
	X         int
	Y         int
	Z         int
	Dimension string `gorm:"not null"`
}

// TableName sets the table name
func (*WaypointRecord) TableName() string {
	return "waypoints"
}

// Setting is a scalar key/value row.
type Setting struct {
	Name  string `gorm:"primaryKey"`
	Value string
}

// TableName sets the table name
func (*Setting) TableName() string {
	return "settings"
}

// Models lists every table the backend migrates.
var Models = []any{
	&WaypointRecord{},
	&Setting{},
}

// Dependencies holds all dependencies needed by the backend
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// Backend persists registry state in two tables.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a new GORM-backed storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		db:  deps.DB,
		log: deps.Logger,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm storage: no database connection")
	}
	b.log.Debug().Msg("Migrating schema")
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying sql.DB.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Load reads the settings and all waypoint rows ordered by position.
// The state counts as persisted once the world setting row exists.
func (b *Backend) Load() (core.State, bool, error) {
	var state core.State

	var world Setting
	err := b.db.First(&world, "name = ?", settingWorld).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return state, false, nil
	}
	if err != nil {
		return state, false, fmt.Errorf("error reading settings: %w", err)
	}
	state.World = world.Value

	var level Setting
	err = b.db.First(&level, "name = ?", settingPermissionLevel).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		state.PermissionLevel = core.DefaultPermissionLevel
	case err != nil:
		return state, false, fmt.Errorf("error reading settings: %w", err)
	default:
		state.PermissionLevel, err = strconv.Atoi(level.Value)
		if err != nil {
			return state, false, fmt.Errorf("invalid %s setting %q: %w", settingPermissionLevel, level.Value, err)
		}
	}

	var rows []WaypointRecord
	if err := b.db.Order("position ASC").Find(&rows).Error; err != nil {
		return state, false, fmt.Errorf("error reading waypoints: %w", err)
	}

	state.Waypoints = make([]core.Waypoint, 0, len(rows))
	for _, r := range rows {
		dim, err := core.ParseDimension(r.Dimension)
		if err != nil {
			return state, false, fmt.Errorf("waypoint %q: %w", r.Name, err)
		}
		state.Waypoints = append(state.Waypoints, core.Waypoint{
			Name:      r.Name,
			X:         r.X,
			Y:         r.Y,
			Z:         r.Z,
			Dimension: dim,
		})
	}

	return state, true, nil
}

// Save rewrites both tables inside one transaction.
func (b *Backend) Save(state core.State) error {
	rows := make([]WaypointRecord, 0, len(state.Waypoints))
	for i, w := range state.Waypoints {
		rows = append(rows, WaypointRecord{
			Position:  i,
			Name:      w.Name,
			X:         w.X,
			Y:         w.Y,
			Z:         w.Z,
			Dimension: w.Dimension.String(),
		})
	}

	settings := []Setting{
		{Name: settingWorld, Value: state.World},
		{Name: settingPermissionLevel, Value: strconv.Itoa(state.PermissionLevel)},
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&WaypointRecord{}).Error; err != nil {
			return fmt.Errorf("error clearing waypoints: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("error writing waypoints: %w", err)
			}
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&settings).Error
		if err != nil {
			return fmt.Errorf("error writing settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.log.Debug().Int("waypoints", len(rows)).Msg("Saved state")
	return nil
}
