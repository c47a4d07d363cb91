// Package sqlitestorage implements the storage.Backend interface using a SQLite
// database file. It wraps the GORM backend via composition; the only
// SQLite-specific concern is opening the connection.
package sqlitestorage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/OCAP2/waypoints/internal/database"
	gormstorage "github.com/OCAP2/waypoints/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path string // database file, empty for in-memory
}

// Backend wraps the GORM backend for SQLite.
type Backend struct {
	*gormstorage.Backend
	cfg Config
}

// New opens the database and creates a new SQLite storage backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:     db,
			Logger: log,
		}),
		cfg: cfg,
	}, nil
}

// Location returns the database path.
func (b *Backend) Location() string {
	if b.cfg.Path == "" {
		return database.MemoryDSN
	}
	return b.cfg.Path
}
