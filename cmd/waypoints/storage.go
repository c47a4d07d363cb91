package main

import (
	"fmt"

	"github.com/OCAP2/waypoints/internal/config"
	"github.com/OCAP2/waypoints/internal/logging"
	"github.com/OCAP2/waypoints/internal/storage"
	badgerstorage "github.com/OCAP2/waypoints/internal/storage/badger"
	"github.com/OCAP2/waypoints/internal/storage/memory"
	sqlitestorage "github.com/OCAP2/waypoints/internal/storage/sqlite"
	yamlstorage "github.com/OCAP2/waypoints/internal/storage/yaml"
	"github.com/OCAP2/waypoints/internal/store"
)

// openStore creates and initializes the configured backend and loads the
// registry from it. The caller closes the returned backend.
func openStore() (*store.Store, storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, nil, err
	}

	st, err := store.Open(backend, Logger)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return st, backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path: storageCfg.SQLite.Path,
		}, ZLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "badger":
		Logger.Info("Badger storage backend initialized", "dir", storageCfg.Badger.Dir)
		return badgerstorage.New(badgerstorage.Config{
			Dir:    storageCfg.Badger.Dir,
			Logger: logging.NewBadgerLogger(ZLogger),
		}), nil

	case "memory":
		Logger.Info("Memory storage backend initialized")
		return memory.New(), nil

	case "yaml", "":
		Logger.Info("YAML storage backend initialized", "path", storageCfg.YAML.Path)
		return yamlstorage.New(yamlstorage.Config{Path: storageCfg.YAML.Path}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}

func closeBackend(backend storage.Backend) {
	if err := backend.Close(); err != nil {
		Logger.Warn("Failed to close storage backend", "error", err)
	}
}

func describe(backend storage.Backend) string {
	if d, ok := backend.(storage.Describer); ok {
		return d.Location()
	}
	return fmt.Sprintf("%T", backend)
}
