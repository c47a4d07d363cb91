// Package yamlstorage implements the storage.Backend interface as a single
// human-editable YAML document. Waypoints keep their insertion order on disk.
package yamlstorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/OCAP2/waypoints/pkg/core"
)

// Config holds configuration for the YAML storage backend.
type Config struct {
	Path string
}

// document is the on-disk layout.
type document struct {
	World           string    `yaml:"world"`
	PermissionLevel int       `yaml:"permission_level"`
	Waypoints       yaml.Node `yaml:"waypoints"`
}

type record struct {
	Name      string `yaml:"name"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Z         int    `yaml:"z"`
	Dimension string `yaml:"dimension"`
}

// Backend persists registry state to a YAML file.
type Backend struct {
	cfg Config
}

// New creates a new YAML storage backend.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init makes sure the parent directory exists.
func (b *Backend) Init() error {
	if b.cfg.Path == "" {
		return fmt.Errorf("yaml storage path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.Path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (b *Backend) Close() error {
	return nil
}

// Location returns the file path.
func (b *Backend) Location() string {
	return b.cfg.Path
}

// Load reads and decodes the document.
func (b *Backend) Load() (core.State, bool, error) {
	data, err := os.ReadFile(b.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("error reading %s: %w", b.cfg.Path, err)
	}

	state, err := Decode(data)
	if err != nil {
		return core.State{}, false, fmt.Errorf("error decoding %s: %w", b.cfg.Path, err)
	}
	return state, true, nil
}

// Save encodes state and replaces the file. The document is written to a
// temporary file in the same directory and renamed over the old one.
func (b *Backend) Save(state core.State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.cfg.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.cfg.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.cfg.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error replacing %s: %w", b.cfg.Path, err)
	}
	return nil
}

// Encode renders state as a YAML document.
func Encode(state core.State) ([]byte, error) {
	doc := document{
		World:           state.World,
		PermissionLevel: state.PermissionLevel,
		Waypoints: yaml.Node{
			Kind: yaml.MappingNode,
			Tag:  "!!map",
		},
	}

	for _, w := range state.Waypoints {
		key := &yaml.Node{}
		key.SetString(w.Name)

		value := &yaml.Node{}
		if err := value.Encode(record{
			Name:      w.Name,
			X:         w.X,
			Y:         w.Y,
			Z:         w.Z,
			Dimension: w.Dimension.String(),
		}); err != nil {
			return nil, fmt.Errorf("error encoding waypoint %q: %w", w.Name, err)
		}
		doc.Waypoints.Content = append(doc.Waypoints.Content, key, value)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding state: %w", err)
	}
	return data, nil
}

// Decode parses a YAML document into state.
// The record's own name field wins over the mapping key when both are present.
func Decode(data []byte) (core.State, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.State{}, err
	}

	state := core.State{
		World:           doc.World,
		PermissionLevel: doc.PermissionLevel,
		Waypoints:       []core.Waypoint{},
	}

	switch doc.Waypoints.Kind {
	case 0:
		return state, nil
	case yaml.ScalarNode:
		// "waypoints:" with no value decodes as null
		if doc.Waypoints.Tag == "!!null" {
			return state, nil
		}
		return core.State{}, fmt.Errorf("line %d: waypoints must be a mapping", doc.Waypoints.Line)
	case yaml.MappingNode:
	default:
		return core.State{}, fmt.Errorf("line %d: waypoints must be a mapping", doc.Waypoints.Line)
	}

	content := doc.Waypoints.Content
	for i := 0; i+1 < len(content); i += 2 {
		key, value := content[i], content[i+1]

		var r record
		if err := value.Decode(&r); err != nil {
			return core.State{}, fmt.Errorf("line %d: waypoint %q: %w", value.Line, key.Value, err)
		}
		if r.Name == "" {
			r.Name = key.Value
		}

		dim, err := core.ParseDimension(r.Dimension)
		if err != nil {
			return core.State{}, fmt.Errorf("line %d: waypoint %q: %w", value.Line, r.Name, err)
		}

		state.Waypoints = append(state.Waypoints, core.Waypoint{
			Name:      r.Name,
			X:         r.X,
			Y:         r.Y,
			Z:         r.Z,
			Dimension: dim,
		})
	}

	return state, nil
}
