package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "waypoints.cfg.json"

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	YAML   YAMLConfig   `json:"yaml" mapstructure:"yaml"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	Badger BadgerConfig `json:"badger" mapstructure:"badger"`
}

// YAMLConfig holds settings for the human-editable YAML document backend
type YAMLConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SQLiteConfig holds settings for the SQLite backend
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// BadgerConfig holds settings for the embedded key-value backend
type BadgerConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// HostConfig holds settings for the console host adapter
type HostConfig struct {
	CommandPrefix string
	Locale        string
	ConsoleLevel  int
	DefaultLevel  int
	PlayerLevels  map[string]int
	DisableColors bool
}

// StatusConfig holds settings for the periodic status report
type StatusConfig struct {
	File     string
	Interval time.Duration
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
// Defaults stay in effect when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("locale", "en-US")
	viper.SetDefault("commandPrefix", "!!wp")

	viper.SetDefault("storage.type", "yaml")
	viper.SetDefault("storage.yaml.path", "./config/waypoint.yaml")
	viper.SetDefault("storage.sqlite.path", "./config/waypoint.db")
	viper.SetDefault("storage.badger.dir", "./config/waypoint.badger")

	// MCDReforged levels: guest 0, user 1, helper 2, admin 3, owner 4
	viper.SetDefault("permissions.console", 4)
	viper.SetDefault("permissions.default", 1)
	viper.SetDefault("permissions.players", map[string]any{})
	viper.SetDefault("console.disableColors", false)

	viper.SetDefault("status.file", "./logs/status.json")
	viper.SetDefault("status.interval", "10s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "waypoints")
	viper.SetDefault("otel.batchTimeout", "5s")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:   viper.GetString("storage.type"),
		YAML:   YAMLConfig{Path: viper.GetString("storage.yaml.path")},
		SQLite: SQLiteConfig{Path: viper.GetString("storage.sqlite.path")},
		Badger: BadgerConfig{Dir: viper.GetString("storage.badger.dir")},
	}
}

// GetHostConfig returns the console host settings.
func GetHostConfig() HostConfig {
	// viper lower-cases map keys, so player lookups are case-insensitive
	players := map[string]int{}
	for name, level := range viper.GetStringMap("permissions.players") {
		players[name] = toInt(level)
	}
	return HostConfig{
		CommandPrefix: viper.GetString("commandPrefix"),
		Locale:        viper.GetString("locale"),
		ConsoleLevel:  viper.GetInt("permissions.console"),
		DefaultLevel:  viper.GetInt("permissions.default"),
		PlayerLevels:  players,
		DisableColors: viper.GetBool("console.disableColors"),
	}
}

// GetStatusConfig returns the status section.
func GetStatusConfig() StatusConfig {
	return StatusConfig{
		File:     viper.GetString("status.file"),
		Interval: viper.GetDuration("status.interval"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
