package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/waypoints/internal/config"
	"github.com/OCAP2/waypoints/internal/handlers"
	"github.com/OCAP2/waypoints/internal/logging"
	intOtel "github.com/OCAP2/waypoints/internal/otel"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

var (
	// configDir holds waypoints.cfg.json
	configDir string

	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger feeds the dispatcher and storage adapters
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	logFile     *os.File
	otelLogFile *os.File

	// service is read by the log context provider once running
	service *handlers.Service
)

var rootCmd = &cobra.Command{
	Use:   "waypoints",
	Short: "Shared waypoint registry driven by game chat",
	Long: `waypoints keeps a server-wide list of named coordinates.

Players add, list, search and delete waypoints with chat commands, and can
paste VoxelMap or Xaero's Minimap share strings to add them in bulk.`,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return setup() },
	PersistentPostRun: func(cmd *cobra.Command, args []string) { teardown() },
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
}

// setup loads config and initializes logging and telemetry.
func setup() error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs dir", "error", err, "path", logsDir)
	}

	logFilePath := logging.LogFilePath(logsDir, logging.ServiceName, SessionStartTime)
	// keep the previous session's file if the timestamp collides
	if _, err := os.Stat(logFilePath); err == nil {
		_ = os.Rename(logFilePath, logFilePath+".old")
	}
	f, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	} else {
		logFile = f
	}

	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if otelCfg.Enabled {
		path := logging.LogFilePath(logsDir, otelCfg.ServiceName+".otel", SessionStartTime)
		otelLogFile, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open OTel log file: %w", err)
		}
		otelWriter = otelLogFile
	}

	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelWriter,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OTel: %w", err)
	}

	var out io.Writer
	if logFile != nil {
		out = logFile
	}

	SlogManager.SetContextProvider(func() []slog.Attr {
		if service == nil {
			return nil
		}
		return service.LogAttrs()
	})
	level := config.GetString("logLevel")
	SlogManager.Setup(out, level, OTelProvider.LoggerProvider())
	Logger = SlogManager.Logger()
	ZLogger = logging.NewZerolog(out, level)

	Logger.Info("Starting up...", "version", CurrentVersion, "buildDate", BuildDate)
	return nil
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel", "error", err)
		}
	}
	if otelLogFile != nil {
		_ = otelLogFile.Close()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}
