package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCAP2/waypoints/internal/config"
	"github.com/OCAP2/waypoints/internal/dispatcher"
	"github.com/OCAP2/waypoints/internal/handlers"
	"github.com/OCAP2/waypoints/internal/host"
	"github.com/OCAP2/waypoints/internal/i18n"
	"github.com/OCAP2/waypoints/internal/logging"
	"github.com/OCAP2/waypoints/internal/monitor"
	"github.com/OCAP2/waypoints/internal/parser"
	"github.com/OCAP2/waypoints/internal/session"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve chat events from stdin",
	Long: `Reads host events from stdin, one per line:

  CHAT|<player>|<text>
  CONSOLE|<text>
  LEFT|<player>

Replies are written to stdout as TELL|<player>|<text> and broadcasts as
SAY|<text>.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, backend, err := openStore()
	if err != nil {
		return err
	}
	defer closeBackend(backend)

	hostCfg := config.GetHostConfig()

	tr, err := i18n.New(hostCfg.Locale)
	if err != nil {
		Logger.Warn("Failed to load locale, using default", "locale", hostCfg.Locale, "error", err)
		if tr, err = i18n.New(i18n.BaseLocale); err != nil {
			return err
		}
	}

	console := host.NewConsole(
		cmd.OutOrStdout(),
		host.NewPermissions(hostCfg.ConsoleLevel, hostCfg.DefaultLevel, hostCfg.PlayerLevels),
		!hostCfg.DisableColors,
		Logger,
	)

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return err
	}

	sessions := session.NewTracker()
	service = handlers.NewService(handlers.Dependencies{
		Store:         st,
		Sessions:      sessions,
		Host:          console,
		Parser:        parser.NewParser(Logger),
		Translator:    tr,
		Logger:        Logger,
		CommandPrefix: hostCfg.CommandPrefix,
	})
	service.RegisterHandlers(eventDispatcher)

	statusCfg := config.GetStatusConfig()
	monitorService, err := monitor.NewService(monitor.Dependencies{
		Store:      st,
		Sessions:   sessions,
		Logger:     Logger,
		Meter:      OTelProvider.Meter(logging.ServiceName),
		StatusFile: statusCfg.File,
		Interval:   statusCfg.Interval,
	})
	if err != nil {
		return err
	}
	monitorService.Start()
	defer monitorService.Stop()

	Logger.Info("Waypoint service ready",
		"storage", describe(backend),
		"locale", tr.Locale(),
		"prefix", hostCfg.CommandPrefix,
		"commands", eventDispatcher.Commands(),
	)

	err = console.Serve(ctx, cmd.InOrStdin(), monitorService.Wrap(service))
	if errors.Is(err, context.Canceled) {
		Logger.Info("Shutting down")
		return nil
	}
	if err != nil {
		Logger.Error("Service stopped", "error", err)
	}
	return err
}
