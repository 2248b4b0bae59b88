package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/cli"
	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/performance"
	"mercator-hq/beacon/pkg/server"
	"mercator-hq/beacon/pkg/telemetry"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Beacon HTTP server",
	Long: `Start the Beacon HTTP server with the specified configuration.

The server exposes metrics, stored traces, the performance monitor and
health probes. Every request is itself traced.

Examples:
  # Start with built-in defaults
  beacon serve

  # Start with custom config
  beacon serve --config /etc/beacon/beacon.yaml

  # Override listen address
  beacon serve --listen 0.0.0.0:9464

  # Validate config without starting server
  beacon serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	} else if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := serve(ctx, cfg, cfgFile, out); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// serve runs the server until ctx is done. path, when set, is watched
// for performance configuration changes if cfg.Performance.Watch is on.
func serve(ctx context.Context, cfg *config.Config, path string, out io.Writer, opts ...telemetry.Option) error {
	tel, err := telemetry.New(ctx, cfg, Version, opts...)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(out, "telemetry shutdown: %v\n", err)
		}
	}()
	logger := tel.Logger()

	scheduler := performance.NewScheduler(tel.Monitor(), cfg.Performance.ReportSchedule, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start report scheduler: %w", err)
	}
	defer scheduler.Stop()
	if next := scheduler.NextRun(); next != nil {
		logger.Debug("performance report scheduler started", "next_run", next.Format(time.RFC3339))
	}

	if cfg.Performance.Watch && path != "" {
		watcher, err := config.NewWatcher(path, 0, logger.Slog())
		if err != nil {
			return fmt.Errorf("failed to watch configuration: %w", err)
		}
		defer watcher.Stop()
		go func() {
			err := watcher.Watch(ctx, func(reloaded *config.Config) {
				if err := tel.ApplyPerformanceConfig(reloaded.Performance); err != nil {
					logger.Error("performance configuration rejected", "error", err)
				}
			})
			if err != nil {
				logger.Error("config watcher failed", "error", err)
			}
		}()
	}

	srv := server.NewServer(cfg.Server, tel, versionInfo(cfg.Telemetry.ServiceName))

	fmt.Fprintf(out, "Beacon v%s\n", Version)
	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
