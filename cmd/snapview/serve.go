package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapview/snapview"
	"github.com/snapview/snapview/config"
	"github.com/snapview/snapview/internal/testpattern"
)

const stopTimeout = 10 * time.Second

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the snapshot server with a synthetic frame producer.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the snapshot server",
	Long: `Start the SnapView snapshot server.

The server will:
  - Load configuration from the specified YAML file
  - Publish synthetic test-pattern frames at the configured interval
  - Serve the viewer page and raw snapshot on the configured address
  - Reload and restart when the config file changes

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  snapview serve -c config.yaml
  snapview serve --config /etc/snapview/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Verbose)
	logger.Info("config loaded",
		"camera", cfg.CameraName,
		"listen", cfg.ListenAddress(),
		"refresh_delay", cfg.RefreshDelay.Duration().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// config changes arrive here; the running server is torn down via the
	// regular stop handshake and rebuilt with the new config
	reload := make(chan *config.Config, 1)
	go func() {
		if err := config.Watch(ctx, configFile, logger, func(c *config.Config) {
			select {
			case reload <- c:
			default:
			}
		}); err != nil {
			logger.Error("config watch unavailable", "error", err)
		}
	}()

	for {
		next, err := serveOnce(ctx, cfg, logger, reload)
		if err != nil {
			return err
		}
		if next == nil {
			logger.Info("shutdown complete")
			return nil
		}
		logger.Info("restarting with new config")
		cfg = next
	}
}

// serveOnce runs one server instance until the context is cancelled or a new
// config arrives. Returns the new config on reload, nil on shutdown.
func serveOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, reload <-chan *config.Config) (*config.Config, error) {
	opts := append(config.BuildOptions(cfg), snapview.WithLogger(logger))

	sv, err := snapview.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create image server: %w", err)
	}

	if err := sv.Start(); err != nil {
		if errors.Is(err, snapview.ErrDisabled) {
			logger.Warn("server disabled by config; producing frames with no listener")
		} else {
			return nil, fmt.Errorf("failed to start image server: %w", err)
		}
	}

	gen := testpattern.New(cfg.Source.Width, cfg.Source.Height)
	ticker := time.NewTicker(cfg.Source.FrameInterval.Duration())
	defer ticker.Stop()

	stopServer := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := sv.Stop(stopCtx); err != nil {
			logger.Error("stop handshake failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopServer()
			return nil, nil

		case next := <-reload:
			stopServer()
			return next, nil

		case <-ticker.C:
			sv.Publish(gen.Next())
		}
	}
}
