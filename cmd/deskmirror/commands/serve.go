package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/DeskMirror/internal/api"
	"github.com/bryanchriswhite/DeskMirror/internal/app"
	"github.com/bryanchriswhite/DeskMirror/internal/config"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/output"
	"github.com/bryanchriswhite/DeskMirror/internal/overlay"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DeskMirror server",
	Long: `Start window tracking and capture, and serve the HTTP API.

The server exposes tracked windows, their proxies, per-window MJPEG streams
and a websocket event feed.`,
	Example: `  # Start server on default port (8080)
  deskmirror serve

  # Start server on custom port
  deskmirror serve --port 9090

  # Run against the simulated desktop, no X server needed
  deskmirror serve --backend sim

  # Start with debug logging
  deskmirror serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")

	log.Info().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Str("backend", cfg.Engine.Backend).
		Msg("Configuration loaded")

	appCtx, err := app.New(cfg, newEngine(cfg), app.Options{})
	if err != nil {
		return fmt.Errorf("failed to start capture engine: %w", err)
	}
	defer appCtx.Close()

	ov := overlay.NewManager(appCtx.Title)
	ov.Apply(cfg.Output)

	configMgr.OnChange(func(c *config.Config) {
		if err := appCtx.ApplyConfig(c); err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid configuration")
			return
		}
		ov.Apply(c.Output)
	})
	watcher, err := configMgr.Watch()
	if err != nil {
		log.Warn().Err(err).Msg("Config hot reload disabled")
	} else {
		defer watcher.Stop()
	}

	outCfg := output.DefaultConfig()
	outCfg.Quality = cfg.Output.Quality
	mjpeg := output.NewMJPEGOutput(outCfg)
	if err := mjpeg.Start(); err != nil {
		return err
	}
	defer mjpeg.Stop()

	dispatcher := appCtx.Windows().Dispatcher()
	events := dispatcher.Subscribe()
	defer dispatcher.Unsubscribe(events)

	server := api.NewServer(appCtx, configMgr, mjpeg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return appCtx.Run(gctx)
	})
	g.Go(func() error {
		output.Pump(gctx, events, appCtx, mjpeg, ov)
		return nil
	})
	g.Go(func() error {
		return server.Start(cfg.ServerPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info().
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("DeskMirror is running, press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Shutting down gracefully")
	return nil
}
