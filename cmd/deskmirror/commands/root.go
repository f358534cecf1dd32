package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/DeskMirror/internal/config"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/engine/sim"
	"github.com/bryanchriswhite/DeskMirror/internal/engine/x11"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "deskmirror",
		Short: "DeskMirror - mirror desktop windows into a live scene",
		Long: `DeskMirror tracks the windows on your desktop, captures each one at a
bounded rate and mirrors them, with their owner/child relationships, into a
scene of textured proxies.

Features:
  • Track windows as they appear, move, resize and disappear
  • Capture priority driven by cursor position and z-order
  • Child windows positioned relative to their owners
  • Per-window MJPEG streams and JPEG snapshots
  • Websocket event feed
  • Persistent, live-reloaded configuration`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if lvl := viper.GetString("log_level"); lvl != "" {
				logger.SetLevel(lvl)
			}
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/deskmirror/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "capture engine backend (x11 or sim)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("engine.backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file and applies flag overrides in memory
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	cfg := configMgr.Get()
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			cfg.ServerPort = port
		}
	}
	if viper.IsSet("log_level") {
		if lvl := viper.GetString("log_level"); lvl != "" {
			cfg.LogLevel = lvl
		}
	}
	if viper.IsSet("engine.backend") {
		if backend := viper.GetString("engine.backend"); backend != "" {
			cfg.Engine.Backend = backend
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return configMgr, cfg, nil
}

// newEngine builds the configured backend. The sim backend comes seeded with
// a demo desktop and services its own capture requests.
func newEngine(cfg *config.Config) engine.Engine {
	switch cfg.Engine.Backend {
	case config.BackendSim:
		e := sim.New(sim.Options{AutoCapture: true})
		sim.SeedDemo(e)
		return e
	default:
		return x11.New(x11.Options{})
	}
}
