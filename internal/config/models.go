package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by engine.backend
const (
	BackendX11 = "x11"
	BackendSim = "sim"
)

// Capture mode names accepted by capture.mode
var captureModes = map[string]bool{
	"none":         true,
	"print_window": true,
	"bitblt":       true,
	"bitblt_alpha": true,
	"wgc":          true,
}

// Priority names accepted by capture.priority
var priorities = map[string]bool{
	"auto":   true,
	"high":   true,
	"middle": true,
	"low":    true,
}

// Overlay widget types accepted in output.widgets
const (
	WidgetLabel  = "label"
	WidgetBorder = "border"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// EngineConfig selects and paces the external capture engine
type EngineConfig struct {
	Backend   string `json:"backend" yaml:"backend" mapstructure:"backend"`
	TickHz    int    `json:"tick_hz" yaml:"tick_hz" mapstructure:"tick_hz"`
	DebugMode string `json:"debug_mode" yaml:"debug_mode" mapstructure:"debug_mode"`
}

// CaptureConfig holds the per-proxy capture scheduling defaults
type CaptureConfig struct {
	FrameRate       float64 `json:"frame_rate" yaml:"frame_rate" mapstructure:"frame_rate"`
	NearFrontZOrder int     `json:"near_front_z_order" yaml:"near_front_z_order" mapstructure:"near_front_z_order"`
	Mode            string  `json:"mode" yaml:"mode" mapstructure:"mode"`
	Priority        string  `json:"priority" yaml:"priority" mapstructure:"priority"`
}

// SceneConfig controls how proxies are placed in the scene
type SceneConfig struct {
	// BasePixel is the number of desktop pixels per scene unit
	BasePixel float64 `json:"base_pixel" yaml:"base_pixel" mapstructure:"base_pixel"`
	// ZDistance is the scene offset per z-order step between a child and its parent
	ZDistance   float64 `json:"z_distance" yaml:"z_distance" mapstructure:"z_distance"`
	Template    string  `json:"template" yaml:"template" mapstructure:"template"`
	Layout      string  `json:"layout" yaml:"layout" mapstructure:"layout"`
	LayoutScale float64 `json:"layout_scale" yaml:"layout_scale" mapstructure:"layout_scale"`
}

// WidgetConfig describes one overlay widget. Colors are "#rrggbb" or
// "#rrggbbaa"; label text may use {title} and {handle}.
type WidgetConfig struct {
	ID         string  `json:"id" yaml:"id" mapstructure:"id"`
	Type       string  `json:"type" yaml:"type" mapstructure:"type"`
	Text       string  `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
	X          int     `json:"x" yaml:"x" mapstructure:"x"`
	Y          int     `json:"y" yaml:"y" mapstructure:"y"`
	Width      int     `json:"width,omitempty" yaml:"width,omitempty" mapstructure:"width"`
	Opacity    float64 `json:"opacity" yaml:"opacity" mapstructure:"opacity"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
	Background string  `json:"background,omitempty" yaml:"background,omitempty" mapstructure:"background"`
	Disabled   bool    `json:"disabled,omitempty" yaml:"disabled,omitempty" mapstructure:"disabled"`
}

// OutputConfig controls the MJPEG streams
type OutputConfig struct {
	Quality int            `json:"quality" yaml:"quality" mapstructure:"quality"`
	Overlay bool           `json:"overlay" yaml:"overlay" mapstructure:"overlay"`
	Widgets []WidgetConfig `json:"widgets" yaml:"widgets" mapstructure:"widgets"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int           `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel   string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	Engine     EngineConfig  `json:"engine" yaml:"engine" mapstructure:"engine"`
	Capture    CaptureConfig `json:"capture" yaml:"capture" mapstructure:"capture"`
	Scene      SceneConfig   `json:"scene" yaml:"scene" mapstructure:"scene"`
	Output     OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Engine: EngineConfig{
			Backend:   BackendX11,
			TickHz:    60,
			DebugMode: "file",
		},
		Capture: CaptureConfig{
			FrameRate:       10,
			NearFrontZOrder: 3,
			Mode:            "print_window",
			Priority:        "auto",
		},
		Scene: SceneConfig{
			BasePixel:   1000,
			ZDistance:   0.02,
			Template:    "window",
			Layout:      "",
			LayoutScale: 1,
		},
		Output: OutputConfig{
			Quality: 90,
			Overlay: false,
			Widgets: []WidgetConfig{
				{
					ID:         "title",
					Type:       WidgetLabel,
					Text:       "{title}",
					X:          8,
					Y:          8,
					Opacity:    0.9,
					Color:      "#ffffff",
					Background: "#000000b0",
				},
			},
		},
	}
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: server_port %d out of range", ErrInvalidConfig, c.ServerPort)
	}
	switch c.Engine.Backend {
	case BackendX11, BackendSim:
	default:
		return fmt.Errorf("%w: unknown engine.backend %q", ErrInvalidConfig, c.Engine.Backend)
	}
	if c.Engine.TickHz <= 0 {
		return fmt.Errorf("%w: engine.tick_hz must be positive", ErrInvalidConfig)
	}
	if c.Capture.FrameRate <= 0 {
		return fmt.Errorf("%w: capture.frame_rate must be positive", ErrInvalidConfig)
	}
	if !captureModes[c.Capture.Mode] {
		return fmt.Errorf("%w: unknown capture.mode %q", ErrInvalidConfig, c.Capture.Mode)
	}
	if !priorities[c.Capture.Priority] {
		return fmt.Errorf("%w: unknown capture.priority %q", ErrInvalidConfig, c.Capture.Priority)
	}
	if c.Scene.BasePixel <= 0 {
		return fmt.Errorf("%w: scene.base_pixel must be positive", ErrInvalidConfig)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("%w: output.quality %d out of range", ErrInvalidConfig, c.Output.Quality)
	}
	for _, w := range c.Output.Widgets {
		switch w.Type {
		case WidgetLabel, WidgetBorder:
		default:
			return fmt.Errorf("%w: unknown widget type %q for %q", ErrInvalidConfig, w.Type, w.ID)
		}
		if w.ID == "" {
			return fmt.Errorf("%w: output widget without id", ErrInvalidConfig)
		}
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex

	listenersMu sync.Mutex
	listeners   []func(*Config)
}

// DefaultPath returns $HOME/.config/deskmirror/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "deskmirror", "config.yaml"), nil
}

// NewManager creates a new configuration manager. An empty configFile selects
// DefaultPath. A missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("backend", m.config.Engine.Backend).
		Float64("frame_rate", m.config.Capture.FrameRate).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk. Missing keys keep their defaults.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Reload re-reads the file and notifies OnChange listeners. On failure the
// previous configuration stays active.
func (m *Manager) Reload() error {
	if err := m.load(); err != nil {
		return err
	}
	m.notify()
	return nil
}

// OnChange registers fn to be called with a copy of the config after every
// successful Reload or Update.
func (m *Manager) OnChange(fn func(*Config)) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

func (m *Manager) notify() {
	cfg := m.Get()
	m.listenersMu.Lock()
	listeners := append([]func(*Config){}, m.listeners...)
	m.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to write config")
		return err
	}

	log.Debug().Str("path", m.configPath).Msg("Config saved")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c := *cfg
	m.mu.Lock()
	m.config = &c
	m.mu.Unlock()
	if err := m.Save(); err != nil {
		return err
	}
	m.notify()
	return nil
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	cfg := m.Get()
	cfg.ServerPort = port
	return m.Update(cfg)
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	cfg := m.Get()
	cfg.LogLevel = level
	return m.Update(cfg)
}

// SetBackend selects the engine backend
func (m *Manager) SetBackend(backend string) error {
	cfg := m.Get()
	cfg.Engine.Backend = backend
	return m.Update(cfg)
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
