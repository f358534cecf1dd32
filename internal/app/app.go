// Package app wires the engine, window registry, proxies and scene into one
// context object driven by a tick loop.
package app

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/DeskMirror/internal/config"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/layout"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/proxy"
	"github.com/bryanchriswhite/DeskMirror/internal/scene"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
)

// LayoutHorizontal is the scene.layout value that enables layout.Horizontal
const LayoutHorizontal = "horizontal"

// Options tunes New
type Options struct {
	// Library supplies proxy templates; nil uses scene.NewLibrary
	Library *scene.Library
}

// Context owns every long-lived component. Tick mutates state under the
// write lock; readers such as HTTP handlers go through Read.
type Context struct {
	mu sync.RWMutex

	cfg     *config.Config
	eng     engine.Engine
	windows *window.Manager
	proxies *proxy.Manager
	root    *scene.Node
	library *scene.Library
	layout  *layout.Horizontal

	ticks  uint64
	closed bool
}

// SettingsFromConfig converts the capture and scene sections into proxy
// settings.
func SettingsFromConfig(cfg *config.Config) (proxy.Settings, error) {
	mode, err := engine.ParseCaptureMode(cfg.Capture.Mode)
	if err != nil {
		return proxy.Settings{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	priority, err := engine.ParsePriority(cfg.Capture.Priority)
	if err != nil {
		return proxy.Settings{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return proxy.Settings{
		FrameRate:       cfg.Capture.FrameRate,
		NearFrontZOrder: cfg.Capture.NearFrontZOrder,
		Priority:        priority,
		CaptureMode:     mode,
		BasePixel:       cfg.Scene.BasePixel,
		ZDistance:       cfg.Scene.ZDistance,
	}, nil
}

// New initializes eng and builds the context around it. An engine
// initialization failure is returned wrapping engine.ErrEngineInit and
// leaves nothing running.
func New(cfg *config.Config, eng engine.Engine, opts Options) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	library := opts.Library
	if library == nil {
		library = scene.NewLibrary()
	}

	c := &Context{
		cfg:     cfg,
		eng:     eng,
		windows: window.NewManager(eng),
		root:    scene.NewNode("root"),
		library: library,
	}

	if err := c.windows.Start(engine.ParseDebugMode(cfg.Engine.DebugMode)); err != nil {
		return nil, err
	}

	c.proxies = proxy.NewManager(c.windows, c.root, c.template(cfg.Scene.Template), settings)
	if cfg.Scene.Layout == LayoutHorizontal {
		c.layout = layout.NewHorizontal(cfg.Scene.LayoutScale)
		c.layout.BasePixel = cfg.Scene.BasePixel
		c.proxies.AddLayouter(c.layout)
	}
	c.proxies.Start()

	logger.WithComponent("app").Info().
		Str("backend", cfg.Engine.Backend).
		Str("template", cfg.Scene.Template).
		Str("layout", cfg.Scene.Layout).
		Float64("frame_rate", settings.FrameRate).
		Msg("Context ready")
	return c, nil
}

// template resolves a prefab name. An unknown name yields no template, so
// windows are still tracked but get no proxy.
func (c *Context) template(name string) proxy.Template {
	p, ok := c.library.Lookup(name)
	if !ok {
		logger.WithComponent("app").Warn().
			Str("template", name).
			Strs("available", c.library.Names()).
			Msg("Proxy template not found")
		return nil
	}
	return p
}

// Tick advances one frame: engine update and message drain, proxy
// scheduling, child transforms, layout, then the GPU upload trigger.
func (c *Context) Tick(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.windows.Update()
	c.proxies.Update(dt)
	c.eng.TriggerGPUUpload()
	c.ticks++
}

// Run ticks at engine.tick_hz until ctx is done
func (c *Context) Run(ctx context.Context) error {
	c.mu.RLock()
	hz := c.cfg.Engine.TickHz
	c.mu.RUnlock()
	if hz <= 0 {
		hz = 60
	}

	log := logger.WithComponent("app")
	log.Info().Int("tick_hz", hz).Msg("Tick loop started")

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Tick loop stopped")
			return nil
		case now := <-ticker.C:
			c.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
}

// ApplyConfig pushes a reloaded config into the running context. Backend,
// tick rate and port changes need a restart.
func (c *Context) ApplyConfig(cfg *config.Config) error {
	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.Engine.Backend != c.cfg.Engine.Backend || cfg.Engine.TickHz != c.cfg.Engine.TickHz {
		logger.WithComponent("app").Warn().Msg("Engine settings changed, restart to apply")
	}
	if cfg.Scene.Template != c.cfg.Scene.Template {
		c.proxies.SetTemplate(c.template(cfg.Scene.Template))
	}
	if c.layout != nil {
		c.layout.Scale = cfg.Scene.LayoutScale
		c.layout.BasePixel = cfg.Scene.BasePixel
	}
	c.proxies.SetSettings(settings)
	logger.SetLevel(cfg.LogLevel)
	c.cfg = cfg

	logger.WithComponent("app").Info().Msg("Configuration applied")
	return nil
}

// Read runs fn with the context locked against Tick
func (c *Context) Read(fn func(c *Context)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c)
}

// Write runs fn with exclusive access, for mutations from outside the loop
func (c *Context) Write(fn func(c *Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Config returns the active configuration; callers must hold Read or Write.
func (c *Context) Config() *config.Config { return c.cfg }

// Engine returns the capture engine
func (c *Context) Engine() engine.Engine { return c.eng }

// Windows returns the window manager. Its state is only consistent under
// Read or Write.
func (c *Context) Windows() *window.Manager { return c.windows }

// Proxies returns the proxy manager. Its state is only consistent under
// Read or Write.
func (c *Context) Proxies() *proxy.Manager { return c.proxies }

// Root returns the scene root; callers must hold Read or Write.
func (c *Context) Root() *scene.Node { return c.root }

// Frame returns a copy of the last captured pixels of window h. It is safe
// to call from any goroutine.
func (c *Context) Frame(h engine.Handle) (*image.RGBA, bool) {
	c.mu.RLock()
	w := c.windows.Find(h)
	c.mu.RUnlock()
	if w == nil {
		return nil, false
	}
	tex := w.Texture()
	if tex == nil || tex.Frames() == 0 {
		return nil, false
	}
	return tex.Snapshot(), true
}

// Title returns the current title of window h. It is safe to call from any
// goroutine.
func (c *Context) Title(h engine.Handle) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w := c.windows.Find(h)
	if w == nil {
		return "", false
	}
	return w.Title(), true
}

// Ticks returns how many frames have run
func (c *Context) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// Close unsubscribes the proxies and finalizes the engine
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.proxies.Stop()
	c.windows.Stop()
	logger.WithComponent("app").Info().Uint64("ticks", c.ticks).Msg("Context closed")
}
