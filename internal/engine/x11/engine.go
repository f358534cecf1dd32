// Package x11 is the capture engine for X11 desktops. A poll goroutine
// enumerates top-level clients through EWMH and turns differences into
// messages; a worker goroutine services capture requests in priority order
// and writes pixels into the bound textures.
package x11

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

// Options configures an Engine
type Options struct {
	// Display overrides $DISPLAY
	Display string
	// PollInterval is how often the client list is re-read
	PollInterval time.Duration
}

// Engine implements engine.Engine against an X server
type Engine struct {
	opts Options

	xu               *xgbutil.XUtil
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool

	mu      sync.RWMutex
	nextID  engine.ID
	windows map[engine.ID]*window
	byXID   map[xproto.Window]engine.ID

	queue []engine.Message // produced since the last Update
	batch []engine.Message // visible to the consumer this tick

	cursor    engine.Handle
	cursorPos engine.Point
	active    engine.Handle

	logMu     sync.RWMutex
	debugMode engine.DebugMode
	logFn     engine.LogFunc
	errFn     engine.LogFunc

	requests *requestQueue
	stop     chan struct{}
	wg       sync.WaitGroup
	running  bool
	uploads  uint64
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine. Nothing connects to the X server until Initialize.
func New(opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	return &Engine{
		opts:     opts,
		nextID:   1,
		windows:  make(map[engine.ID]*window),
		byXID:    make(map[xproto.Window]engine.ID),
		requests: newRequestQueue(),
	}
}

// Initialize connects to the X server, enables Composite when available,
// reads the initial client list and starts the poll and capture goroutines.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	xu, err := xgbutil.NewConnDisplay(e.opts.Display)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to X server: %v", engine.ErrEngineInit, err)
	}

	e.xu = xu
	e.conn = xu.Conn()
	e.root = xu.RootWin()
	e.screen = xu.Screen()

	if err := composite.Init(e.conn); err != nil {
		e.errorf("Composite extension not available, obscured windows may capture blank: %v", err)
		e.compositeEnabled = false
	} else {
		e.compositeEnabled = true
		e.debugf("Composite extension initialized")
	}

	e.poll()

	e.mu.Lock()
	e.stop = make(chan struct{})
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.pollLoop()
	go e.captureLoop()

	e.debugf("x11 engine initialized on %dx%d screen", e.screen.WidthInPixels, e.screen.HeightInPixels)
	return nil
}

// Finalize stops the goroutines and closes the X connection
func (e *Engine) Finalize() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	e.mu.Unlock()

	e.wg.Wait()
	e.conn.Close()
	e.debugf("x11 engine finalized")
}

func (e *Engine) SetDebugMode(mode engine.DebugMode) {
	e.logMu.Lock()
	e.debugMode = mode
	e.logMu.Unlock()
}

func (e *Engine) SetLogFunc(fn engine.LogFunc) {
	e.logMu.Lock()
	e.logFn = fn
	e.logMu.Unlock()
}

func (e *Engine) SetErrorFunc(fn engine.LogFunc) {
	e.logMu.Lock()
	e.errFn = fn
	e.logMu.Unlock()
}

func (e *Engine) debugf(format string, args ...interface{}) {
	e.logMu.RLock()
	fn, mode := e.logFn, e.debugMode
	e.logMu.RUnlock()
	if fn != nil && mode != engine.DebugModeNone {
		fn(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) errorf(format string, args ...interface{}) {
	e.logMu.RLock()
	fn := e.errFn
	e.logMu.RUnlock()
	if fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}

// Update publishes everything queued since the previous Update as this
// tick's batch.
func (e *Engine) Update() {
	e.mu.Lock()
	e.batch = append(e.batch, e.queue...)
	e.queue = nil
	e.mu.Unlock()
}

// TriggerGPUUpload is a frame marker; textures are CPU side on X11.
func (e *Engine) TriggerGPUUpload() {
	e.mu.Lock()
	e.uploads++
	e.mu.Unlock()
}

func (e *Engine) MessageCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.batch)
}

func (e *Engine) MessageBatch() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return engine.EncodeMessages(e.batch)
}

func (e *Engine) ClearMessages() {
	e.mu.Lock()
	e.batch = nil
	e.mu.Unlock()
}

// enqueueLocked appends a message; e.mu must be held for writing
func (e *Engine) enqueueLocked(t engine.MessageType, w *window) {
	e.queue = append(e.queue, engine.Message{Type: t, ID: w.id, Handle: engine.Handle(w.xid)})
}
