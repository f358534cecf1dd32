// Package sim is an in-memory capture engine. It models a desktop that tests
// and demos script directly, and behaves like the native engine at the
// gateway boundary: messages are batched per Update, titles are read in two
// steps, and capture requests complete only when serviced.
package sim

import (
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"golang.org/x/image/draw"
)

// Spec describes a simulated window
type Spec struct {
	Title     string
	Owner     engine.Handle
	Parent    engine.Handle
	ProcessID int
	ThreadID  int

	X, Y          int
	Width, Height int
	// Buffer size starts at zero unless set; the first serviced capture
	// brings it in line with Width x Height.
	BufferWidth, BufferHeight int
	ZOrder                    int

	Visible   bool
	AltTab    bool
	Desktop   bool
	Iconic    bool
	Zoomed    bool
	Hung      bool
	Disabled  bool
	Touchable bool
}

// Options configures an Engine
type Options struct {
	// AutoCapture services pending capture requests on every Update
	AutoCapture bool
	// FailInit makes Initialize return this error
	FailInit     error
	ScreenWidth  int
	ScreenHeight int
}

// Request records one RequestCaptureWindow call
type Request struct {
	ID       engine.ID
	Handle   engine.Handle
	Priority engine.Priority
}

// Bind records one SetWindowTexture call
type Bind struct {
	ID      engine.ID
	Texture *engine.Texture
}

type window struct {
	id         engine.ID
	handle     engine.Handle
	spec       Spec
	titleCache string
	mode       engine.CaptureMode
	texture    *engine.Texture
	icon       *image.RGBA
}

// Engine is a scriptable engine.Engine
type Engine struct {
	mu   sync.Mutex
	opts Options

	nextID   engine.ID
	windows  map[engine.ID]*window
	byHandle map[engine.Handle]engine.ID

	queue []engine.Message // produced since the last Update
	batch []engine.Message // visible to the consumer this tick

	pending  map[engine.ID]engine.Priority
	requests []Request
	binds    []Bind

	cursor     engine.Handle
	cursorPos  engine.Point
	foreground engine.Handle

	initialized bool
	finalized   bool
	debugMode   engine.DebugMode
	logFn       engine.LogFunc
	errFn       engine.LogFunc
	ticks       int
	uploads     int
}

var _ engine.Engine = (*Engine)(nil)

// New creates an empty simulated desktop
func New(opts Options) *Engine {
	if opts.ScreenWidth == 0 {
		opts.ScreenWidth = 1920
	}
	if opts.ScreenHeight == 0 {
		opts.ScreenHeight = 1080
	}
	return &Engine{
		opts:     opts,
		nextID:   1,
		windows:  make(map[engine.ID]*window),
		byHandle: make(map[engine.Handle]engine.ID),
		pending:  make(map[engine.ID]engine.Priority),
	}
}

// AddWindow creates a window and queues WindowAdded for it
func (e *Engine) AddWindow(h engine.Handle, spec Spec) engine.ID {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.windows[id] = &window{
		id:     id,
		handle: h,
		spec:   spec,
		mode:   engine.CaptureModePrintWindow,
	}
	e.byHandle[h] = id
	e.queue = append(e.queue, engine.Message{Type: engine.MessageWindowAdded, ID: id, Handle: h})
	return id
}

// RemoveWindow destroys a window and queues WindowRemoved for it
func (e *Engine) RemoveWindow(h engine.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.byHandle[h]
	if !ok {
		return
	}
	delete(e.byHandle, h)
	delete(e.windows, id)
	delete(e.pending, id)
	e.queue = append(e.queue, engine.Message{Type: engine.MessageWindowRemoved, ID: id, Handle: h})
}

// Emit queues an arbitrary message, including kinds the consumer does not know
func (e *Engine) Emit(msg engine.Message) {
	e.mu.Lock()
	e.queue = append(e.queue, msg)
	e.mu.Unlock()
}

// Mutate edits a window's spec in place. It returns false for unknown handles.
func (e *Engine) Mutate(h engine.Handle, fn func(s *Spec)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.lookupHandleLocked(h)
	if w == nil {
		return false
	}
	fn(&w.spec)
	return true
}

// SetGeometry moves and resizes a window and queues WindowSizeChanged
func (e *Engine) SetGeometry(h engine.Handle, x, y, width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.lookupHandleLocked(h)
	if w == nil {
		return
	}
	resized := w.spec.Width != width || w.spec.Height != height
	w.spec.X, w.spec.Y, w.spec.Width, w.spec.Height = x, y, width, height
	if resized {
		e.queue = append(e.queue, engine.Message{Type: engine.MessageWindowSizeChanged, ID: w.id, Handle: h})
	}
}

// SetBufferSize sets the capture buffer dimensions directly
func (e *Engine) SetBufferSize(h engine.Handle, width, height int) {
	e.Mutate(h, func(s *Spec) {
		s.BufferWidth, s.BufferHeight = width, height
	})
}

// SetCursorWindow sets the window reported under the cursor
func (e *Engine) SetCursorWindow(h engine.Handle) {
	e.mu.Lock()
	e.cursor = h
	if w := e.lookupHandleLocked(h); w != nil {
		e.cursorPos = engine.Point{
			X: int32(w.spec.X + w.spec.Width/2),
			Y: int32(w.spec.Y + w.spec.Height/2),
		}
	}
	e.mu.Unlock()
}

// SetTitle changes a window's title. Readers see it after their next
// UpdateWindowTitle.
func (e *Engine) SetTitle(h engine.Handle, title string) {
	e.Mutate(h, func(s *Spec) { s.Title = title })
}

// SetIcon replaces a window's icon and queues IconCaptured for it
func (e *Engine) SetIcon(h engine.Handle, icon *image.RGBA) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.lookupHandleLocked(h)
	if w == nil {
		return
	}
	w.icon = icon
	e.queue = append(e.queue, engine.Message{Type: engine.MessageIconCaptured, ID: w.id, Handle: h})
}

// SetVisible shows or hides a window
func (e *Engine) SetVisible(h engine.Handle, visible bool) {
	e.Mutate(h, func(s *Spec) { s.Visible = visible })
}

// SetIconic minimizes or restores a window
func (e *Engine) SetIconic(h engine.Handle, iconic bool) {
	e.Mutate(h, func(s *Spec) { s.Iconic = iconic })
}

// SetZOrder sets a window's z-order, zero being front-most
func (e *Engine) SetZOrder(h engine.Handle, z int) {
	e.Mutate(h, func(s *Spec) { s.ZOrder = z })
}

// SetForegroundWindow sets the window reported as foreground
func (e *Engine) SetForegroundWindow(h engine.Handle) {
	e.mu.Lock()
	e.foreground = h
	e.mu.Unlock()
}

// CompleteCaptures services every pending request, highest priority first.
// A window whose buffer size is stale gets its buffer resized and a
// WindowSizeChanged instead of pixels; a window with a matching bound texture
// is filled and gets WindowCaptured.
func (e *Engine) CompleteCaptures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completeCapturesLocked()
}

func (e *Engine) completeCapturesLocked() {
	ids := make([]engine.ID, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := e.pending[ids[i]], e.pending[ids[j]]
		if pi != pj {
			return pi < pj
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		delete(e.pending, id)
		w, ok := e.windows[id]
		if !ok {
			continue
		}
		s := &w.spec
		if s.BufferWidth != s.Width || s.BufferHeight != s.Height {
			s.BufferWidth, s.BufferHeight = s.Width, s.Height
			e.queue = append(e.queue, engine.Message{Type: engine.MessageWindowSizeChanged, ID: id, Handle: w.handle})
			continue
		}
		if w.texture == nil || w.texture.Width() != s.BufferWidth || w.texture.Height() != s.BufferHeight {
			continue
		}
		fill := color.RGBA{R: uint8(id * 40), G: uint8(w.handle), B: 0x80, A: 0xff}
		w.texture.Write(func(img *image.RGBA) {
			draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
		})
		e.queue = append(e.queue, engine.Message{Type: engine.MessageWindowCaptured, ID: id, Handle: w.handle})
	}
}

// Requests returns every capture request made so far
func (e *Engine) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Request(nil), e.requests...)
}

// RequestsFor returns the capture requests made for one window
func (e *Engine) RequestsFor(h engine.Handle) []Request {
	var out []Request
	for _, r := range e.Requests() {
		if r.Handle == h {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded requests
func (e *Engine) ResetRequests() {
	e.mu.Lock()
	e.requests = nil
	e.mu.Unlock()
}

// TextureBinds returns every texture binding made so far
func (e *Engine) TextureBinds() []Bind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Bind(nil), e.binds...)
}

// Ticks returns how many times Update has been called
func (e *Engine) Ticks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// Uploads returns how many times TriggerGPUUpload has been called
func (e *Engine) Uploads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploads
}

// Initialized reports whether Initialize succeeded and Finalize has not run
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized && !e.finalized
}

// HasLogFuncs reports whether log and error callbacks are attached
func (e *Engine) HasLogFuncs() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logFn != nil && e.errFn != nil
}

func (e *Engine) lookupHandleLocked(h engine.Handle) *window {
	id, ok := e.byHandle[h]
	if !ok {
		return nil
	}
	return e.windows[id]
}

func (e *Engine) get(id engine.ID) (Spec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[id]
	if !ok {
		return Spec{}, false
	}
	return w.spec, true
}
