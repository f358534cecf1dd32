package sim

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opts.FailInit != nil {
		return fmt.Errorf("%w: %v", engine.ErrEngineInit, e.opts.FailInit)
	}
	e.initialized = true
	e.finalized = false
	if e.logFn != nil {
		e.logFn("sim engine initialized")
	}
	return nil
}

func (e *Engine) Finalize() {
	e.mu.Lock()
	e.finalized = true
	e.mu.Unlock()
}

func (e *Engine) SetDebugMode(mode engine.DebugMode) {
	e.mu.Lock()
	e.debugMode = mode
	e.mu.Unlock()
}

func (e *Engine) SetLogFunc(fn engine.LogFunc) {
	e.mu.Lock()
	e.logFn = fn
	e.mu.Unlock()
}

func (e *Engine) SetErrorFunc(fn engine.LogFunc) {
	e.mu.Lock()
	e.errFn = fn
	e.mu.Unlock()
}

// Update publishes everything queued since the previous Update as this
// tick's batch.
func (e *Engine) Update() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks++
	if e.opts.AutoCapture {
		e.completeCapturesLocked()
	}
	e.batch = append(e.batch, e.queue...)
	e.queue = nil
}

func (e *Engine) TriggerGPUUpload() {
	e.mu.Lock()
	e.uploads++
	e.mu.Unlock()
}

func (e *Engine) MessageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.batch)
}

func (e *Engine) MessageBatch() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.EncodeMessages(e.batch)
}

func (e *Engine) ClearMessages() {
	e.mu.Lock()
	e.batch = nil
	e.mu.Unlock()
}

func (e *Engine) WindowHandle(id engine.ID) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[id]; ok {
		return w.handle
	}
	return 0
}

func (e *Engine) WindowOwner(id engine.ID) engine.Handle {
	s, _ := e.get(id)
	return s.Owner
}

func (e *Engine) WindowParent(id engine.ID) engine.Handle {
	s, _ := e.get(id)
	return s.Parent
}

func (e *Engine) WindowProcessID(id engine.ID) int {
	s, _ := e.get(id)
	return s.ProcessID
}

func (e *Engine) WindowThreadID(id engine.ID) int {
	s, _ := e.get(id)
	return s.ThreadID
}

func (e *Engine) WindowX(id engine.ID) int {
	s, _ := e.get(id)
	return s.X
}

func (e *Engine) WindowY(id engine.ID) int {
	s, _ := e.get(id)
	return s.Y
}

func (e *Engine) WindowWidth(id engine.ID) int {
	s, _ := e.get(id)
	return s.Width
}

func (e *Engine) WindowHeight(id engine.ID) int {
	s, _ := e.get(id)
	return s.Height
}

func (e *Engine) WindowZOrder(id engine.ID) int {
	s, _ := e.get(id)
	return s.ZOrder
}

func (e *Engine) WindowBufferWidth(id engine.ID) int {
	s, _ := e.get(id)
	return s.BufferWidth
}

func (e *Engine) WindowBufferHeight(id engine.ID) int {
	s, _ := e.get(id)
	return s.BufferHeight
}

func (e *Engine) UpdateWindowTitle(id engine.ID) {
	e.mu.Lock()
	if w, ok := e.windows[id]; ok {
		w.titleCache = w.spec.Title
	}
	e.mu.Unlock()
}

func (e *Engine) WindowTitleLength(id engine.ID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[id]; ok {
		return len([]rune(w.titleCache))
	}
	return 0
}

func (e *Engine) WindowTitle(id engine.ID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[id]; ok {
		return w.titleCache
	}
	return ""
}

func (e *Engine) WindowIcon(id engine.ID) (*image.RGBA, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[id]; ok && w.icon != nil {
		return w.icon, true
	}
	return nil, false
}

func (e *Engine) IsWindow(id engine.ID) bool {
	_, ok := e.get(id)
	return ok
}

func (e *Engine) IsWindowVisible(id engine.ID) bool {
	s, _ := e.get(id)
	return s.Visible
}

func (e *Engine) IsAltTabWindow(id engine.ID) bool {
	s, _ := e.get(id)
	return s.AltTab
}

func (e *Engine) IsDesktop(id engine.ID) bool {
	s, _ := e.get(id)
	return s.Desktop
}

func (e *Engine) IsWindowEnabled(id engine.ID) bool {
	s, ok := e.get(id)
	return ok && !s.Disabled
}

func (e *Engine) IsWindowUnicode(id engine.ID) bool {
	_, ok := e.get(id)
	return ok
}

func (e *Engine) IsWindowZoomed(id engine.ID) bool {
	s, _ := e.get(id)
	return s.Zoomed
}

func (e *Engine) IsWindowIconic(id engine.ID) bool {
	s, _ := e.get(id)
	return s.Iconic
}

func (e *Engine) IsWindowHungUp(id engine.ID) bool {
	s, _ := e.get(id)
	return s.Hung
}

func (e *Engine) IsWindowTouchable(id engine.ID) bool {
	s, _ := e.get(id)
	return s.Touchable
}

func (e *Engine) WindowCaptureMode(id engine.ID) engine.CaptureMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[id]; ok {
		return w.mode
	}
	return engine.CaptureModeNone
}

func (e *Engine) SetWindowCaptureMode(id engine.ID, mode engine.CaptureMode) {
	e.mu.Lock()
	if w, ok := e.windows[id]; ok {
		w.mode = mode
	}
	e.mu.Unlock()
}

func (e *Engine) SetWindowTexture(id engine.ID, tex *engine.Texture) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.binds = append(e.binds, Bind{ID: id, Texture: tex})
	if w, ok := e.windows[id]; ok {
		w.texture = tex
	}
}

// RequestCaptureWindow records the request and coalesces it with any pending
// one for the same window, keeping the more urgent priority.
func (e *Engine) RequestCaptureWindow(id engine.ID, priority engine.Priority) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.windows[id]
	if !ok {
		return
	}
	e.requests = append(e.requests, Request{ID: id, Handle: w.handle, Priority: priority})
	if cur, ok := e.pending[id]; !ok || priority < cur {
		e.pending[id] = priority
	}
}

func (e *Engine) MoveWindow(id engine.ID, x, y int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[id]
	if !ok {
		return false
	}
	w.spec.X, w.spec.Y = x, y
	return true
}

func (e *Engine) ScaleWindow(id engine.ID, width, height int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[id]
	if !ok {
		return false
	}
	w.spec.Width, w.spec.Height = width, height
	e.queue = append(e.queue, engine.Message{Type: engine.MessageWindowSizeChanged, ID: id, Handle: w.handle})
	return true
}

func (e *Engine) MoveAndScaleWindow(id engine.ID, x, y, width, height int) bool {
	return e.MoveWindow(id, x, y) && e.ScaleWindow(id, width, height)
}

func (e *Engine) CursorPosition() engine.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursorPos
}

// WindowFromPoint returns the front-most visible window containing (x, y)
func (e *Engine) WindowFromPoint(x, y int) engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	var best *window
	for _, w := range e.windows {
		s := w.spec
		if !s.Visible || s.Iconic {
			continue
		}
		if x < s.X || y < s.Y || x >= s.X+s.Width || y >= s.Y+s.Height {
			continue
		}
		if best == nil || s.ZOrder < best.spec.ZOrder {
			best = w
		}
	}
	if best == nil {
		return 0
	}
	return best.handle
}

func (e *Engine) WindowUnderCursor() engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *Engine) ForegroundWindow() engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.foreground
}

func (e *Engine) ScreenWidth() int {
	return e.opts.ScreenWidth
}

func (e *Engine) ScreenHeight() int {
	return e.opts.ScreenHeight
}
