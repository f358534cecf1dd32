package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

func (e *Engine) get(id engine.ID) (window, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.windows[id]
	if !ok {
		return window{}, false
	}
	return *w, true
}

func (e *Engine) WindowHandle(id engine.ID) engine.Handle {
	w, _ := e.get(id)
	return engine.Handle(w.xid)
}

func (e *Engine) WindowOwner(id engine.ID) engine.Handle {
	w, _ := e.get(id)
	return engine.Handle(w.props.owner)
}

func (e *Engine) WindowParent(id engine.ID) engine.Handle {
	w, _ := e.get(id)
	return engine.Handle(w.props.parent)
}

func (e *Engine) WindowProcessID(id engine.ID) int {
	w, _ := e.get(id)
	return w.props.pid
}

// WindowThreadID is always zero: X has no notion of a window's thread
func (e *Engine) WindowThreadID(id engine.ID) int { return 0 }

func (e *Engine) WindowX(id engine.ID) int {
	w, _ := e.get(id)
	return w.props.x
}

func (e *Engine) WindowY(id engine.ID) int {
	w, _ := e.get(id)
	return w.props.y
}

func (e *Engine) WindowWidth(id engine.ID) int {
	w, _ := e.get(id)
	return w.props.width
}

func (e *Engine) WindowHeight(id engine.ID) int {
	w, _ := e.get(id)
	return w.props.height
}

func (e *Engine) WindowZOrder(id engine.ID) int {
	w, _ := e.get(id)
	return w.props.zOrder
}

// WindowBufferWidth is the window width: GetImage reads the whole window
func (e *Engine) WindowBufferWidth(id engine.ID) int { return e.WindowWidth(id) }

func (e *Engine) WindowBufferHeight(id engine.ID) int { return e.WindowHeight(id) }

// UpdateWindowTitle reads _NET_WM_NAME, falling back to WM_NAME
func (e *Engine) UpdateWindowTitle(id engine.ID) {
	e.mu.RLock()
	w, ok := e.windows[id]
	var xid xproto.Window
	if ok {
		xid = w.xid
	}
	e.mu.RUnlock()
	if !ok {
		return
	}

	title, err := ewmh.WmNameGet(e.xu, xid)
	if err != nil || title == "" {
		title, _ = icccm.WmNameGet(e.xu, xid)
	}

	e.mu.Lock()
	if w, ok := e.windows[id]; ok {
		w.title = title
	}
	e.mu.Unlock()
}

func (e *Engine) WindowTitleLength(id engine.ID) int {
	w, _ := e.get(id)
	return len(w.title)
}

func (e *Engine) WindowTitle(id engine.ID) string {
	w, _ := e.get(id)
	return w.title
}

func (e *Engine) IsWindow(id engine.ID) bool {
	_, ok := e.get(id)
	return ok
}

func (e *Engine) IsWindowVisible(id engine.ID) bool {
	w, _ := e.get(id)
	return w.props.viewable
}

// IsAltTabWindow approximates the task switcher's view: normal or dialog
// windows that do not ask to be skipped.
func (e *Engine) IsAltTabWindow(id engine.ID) bool {
	w, ok := e.get(id)
	if !ok || w.hasState("_NET_WM_STATE_SKIP_TASKBAR") {
		return false
	}
	if len(w.props.types) == 0 {
		return true
	}
	return w.hasType("_NET_WM_WINDOW_TYPE_NORMAL") || w.hasType("_NET_WM_WINDOW_TYPE_DIALOG")
}

func (e *Engine) IsDesktop(id engine.ID) bool {
	w, _ := e.get(id)
	return w.hasType("_NET_WM_WINDOW_TYPE_DESKTOP")
}

func (e *Engine) IsWindowEnabled(id engine.ID) bool { return e.IsWindow(id) }

func (e *Engine) IsWindowUnicode(id engine.ID) bool { return e.IsWindow(id) }

func (e *Engine) IsWindowZoomed(id engine.ID) bool {
	w, _ := e.get(id)
	return w.hasState("_NET_WM_STATE_MAXIMIZED_HORZ") && w.hasState("_NET_WM_STATE_MAXIMIZED_VERT")
}

func (e *Engine) IsWindowIconic(id engine.ID) bool {
	w, _ := e.get(id)
	return w.hasState("_NET_WM_STATE_HIDDEN")
}

func (e *Engine) IsWindowHungUp(id engine.ID) bool { return false }

func (e *Engine) IsWindowTouchable(id engine.ID) bool { return false }

// WindowCaptureMode reports the stored mode. X11 has a single capture path,
// so the mode is bookkeeping only.
func (e *Engine) WindowCaptureMode(id engine.ID) engine.CaptureMode {
	w, ok := e.get(id)
	if !ok {
		return engine.CaptureModeNone
	}
	return w.mode
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
	if w, ok := e.windows[id]; ok {
		w.texture = tex
	}
	e.mu.Unlock()
}

// RequestCaptureWindow queues a capture. A pending request for the same
// window is upgraded to the more urgent priority rather than duplicated.
func (e *Engine) RequestCaptureWindow(id engine.ID, priority engine.Priority) {
	if !e.IsWindow(id) {
		return
	}
	e.requests.push(id, priority)
}

func (e *Engine) MoveWindow(id engine.ID, x, y int) bool {
	w, ok := e.get(id)
	if !ok {
		return false
	}
	return e.moveResize(w.xid, x, y, w.props.width, w.props.height)
}

func (e *Engine) ScaleWindow(id engine.ID, width, height int) bool {
	w, ok := e.get(id)
	if !ok {
		return false
	}
	return e.moveResize(w.xid, w.props.x, w.props.y, width, height)
}

func (e *Engine) MoveAndScaleWindow(id engine.ID, x, y, width, height int) bool {
	w, ok := e.get(id)
	if !ok {
		return false
	}
	return e.moveResize(w.xid, x, y, width, height)
}

func (e *Engine) moveResize(xid xproto.Window, x, y, width, height int) bool {
	if err := ewmh.MoveresizeWindow(e.xu, xid, x, y, width, height); err != nil {
		e.errorf("failed to move window 0x%x: %v", uint32(xid), err)
		return false
	}
	return true
}

func (e *Engine) CursorPosition() engine.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursorPos
}

func (e *Engine) WindowFromPoint(x, y int) engine.Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.windowFromPointLocked(x, y)
}

func (e *Engine) WindowUnderCursor() engine.Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursor
}

func (e *Engine) ForegroundWindow() engine.Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

func (e *Engine) ScreenWidth() int {
	if e.screen == nil {
		return 0
	}
	return int(e.screen.WidthInPixels)
}

func (e *Engine) ScreenHeight() int {
	if e.screen == nil {
		return 0
	}
	return int(e.screen.HeightInPixels)
}
