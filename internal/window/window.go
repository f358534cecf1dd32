package window

import (
	"image"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

// Window is the registry record for one tracked OS window. Apart from the
// handle, id, alive flag and texture, every field is a live engine query, so
// holders never see a stale copy.
type Window struct {
	eng    engine.Engine
	handle engine.Handle
	id     engine.ID

	mu      sync.RWMutex
	alive   bool
	texture *engine.Texture
}

func newWindow(eng engine.Engine, handle engine.Handle, id engine.ID) *Window {
	return &Window{
		eng:    eng,
		handle: handle,
		id:     id,
		alive:  true,
	}
}

// Handle returns the OS handle
func (w *Window) Handle() engine.Handle { return w.handle }

// ID returns the engine id
func (w *Window) ID() engine.ID { return w.id }

// IsAlive is false once WindowRemoved for this handle has been processed
func (w *Window) IsAlive() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.alive
}

func (w *Window) markDead() {
	w.mu.Lock()
	w.alive = false
	w.mu.Unlock()
}

func (w *Window) Owner() engine.Handle  { return w.eng.WindowOwner(w.id) }
func (w *Window) Parent() engine.Handle { return w.eng.WindowParent(w.id) }
func (w *Window) ProcessID() int        { return w.eng.WindowProcessID(w.id) }
func (w *Window) ThreadID() int         { return w.eng.WindowThreadID(w.id) }

// IsChild reports whether the window has an owner
func (w *Window) IsChild() bool { return w.Owner() != 0 }

// IsRoot is the complement of IsChild
func (w *Window) IsRoot() bool { return w.Owner() == 0 }

func (w *Window) IsVisible() bool      { return w.eng.IsWindowVisible(w.id) }
func (w *Window) IsAltTabWindow() bool { return w.eng.IsAltTabWindow(w.id) }
func (w *Window) IsDesktop() bool      { return w.eng.IsDesktop(w.id) }
func (w *Window) IsEnabled() bool      { return w.eng.IsWindowEnabled(w.id) }
func (w *Window) IsUnicode() bool      { return w.eng.IsWindowUnicode(w.id) }
func (w *Window) IsZoomed() bool       { return w.eng.IsWindowZoomed(w.id) }
func (w *Window) IsMaximized() bool    { return w.IsZoomed() }
func (w *Window) IsIconic() bool       { return w.eng.IsWindowIconic(w.id) }
func (w *Window) IsMinimized() bool    { return w.IsIconic() }
func (w *Window) IsHungUp() bool       { return w.eng.IsWindowHungUp(w.id) }
func (w *Window) IsTouchable() bool    { return w.eng.IsWindowTouchable(w.id) }

// Title refreshes the engine's copy of the title and reads it back.
func (w *Window) Title() string {
	w.eng.UpdateWindowTitle(w.id)
	if w.eng.WindowTitleLength(w.id) == 0 {
		return ""
	}
	return w.eng.WindowTitle(w.id)
}

// Icon returns the window's icon once the engine has reported one
func (w *Window) Icon() (*image.RGBA, bool) { return w.eng.WindowIcon(w.id) }

func (w *Window) X() int            { return w.eng.WindowX(w.id) }
func (w *Window) Y() int            { return w.eng.WindowY(w.id) }
func (w *Window) Width() int        { return w.eng.WindowWidth(w.id) }
func (w *Window) Height() int       { return w.eng.WindowHeight(w.id) }
func (w *Window) ZOrder() int       { return w.eng.WindowZOrder(w.id) }
func (w *Window) BufferWidth() int  { return w.eng.WindowBufferWidth(w.id) }
func (w *Window) BufferHeight() int { return w.eng.WindowBufferHeight(w.id) }

// CaptureMode reads the mode back from the engine
func (w *Window) CaptureMode() engine.CaptureMode {
	return w.eng.WindowCaptureMode(w.id)
}

// SetCaptureMode forwards the mode to the engine
func (w *Window) SetCaptureMode(mode engine.CaptureMode) {
	w.eng.SetWindowCaptureMode(w.id, mode)
}

// Texture returns the currently bound capture texture, nil before the first
// allocation.
func (w *Window) Texture() *engine.Texture {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.texture
}

// UpdateTextureIfNeeded reallocates the texture when the engine's buffer size
// no longer matches it, then binds the new texture. A zero buffer dimension
// skips the update for this call. It reports whether a new texture was bound.
func (w *Window) UpdateTextureIfNeeded() bool {
	width, height := w.BufferWidth(), w.BufferHeight()
	if width == 0 || height == 0 {
		return false
	}

	w.mu.Lock()
	if w.texture != nil && w.texture.Width() == width && w.texture.Height() == height {
		w.mu.Unlock()
		return false
	}
	tex := engine.NewTexture(width, height)
	w.texture = tex
	w.mu.Unlock()

	// allocate before bind: the engine must never see a texture it could
	// write to after we dropped it
	w.eng.SetWindowTexture(w.id, tex)
	return true
}

// RequestCapture makes sure a texture of the right size is bound, then asks
// the engine to capture the window.
func (w *Window) RequestCapture(priority engine.Priority) {
	w.UpdateTextureIfNeeded()
	w.eng.RequestCaptureWindow(w.id, priority)
}

// Move moves the OS window
func (w *Window) Move(x, y int) bool {
	return w.eng.MoveWindow(w.id, x, y)
}

// Scale resizes the OS window
func (w *Window) Scale(width, height int) bool {
	return w.eng.ScaleWindow(w.id, width, height)
}

// Info is a point-in-time copy of a window's metadata for display and
// serialization. Nothing long-lived should hold one.
type Info struct {
	Handle       engine.Handle `json:"handle"`
	ID           engine.ID     `json:"id"`
	Title        string        `json:"title"`
	Owner        engine.Handle `json:"owner"`
	Parent       engine.Handle `json:"parent"`
	ProcessID    int           `json:"pid"`
	ThreadID     int           `json:"tid"`
	X            int           `json:"x"`
	Y            int           `json:"y"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	BufferWidth  int           `json:"buffer_width"`
	BufferHeight int           `json:"buffer_height"`
	ZOrder       int           `json:"z_order"`
	Visible      bool          `json:"visible"`
	AltTab       bool          `json:"alt_tab"`
	Desktop      bool          `json:"desktop"`
	Enabled      bool          `json:"enabled"`
	Zoomed       bool          `json:"zoomed"`
	Iconic       bool          `json:"iconic"`
	Hung         bool          `json:"hung"`
	Touchable    bool          `json:"touchable"`
	Unicode      bool          `json:"unicode"`
	CaptureMode  string        `json:"capture_mode"`
	HasIcon      bool          `json:"has_icon"`
	Alive        bool          `json:"alive"`
}

// Info snapshots the window's metadata
func (w *Window) Info() Info {
	_, hasIcon := w.Icon()
	return Info{
		Handle:       w.handle,
		ID:           w.id,
		Title:        w.Title(),
		Owner:        w.Owner(),
		Parent:       w.Parent(),
		ProcessID:    w.ProcessID(),
		ThreadID:     w.ThreadID(),
		X:            w.X(),
		Y:            w.Y(),
		Width:        w.Width(),
		Height:       w.Height(),
		BufferWidth:  w.BufferWidth(),
		BufferHeight: w.BufferHeight(),
		ZOrder:       w.ZOrder(),
		Visible:      w.IsVisible(),
		AltTab:       w.IsAltTabWindow(),
		Desktop:      w.IsDesktop(),
		Enabled:      w.IsEnabled(),
		Zoomed:       w.IsZoomed(),
		Iconic:       w.IsIconic(),
		Hung:         w.IsHungUp(),
		Touchable:    w.IsTouchable(),
		Unicode:      w.IsUnicode(),
		CaptureMode:  w.CaptureMode().String(),
		HasIcon:      hasIcon,
		Alive:        w.IsAlive(),
	}
}
