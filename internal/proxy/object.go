// Package proxy pairs every eligible tracked window with a scene node,
// schedules its capture requests and keeps child windows positioned
// relative to their parents.
package proxy

import (
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/scene"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
	"golang.org/x/image/math/f64"
)

// State is where a proxy is in its capture lifecycle
type State int

const (
	// StateUncaptured: no WindowCaptured seen yet, the surface is hidden
	StateUncaptured State = iota
	// StateCaptured: at least one capture landed; one-way
	StateCaptured
)

func (s State) String() string {
	if s == StateCaptured {
		return "captured"
	}
	return "uncaptured"
}

// Settings are the scheduling and placement parameters shared by all proxies
type Settings struct {
	FrameRate       float64
	NearFrontZOrder int
	Priority        engine.Priority
	CaptureMode     engine.CaptureMode
	BasePixel       float64
	ZDistance       float64
}

// DefaultSettings mirror config.Defaults
func DefaultSettings() Settings {
	return Settings{
		FrameRate:       10,
		NearFrontZOrder: 3,
		Priority:        engine.PriorityAuto,
		CaptureMode:     engine.CaptureModePrintWindow,
		BasePixel:       1000,
		ZDistance:       0.02,
	}
}

// FrameInfo is the per-frame context every proxy is evaluated against
type FrameInfo struct {
	CursorHandle    engine.Handle
	NearFrontZOrder int
}

// Object is the scene proxy for one window
type Object struct {
	window *window.Window
	parent engine.Handle
	node   *scene.Node

	captureMode engine.CaptureMode
	priority    engine.Priority
	frameRate   float64
	basePixel   float64
	elapsed     float64

	state        State
	valid        bool
	visible      bool
	lastPriority engine.Priority
	requestCount int
	sizeChanged  bool
	frameRateSet bool
}

func newObject(w *window.Window, parent engine.Handle, node *scene.Node, s Settings) *Object {
	o := &Object{
		window:       w,
		parent:       parent,
		node:         node,
		captureMode:  s.CaptureMode,
		priority:     s.Priority,
		frameRate:    s.FrameRate,
		basePixel:    s.BasePixel,
		valid:        true,
		lastPriority: engine.PriorityLow,
	}
	// primed so a new proxy asks for its first frame right away
	o.elapsed = o.period()
	w.SetCaptureMode(o.captureMode)
	return o
}

// Window returns the registry record this proxy mirrors
func (o *Object) Window() *window.Window { return o.window }

// Handle returns the mirrored window's handle
func (o *Object) Handle() engine.Handle { return o.window.Handle() }

// ParentHandle is the handle of the parent proxy's window, zero for roots.
// Resolve it through Manager.Find; a proxy never holds its parent directly.
func (o *Object) ParentHandle() engine.Handle { return o.parent }

// IsChild reports whether the proxy was placed under another proxy
func (o *Object) IsChild() bool { return o.parent != 0 }

// Node returns the proxy's scene node
func (o *Object) Node() *scene.Node { return o.node }

func (o *Object) State() State       { return o.state }
func (o *Object) HasCaptured() bool  { return o.state == StateCaptured }
func (o *Object) IsValid() bool      { return o.valid }
func (o *Object) IsVisible() bool    { return o.visible }
func (o *Object) RequestCount() int  { return o.requestCount }
func (o *Object) Elapsed() float64   { return o.elapsed }
func (o *Object) FrameRate() float64 { return o.frameRate }

// Priority returns the configured priority, possibly PriorityAuto
func (o *Object) Priority() engine.Priority { return o.priority }

// SetPriority sets a manual priority, or PriorityAuto
func (o *Object) SetPriority(p engine.Priority) { o.priority = p }

// SetFrameRate overrides the shared capture rate for this proxy.
// Non-positive rates are ignored.
func (o *Object) SetFrameRate(fps float64) {
	if fps <= 0 {
		return
	}
	o.frameRate = fps
	o.frameRateSet = true
}

// CaptureMode returns the mode the proxy asks the engine to use
func (o *Object) CaptureMode() engine.CaptureMode { return o.captureMode }

// SetCaptureMode stores the mode and forwards it to the engine
func (o *Object) SetCaptureMode(mode engine.CaptureMode) {
	o.captureMode = mode
	o.window.SetCaptureMode(mode)
}

// LastPriority is the effective priority of the most recent evaluation
func (o *Object) LastPriority() engine.Priority { return o.lastPriority }

func (o *Object) period() float64 {
	if o.frameRate <= 0 {
		return 0
	}
	return 1 / o.frameRate
}

// EffectivePriority resolves PriorityAuto: High for the window under the
// cursor, else Middle when its z-order is below nearFront, else Low. A manual
// priority is returned unchanged.
func (o *Object) EffectivePriority(cursor engine.Handle, nearFront int) engine.Priority {
	if o.priority != engine.PriorityAuto {
		return o.priority
	}
	if cursor != 0 && cursor == o.window.Handle() {
		return engine.PriorityHigh
	}
	if o.window.ZOrder() < nearFront {
		return engine.PriorityMiddle
	}
	return engine.PriorityLow
}

// Update runs one frame of the proxy: rebind the texture if the record's
// changed, accumulate time, and when at least one capture period has elapsed
// consume every whole period and issue a single capture request. It reports
// whether a request was issued.
func (o *Object) Update(dt float64, frame FrameInfo) bool {
	if o.node != nil && o.node.Material.Texture != o.window.Texture() {
		o.node.Material.Texture = o.window.Texture()
	}

	o.elapsed += dt

	requested := false
	if p := o.period(); p > 0 && o.elapsed >= p {
		for o.elapsed >= p {
			o.elapsed -= p
		}
		o.lastPriority = o.EffectivePriority(frame.CursorHandle, frame.NearFrontZOrder)
		if o.sizeChanged && o.lastPriority > engine.PriorityMiddle {
			o.lastPriority = engine.PriorityMiddle
		}
		if !o.window.IsHungUp() {
			o.window.RequestCapture(o.lastPriority)
			o.requestCount++
			o.sizeChanged = false
			requested = true
		}
	}

	o.refreshVisibility()
	return requested
}

func (o *Object) refreshVisibility() {
	o.visible = o.state == StateCaptured && o.valid &&
		o.window.IsVisible() && !o.window.IsIconic()
	if o.node != nil {
		o.node.Material.Visible = o.visible
	}
}

// markCaptured renames the node after the current title. The first call
// also moves the proxy to StateCaptured and, for alt-tab windows, marks the
// proxy invalid when the title is empty.
func (o *Object) markCaptured() {
	title := o.refreshName()
	if o.state == StateCaptured {
		return
	}
	o.state = StateCaptured
	if o.window.IsAltTabWindow() {
		o.valid = title != ""
	}
	o.refreshVisibility()
}

// markSizeChanged renames the node and raises the next throttled request to
// at least Middle priority so the resized buffer is fetched ahead of
// background windows.
func (o *Object) markSizeChanged() {
	o.sizeChanged = true
	o.refreshName()
}

func (o *Object) refreshName() string {
	title := o.window.Title()
	if o.node != nil && title != "" {
		o.node.Name = title
	}
	return title
}

// Width is the window width in scene units
func (o *Object) Width() float64 {
	if o.basePixel <= 0 {
		return 0
	}
	return float64(o.window.Width()) / o.basePixel
}

// Height is the window height in scene units
func (o *Object) Height() float64 {
	if o.basePixel <= 0 {
		return 0
	}
	return float64(o.window.Height()) / o.basePixel
}

// AspectRatio is width over height, zero when height is zero
func (o *Object) AspectRatio() float64 {
	h := o.window.Height()
	if h == 0 {
		return 0
	}
	return float64(o.window.Width()) / float64(h)
}

func (o *Object) apply(s Settings) {
	if !o.frameRateSet {
		o.frameRate = s.FrameRate
	}
	o.basePixel = s.BasePixel
}

// Info is a serializable snapshot of a proxy
type Info struct {
	Handle            engine.Handle `json:"handle"`
	Parent            engine.Handle `json:"parent"`
	Name              string        `json:"name"`
	State             string        `json:"state"`
	Valid             bool          `json:"valid"`
	Visible           bool          `json:"visible"`
	CaptureMode       string        `json:"capture_mode"`
	Priority          string        `json:"priority"`
	EffectivePriority string        `json:"effective_priority"`
	FrameRate         float64       `json:"frame_rate"`
	Requests          int           `json:"requests"`
	Width             float64       `json:"width"`
	Height            float64       `json:"height"`
	AspectRatio       float64       `json:"aspect_ratio"`
	Position          f64.Vec3      `json:"position"`
	Scale             f64.Vec3      `json:"scale"`
}

// Info snapshots the proxy
func (o *Object) Info() Info {
	info := Info{
		Handle:            o.Handle(),
		Parent:            o.parent,
		State:             o.state.String(),
		Valid:             o.valid,
		Visible:           o.visible,
		CaptureMode:       o.captureMode.String(),
		Priority:          o.priority.String(),
		EffectivePriority: o.lastPriority.String(),
		FrameRate:         o.frameRate,
		Requests:          o.requestCount,
		Width:             o.Width(),
		Height:            o.Height(),
		AspectRatio:       o.AspectRatio(),
	}
	if o.node != nil {
		info.Name = o.node.Name
		info.Position = o.node.LocalPosition
		info.Scale = o.node.LocalScale
	}
	return info
}
