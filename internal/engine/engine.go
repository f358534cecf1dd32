// Package engine is the contract between deskmirror and the external window
// enumeration and capture engine. The engine owns OS access and pixel capture;
// everything here is a synchronous query or command against it.
package engine

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Handle is the OS identity of a window. Zero is the null handle.
type Handle uint64

// String formats the handle the way window tools print them
func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}

// ParseHandle accepts decimal or 0x-prefixed hex.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window handle %q: %w", s, err)
	}
	return Handle(v), nil
}

// ID is the engine-assigned integer id used by every per-window query.
type ID int32

// CaptureMode selects the engine's capture strategy for a window
type CaptureMode int32

const (
	CaptureModeNone                   CaptureMode = -1
	CaptureModePrintWindow            CaptureMode = 0
	CaptureModeBitBlt                 CaptureMode = 1
	CaptureModeBitBltAlpha            CaptureMode = 2
	CaptureModeWindowsGraphicsCapture CaptureMode = 3
)

var captureModeNames = map[CaptureMode]string{
	CaptureModeNone:                   "none",
	CaptureModePrintWindow:            "print_window",
	CaptureModeBitBlt:                 "bitblt",
	CaptureModeBitBltAlpha:            "bitblt_alpha",
	CaptureModeWindowsGraphicsCapture: "wgc",
}

func (m CaptureMode) String() string {
	if s, ok := captureModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("CaptureMode(%d)", int32(m))
}

// ParseCaptureMode is the inverse of CaptureMode.String
func ParseCaptureMode(s string) (CaptureMode, error) {
	for m, name := range captureModeNames {
		if strings.EqualFold(name, s) {
			return m, nil
		}
	}
	return CaptureModeNone, fmt.Errorf("unknown capture mode %q", s)
}

// Priority is a scheduling hint for a pending capture request. Lower is sooner.
type Priority int32

const (
	PriorityHigh   Priority = 0
	PriorityMiddle Priority = 1
	PriorityLow    Priority = 2

	// PriorityAuto is resolved by proxies from cursor and z-order and is
	// never sent to the engine.
	PriorityAuto Priority = -1
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMiddle:
		return "middle"
	case PriorityLow:
		return "low"
	case PriorityAuto:
		return "auto"
	}
	return fmt.Sprintf("Priority(%d)", int32(p))
}

// ParsePriority is the inverse of Priority.String
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "high":
		return PriorityHigh, nil
	case "middle":
		return PriorityMiddle, nil
	case "low":
		return PriorityLow, nil
	case "auto", "":
		return PriorityAuto, nil
	}
	return PriorityAuto, fmt.Errorf("unknown capture priority %q", s)
}

// DebugMode controls where the engine writes its own diagnostics
type DebugMode int32

const (
	DebugModeNone DebugMode = 0
	DebugModeFile DebugMode = 1
	DebugModeLog  DebugMode = 2
)

// ParseDebugMode maps config names onto DebugMode; unknown names disable output.
func ParseDebugMode(s string) DebugMode {
	switch strings.ToLower(s) {
	case "file":
		return DebugModeFile
	case "log":
		return DebugModeLog
	}
	return DebugModeNone
}

// Point is a desktop pixel coordinate
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// LogFunc receives engine diagnostics. A nil LogFunc detaches.
type LogFunc func(msg string)

// ErrEngineInit wraps a failure to bring up process-wide engine state. It is
// fatal: nothing else in the system can work without the engine.
var ErrEngineInit = errors.New("capture engine initialization failed")

// Engine is the capture engine gateway.
//
// Update must be called once per tick before draining messages, and
// TriggerGPUUpload once per frame after the tick's work is done.
// Implementations must tolerate concurrent readers.
type Engine interface {
	Initialize() error
	Finalize()
	SetDebugMode(mode DebugMode)
	SetLogFunc(fn LogFunc)
	SetErrorFunc(fn LogFunc)
	Update()
	TriggerGPUUpload()

	// Message batch. The batch is the raw packed record buffer described
	// in messages.go; see DrainMessages.
	MessageCount() int
	MessageBatch() []byte
	ClearMessages()

	WindowHandle(id ID) Handle
	WindowOwner(id ID) Handle
	WindowParent(id ID) Handle
	WindowProcessID(id ID) int
	WindowThreadID(id ID) int
	WindowX(id ID) int
	WindowY(id ID) int
	WindowWidth(id ID) int
	WindowHeight(id ID) int
	WindowZOrder(id ID) int
	WindowBufferWidth(id ID) int
	WindowBufferHeight(id ID) int

	// Title is read in two steps: UpdateWindowTitle refreshes the engine's
	// copy, WindowTitleLength and WindowTitle read it.
	UpdateWindowTitle(id ID)
	WindowTitleLength(id ID) int
	WindowTitle(id ID) string
	// WindowIcon returns the icon announced by the latest IconCaptured for
	// id. The image is replaced, never modified, when the icon changes.
	WindowIcon(id ID) (*image.RGBA, bool)

	IsWindow(id ID) bool
	IsWindowVisible(id ID) bool
	IsAltTabWindow(id ID) bool
	IsDesktop(id ID) bool
	IsWindowEnabled(id ID) bool
	IsWindowUnicode(id ID) bool
	IsWindowZoomed(id ID) bool
	IsWindowIconic(id ID) bool
	IsWindowHungUp(id ID) bool
	IsWindowTouchable(id ID) bool

	WindowCaptureMode(id ID) CaptureMode
	SetWindowCaptureMode(id ID, mode CaptureMode)
	// SetWindowTexture hands tex to the engine, which writes captured
	// pixels directly into it from then on.
	SetWindowTexture(id ID, tex *Texture)
	RequestCaptureWindow(id ID, priority Priority)
	MoveWindow(id ID, x, y int) bool
	ScaleWindow(id ID, width, height int) bool
	MoveAndScaleWindow(id ID, x, y, width, height int) bool

	CursorPosition() Point
	WindowFromPoint(x, y int) Handle
	WindowUnderCursor() Handle
	ForegroundWindow() Handle
	ScreenWidth() int
	ScreenHeight() int
}
