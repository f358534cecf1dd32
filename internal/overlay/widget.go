// Package overlay draws annotations onto captured window frames before they
// are streamed.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"golang.org/x/image/draw"
)

// Frame describes the window a frame was captured from
type Frame struct {
	Handle engine.Handle
	Title  string
}

// Widget represents a renderable overlay widget
type Widget interface {
	// ID returns the unique identifier for this widget instance
	ID() string

	// Type returns the widget type name
	Type() string

	// Render draws the widget onto img for the window described by f
	Render(img *image.RGBA, f Frame) error

	IsEnabled() bool
	SetEnabled(enabled bool)
}

// BaseWidget provides common functionality for all widgets
type BaseWidget struct {
	id      string
	enabled bool
	x       int
	y       int
	opacity float64 // 0.0 to 1.0
}

// NewBaseWidget creates a new base widget
func NewBaseWidget(id string, x, y int, opacity float64) *BaseWidget {
	w := &BaseWidget{id: id, enabled: true, x: x, y: y}
	w.SetOpacity(opacity)
	return w
}

func (w *BaseWidget) ID() string              { return w.id }
func (w *BaseWidget) IsEnabled() bool         { return w.enabled }
func (w *BaseWidget) SetEnabled(enabled bool) { w.enabled = enabled }

// Position returns the widget's top-left corner in frame pixels
func (w *BaseWidget) Position() (int, int) {
	return w.x, w.y
}

// SetPosition moves the widget
func (w *BaseWidget) SetPosition(x, y int) {
	w.x = x
	w.y = y
}

// Opacity returns the widget's opacity
func (w *BaseWidget) Opacity() float64 {
	return w.opacity
}

// SetOpacity sets the widget's opacity, clamped to [0, 1]
func (w *BaseWidget) SetOpacity(opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	w.opacity = opacity
}

// BlendImage composites src over dst with its top-left corner at (x, y),
// scaling src's alpha by opacity. Pixels outside dst are clipped.
func BlendImage(dst *image.RGBA, src image.Image, x, y int, opacity float64) {
	if opacity <= 0 {
		return
	}
	r := src.Bounds().Sub(src.Bounds().Min).Add(image.Pt(x, y))
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, r, src, src.Bounds().Min, mask, image.Point{}, draw.Over)
}

// DrawRectangle blends a filled rectangle onto dst
func DrawRectangle(dst *image.RGBA, x, y, width, height int, c color.Color, opacity float64) {
	if width <= 0 || height <= 0 || opacity <= 0 {
		return
	}
	r := image.Rect(x, y, x+width, y+height)
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, r, &image.Uniform{C: c}, image.Point{}, mask, image.Point{}, draw.Over)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa" as a non-premultiplied color
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
