// Package layout arranges root window proxies in the scene.
package layout

import (
	"github.com/bryanchriswhite/DeskMirror/internal/proxy"
	"golang.org/x/image/math/f64"
)

// DefaultBasePixel is how many window pixels map to one scene unit at scale 1
const DefaultBasePixel = 1000

// Horizontal places root proxies side by side along +x, each scaled to its
// window's pixel size, in handle order.
type Horizontal struct {
	// Scale is scene units per BasePixel pixels
	Scale     float64
	BasePixel float64
	// Gap is extra space between neighbours, in scene units
	Gap float64
}

// NewHorizontal creates a layouter with the given scale and the default base
func NewHorizontal(scale float64) *Horizontal {
	if scale <= 0 {
		scale = 1
	}
	return &Horizontal{Scale: scale, BasePixel: DefaultBasePixel}
}

// InitWindow gives a new root proxy its size before the first layout pass
func (h *Horizontal) InitWindow(o *proxy.Object) {
	if o.IsChild() || o.Node() == nil {
		return
	}
	w, ht := h.size(o)
	o.Node().LocalScale = f64.Vec3{w, ht, 1}
}

// UpdateLayout positions the roots left to right. It reads only geometry;
// node names follow titles through the proxy's capture events.
func (h *Horizontal) UpdateLayout(objects []*proxy.Object) {
	var x, prev float64
	first := true

	for _, o := range objects {
		n := o.Node()
		if o.IsChild() || n == nil {
			continue
		}
		w, ht := h.size(o)
		if !first {
			x += (prev+w)/2 + h.Gap
		}
		first = false

		n.LocalScale = f64.Vec3{w, ht, 1}
		n.LocalPosition = f64.Vec3{x, 0, 0}
		prev = w
	}
}

func (h *Horizontal) size(o *proxy.Object) (float64, float64) {
	base := h.BasePixel
	if base <= 0 {
		base = DefaultBasePixel
	}
	win := o.Window()
	return float64(win.Width()) * h.Scale / base, float64(win.Height()) * h.Scale / base
}
