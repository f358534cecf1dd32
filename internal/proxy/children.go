package proxy

import (
	"github.com/bryanchriswhite/DeskMirror/internal/scene"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
	"golang.org/x/image/math/f64"
)

// Screen is the desktop size in pixels
type Screen struct {
	Width  int
	Height int
}

// DesktopToScene converts a window's desktop rectangle to the scene position
// of its center: origin at the screen center, y up, basePixel pixels per unit.
func DesktopToScene(w *window.Window, basePixel float64, screen Screen) f64.Vec3 {
	if basePixel <= 0 {
		return f64.Vec3{}
	}
	cx := float64(w.X()) + float64(w.Width())/2 - float64(screen.Width)/2
	cy := float64(w.Y()) + float64(w.Height())/2 - float64(screen.Height)/2
	return f64.Vec3{cx / basePixel, -cy / basePixel, 0}
}

// MoveAndScaleChild positions child inside parent's node from the two
// windows' desktop geometry. The z offset puts windows nearer the front
// (lower z-order) toward the viewer, ZDistance per z-order step. It is a
// no-op while the parent has zero size.
func MoveAndScaleChild(child, parent *Object, screen Screen, s Settings) {
	pn, cn := parent.node, child.node
	if pn == nil || cn == nil {
		return
	}
	pw, ph := parent.Width(), parent.Height()
	if pw == 0 || ph == 0 {
		return
	}

	lossy := pn.LossyScale()
	ratioX := lossy[0] / pw
	ratioY := lossy[1] / ph

	parentPos := DesktopToScene(parent.window, s.BasePixel, screen)
	childPos := DesktopToScene(child.window, s.BasePixel, screen)
	local := scene.Sub(childPos, parentPos)
	local[0] *= safeDiv(ratioX, pn.LocalScale[0])
	local[1] *= safeDiv(ratioY, pn.LocalScale[1])
	local[2] = safeDiv(s.ZDistance*float64(child.window.ZOrder()-parent.window.ZOrder()), pn.LocalScale[2])
	cn.LocalPosition = local

	worldScale := f64.Vec3{child.Width() * ratioX, child.Height() * ratioY, 1}
	cn.LocalScale = pn.WorldToLocalVector(worldScale)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
