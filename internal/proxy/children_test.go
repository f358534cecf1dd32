package proxy

import (
	"math"
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/engine/sim"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/image/math/f64"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestDesktopToScene(t *testing.T) {
	f := newFixture(t, windowPrefab())
	f.eng.AddWindow(0x10, sim.Spec{X: 860, Y: 440, Width: 200, Height: 200})
	f.eng.AddWindow(0x20, sim.Spec{X: 0, Y: 0, Width: 1000, Height: 500})
	f.windows.Update()

	screen := Screen{Width: 1920, Height: 1080}
	tests := []struct {
		name string
		want f64.Vec3
		h    engine.Handle
	}{
		{name: "centered", h: 0x10, want: f64.Vec3{0, 0, 0}},
		{name: "top left", h: 0x20, want: f64.Vec3{-0.46, 0.29, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.windows.Find(tt.h)
			got := DesktopToScene(w, 1000, screen)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveAndScaleChild(t *testing.T) {
	f := newFixture(t, windowPrefab())
	f.eng.AddWindow(0x10, sim.Spec{Visible: true, X: 0, Y: 0, Width: 1000, Height: 500, ZOrder: 2})
	f.eng.AddWindow(0x20, sim.Spec{Owner: 0x10, X: 500, Y: 100, Width: 200, Height: 100, ZOrder: 1})
	f.windows.Update()

	parent, child := f.proxies.Find(0x10), f.proxies.Find(0x20)
	// the parent node shows the window at twice its pixel size
	parent.Node().LocalScale = f64.Vec3{2, 1, 1}

	s := DefaultSettings()
	MoveAndScaleChild(child, parent, Screen{Width: 1920, Height: 1080}, s)

	// ratio is 2 on both axes: lossy 2 over width 1, lossy 1 over height 0.5.
	// The child center sits (+0.1, +0.1) scene units from the parent center.
	wantPos := f64.Vec3{0.1 * 2 / 2, 0.1 * 2 / 1, s.ZDistance * -1}
	if diff := cmp.Diff(wantPos, child.Node().LocalPosition, approx); diff != "" {
		t.Errorf("position (-want +got):\n%s", diff)
	}
	// world size (0.4, 0.2) mapped into a parent scaled (2, 1)
	wantScale := f64.Vec3{0.2, 0.2, 1}
	if diff := cmp.Diff(wantScale, child.Node().LocalScale, approx); diff != "" {
		t.Errorf("scale (-want +got):\n%s", diff)
	}

	world := child.Node().LossyScale()
	if math.Abs(world[0]-0.4) > 1e-9 || math.Abs(world[1]-0.2) > 1e-9 {
		t.Errorf("world scale = %v", world)
	}
}

func TestMoveAndScaleChildZeroSizeParent(t *testing.T) {
	f := newFixture(t, windowPrefab())
	f.eng.AddWindow(0x10, sim.Spec{Visible: true})
	f.eng.AddWindow(0x20, sim.Spec{Owner: 0x10, X: 10, Y: 10, Width: 20, Height: 20})
	f.windows.Update()

	child := f.proxies.Find(0x20)
	before := child.Node().LocalPosition
	MoveAndScaleChild(child, f.proxies.Find(0x10), Screen{Width: 1920, Height: 1080}, DefaultSettings())
	if child.Node().LocalPosition != before {
		t.Error("child moved while parent has zero size")
	}
}
