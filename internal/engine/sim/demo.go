package sim

import (
	"image"
	"image/color"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"golang.org/x/image/draw"
)

// Demo handles used by SeedDemo
const (
	DemoEditor  engine.Handle = 0x10
	DemoDialog  engine.Handle = 0x20
	DemoBrowser engine.Handle = 0x30
	DemoDesktop engine.Handle = 0x01
)

// SeedDemo populates e with a small desktop: a wallpaper window, an editor
// with an owned dialog, and a browser. Useful for running without a display.
func SeedDemo(e *Engine) {
	e.AddWindow(DemoDesktop, Spec{
		Title: "Desktop", ProcessID: 1, ThreadID: 1,
		Width: e.opts.ScreenWidth, Height: e.opts.ScreenHeight,
		ZOrder: 99, Visible: true, Desktop: true,
	})
	e.AddWindow(DemoEditor, Spec{
		Title: "editor - main.go", ProcessID: 100, ThreadID: 1,
		X: 100, Y: 80, Width: 1200, Height: 800,
		ZOrder: 1, Visible: true, AltTab: true,
	})
	e.AddWindow(DemoDialog, Spec{
		Title: "Save As", Owner: DemoEditor, ProcessID: 100, ThreadID: 1,
		X: 500, Y: 300, Width: 400, Height: 240,
		ZOrder: 0, Visible: true,
	})
	e.AddWindow(DemoBrowser, Spec{
		Title: "browser", ProcessID: 200, ThreadID: 1,
		X: 700, Y: 200, Width: 1000, Height: 700,
		ZOrder: 2, Visible: true, AltTab: true,
	})
	e.SetIcon(DemoEditor, demoIcon(color.RGBA{R: 0x30, G: 0x60, B: 0xc0, A: 0xff}))
	e.SetCursorWindow(DemoEditor)
	e.SetForegroundWindow(DemoEditor)
}

func demoIcon(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}
