package overlay

import (
	"image"
	"image/color"
)

// BorderWidget outlines the frame
type BorderWidget struct {
	*BaseWidget
	width int
	color color.NRGBA
}

// NewBorderWidget creates a border of the given thickness in pixels
func NewBorderWidget(id string, width int, c color.NRGBA, opacity float64) *BorderWidget {
	if width <= 0 {
		width = 1
	}
	return &BorderWidget{
		BaseWidget: NewBaseWidget(id, 0, 0, opacity),
		width:      width,
		color:      c,
	}
}

func (w *BorderWidget) Type() string { return TypeBorder }

// Render draws the four edges, clipped to img
func (w *BorderWidget) Render(img *image.RGBA, f Frame) error {
	if !w.IsEnabled() {
		return nil
	}
	b := img.Bounds()
	t := w.width
	if t > b.Dx()/2 {
		t = b.Dx() / 2
	}
	if t > b.Dy()/2 {
		t = b.Dy() / 2
	}
	if t <= 0 {
		return nil
	}

	DrawRectangle(img, b.Min.X, b.Min.Y, b.Dx(), t, w.color, w.opacity)
	DrawRectangle(img, b.Min.X, b.Max.Y-t, b.Dx(), t, w.color, w.opacity)
	DrawRectangle(img, b.Min.X, b.Min.Y+t, t, b.Dy()-2*t, w.color, w.opacity)
	DrawRectangle(img, b.Max.X-t, b.Min.Y+t, t, b.Dy()-2*t, w.color, w.opacity)
	return nil
}
