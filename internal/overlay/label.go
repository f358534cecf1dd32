package overlay

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabelWidget draws a line of text. The text may reference the window with
// {title} and {handle}.
type LabelWidget struct {
	*BaseWidget
	text      string
	textColor color.NRGBA
	bgColor   *color.NRGBA
	padding   int
}

// NewLabelWidget creates a white label without background
func NewLabelWidget(id, text string, x, y int, opacity float64) *LabelWidget {
	return &LabelWidget{
		BaseWidget: NewBaseWidget(id, x, y, opacity),
		text:       text,
		textColor:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		padding:    4,
	}
}

func (w *LabelWidget) Type() string { return TypeLabel }

// Text returns the unexpanded label text
func (w *LabelWidget) Text() string { return w.text }

// SetText updates the text content
func (w *LabelWidget) SetText(text string) { w.text = text }

// SetColor sets the text color
func (w *LabelWidget) SetColor(c color.NRGBA) { w.textColor = c }

// SetBackground sets the background color, nil for none
func (w *LabelWidget) SetBackground(c *color.NRGBA) { w.bgColor = c }

// Expand substitutes the window placeholders for f
func (w *LabelWidget) Expand(f Frame) string {
	return strings.NewReplacer(
		"{title}", f.Title,
		"{handle}", f.Handle.String(),
	).Replace(w.text)
}

// Render draws the label
func (w *LabelWidget) Render(img *image.RGBA, f Frame) error {
	text := w.Expand(f)
	if !w.IsEnabled() || text == "" {
		return nil
	}

	face := basicfont.Face7x13
	height := face.Metrics().Height.Ceil()
	width := font.MeasureString(face, text).Ceil()

	if w.bgColor != nil {
		DrawRectangle(img, w.x, w.y, width+w.padding*2, height+w.padding*2, *w.bgColor, w.opacity)
	}

	// text goes to its own layer so opacity applies once
	layer := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(w.textColor),
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(text)

	BlendImage(img, layer, w.x+w.padding, w.y+w.padding, w.opacity)
	return nil
}
