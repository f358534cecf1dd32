package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/config"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/google/go-cmp/cmp"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func changed(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R != 0 || c.G != 0 || c.B != 0 {
				n++
			}
		}
	}
	return n
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		err  bool
	}{
		{in: "#ff8000", want: color.NRGBA{R: 0xff, G: 0x80, A: 0xff}},
		{in: "102030b0", want: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xb0}},
		{in: "#fff", err: true},
		{in: "#gggggg", err: true},
		{in: "", err: true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseColor(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v; expected %v", tt.in, got, tt.want)
		}
	}
}

func TestLabelExpand(t *testing.T) {
	w := NewLabelWidget("l", "{title} [{handle}]", 0, 0, 1)
	got := w.Expand(Frame{Handle: 0x10, Title: "editor"})
	if got != "editor [0x10]" {
		t.Errorf("Expand = %q", got)
	}
}

func TestLabelRender(t *testing.T) {
	img := blank(200, 60)
	w := NewLabelWidget("l", "{title}", 10, 10, 1)
	if err := w.Render(img, Frame{Title: "hello"}); err != nil {
		t.Fatal(err)
	}

	if changed(img, image.Rect(10, 10, 60, 35)) == 0 {
		t.Error("no text drawn near the label position")
	}
	if n := changed(img, image.Rect(0, 40, 200, 60)); n != 0 {
		t.Errorf("%d pixels changed below the label", n)
	}

	// empty expansion draws nothing
	img = blank(50, 50)
	if err := w.Render(img, Frame{}); err != nil {
		t.Fatal(err)
	}
	if changed(img, img.Bounds()) != 0 {
		t.Error("empty label drew pixels")
	}
}

func TestBorderRender(t *testing.T) {
	img := blank(20, 10)
	w := NewBorderWidget("b", 2, color.NRGBA{R: 0xff, A: 0xff}, 1)
	if err := w.Render(img, Frame{}); err != nil {
		t.Fatal(err)
	}

	if got := img.RGBAAt(0, 0); got.R != 0xff {
		t.Errorf("corner = %v", got)
	}
	if got := img.RGBAAt(19, 5); got.R != 0xff {
		t.Errorf("right edge = %v", got)
	}
	if got := img.RGBAAt(10, 5); got.R != 0 {
		t.Errorf("center = %v", got)
	}
}

func TestManagerOrderAndIDs(t *testing.T) {
	m := NewManager(nil)
	a := NewLabelWidget("a", "x", 0, 0, 1)
	b := NewBorderWidget("b", 1, color.NRGBA{A: 0xff}, 1)

	if err := m.AddWidget(a); err != nil {
		t.Fatal(err)
	}
	if err := m.AddWidget(b); err != nil {
		t.Fatal(err)
	}
	if err := m.AddWidget(a); err == nil {
		t.Error("duplicate id accepted")
	}

	var ids []string
	for _, w := range m.Widgets() {
		ids = append(ids, w.ID())
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	if err := m.RemoveWidget("a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveWidget("a"); err == nil {
		t.Error("removed a missing widget")
	}
	if _, ok := m.Widget("b"); !ok {
		t.Error("b not found")
	}
}

func TestApplyAndDecorate(t *testing.T) {
	titles := func(h engine.Handle) (string, bool) {
		if h == 0x10 {
			return "editor", true
		}
		return "", false
	}
	m := NewManager(titles)

	cfg := config.Defaults().Output
	cfg.Widgets = append(cfg.Widgets,
		config.WidgetConfig{ID: "bad", Type: config.WidgetBorder, Color: "nope"},
		config.WidgetConfig{ID: "title", Type: config.WidgetBorder, Color: "#ffffff"},
		config.WidgetConfig{ID: "off", Type: config.WidgetBorder, Color: "#ffffff", Disabled: true},
	)

	// disabled overlay leaves frames alone
	m.Apply(cfg)
	img := blank(200, 60)
	m.Decorate(0x10, img)
	if changed(img, img.Bounds()) != 0 {
		t.Error("disabled overlay drew pixels")
	}

	cfg.Overlay = true
	m.Apply(cfg)
	var ids []string
	for _, w := range m.Widgets() {
		ids = append(ids, w.ID())
	}
	if diff := cmp.Diff([]string{"title", "off"}, ids); diff != "" {
		t.Errorf("widgets (-want +got):\n%s", diff)
	}

	m.Decorate(0x10, img)
	if changed(img, img.Bounds()) == 0 {
		t.Error("title label not drawn")
	}

	// the disabled border leaves the edges alone
	if got := img.RGBAAt(199, 59); got.R != 0 {
		t.Errorf("corner = %v", got)
	}
}

func TestCreateWidgetErrors(t *testing.T) {
	tests := []config.WidgetConfig{
		{ID: "x", Type: "clock"},
		{ID: "x", Type: config.WidgetLabel, Color: "red"},
		{ID: "x", Type: config.WidgetLabel, Background: "#12"},
		{ID: "x", Type: config.WidgetBorder},
	}
	for _, wc := range tests {
		if _, err := CreateWidget(wc); err == nil {
			t.Errorf("CreateWidget(%+v) succeeded", wc)
		}
	}
}
