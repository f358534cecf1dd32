package sim

import (
	"errors"
	"image"
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/google/go-cmp/cmp"
)

func drain(t *testing.T, e *Engine) []engine.Message {
	t.Helper()
	e.Update()
	msgs, err := engine.DrainMessages(e)
	if err != nil {
		t.Fatalf("DrainMessages: %v", err)
	}
	return msgs
}

func TestMessagesVisibleAfterUpdate(t *testing.T) {
	e := New(Options{})
	id := e.AddWindow(0x10, Spec{Title: "a", Width: 10, Height: 10})

	if n := e.MessageCount(); n != 0 {
		t.Fatalf("MessageCount before Update = %d; expected 0", n)
	}

	want := []engine.Message{{Type: engine.MessageWindowAdded, ID: id, Handle: 0x10}}
	if diff := cmp.Diff(want, drain(t, e)); diff != "" {
		t.Errorf("first tick (-want +got):\n%s", diff)
	}
	if got := drain(t, e); len(got) != 0 {
		t.Errorf("second tick replayed %d messages", len(got))
	}

	e.RemoveWindow(0x10)
	e.Emit(engine.Message{Type: engine.MessageType(99), ID: 5, Handle: 0x99})
	want = []engine.Message{
		{Type: engine.MessageWindowRemoved, ID: id, Handle: 0x10},
		{Type: engine.MessageType(99), ID: 5, Handle: 0x99},
	}
	if diff := cmp.Diff(want, drain(t, e)); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
	if e.IsWindow(id) {
		t.Error("removed window still reported by IsWindow")
	}
}

func TestTitleIsTwoStep(t *testing.T) {
	e := New(Options{})
	id := e.AddWindow(0x10, Spec{Title: "first"})

	if got := e.WindowTitle(id); got != "" {
		t.Errorf("title before UpdateWindowTitle = %q; expected empty", got)
	}
	e.UpdateWindowTitle(id)
	if got, n := e.WindowTitle(id), e.WindowTitleLength(id); got != "first" || n != 5 {
		t.Errorf("title = %q (len %d); expected \"first\" (len 5)", got, n)
	}

	e.SetTitle(0x10, "second")
	if got := e.WindowTitle(id); got != "first" {
		t.Errorf("title changed without refresh: %q", got)
	}
	e.UpdateWindowTitle(id)
	if got := e.WindowTitle(id); got != "second" {
		t.Errorf("title after refresh = %q; expected \"second\"", got)
	}
}

func TestCompleteCaptures(t *testing.T) {
	e := New(Options{})
	low := e.AddWindow(0x10, Spec{Width: 8, Height: 6})
	high := e.AddWindow(0x20, Spec{Width: 4, Height: 4, BufferWidth: 4, BufferHeight: 4})
	drain(t, e)

	tex := engine.NewTexture(4, 4)
	e.SetWindowTexture(high, tex)

	e.RequestCaptureWindow(low, engine.PriorityLow)
	e.RequestCaptureWindow(high, engine.PriorityLow)
	e.RequestCaptureWindow(high, engine.PriorityHigh)
	if n := len(e.Requests()); n != 3 {
		t.Errorf("recorded %d requests; expected 3", n)
	}

	e.CompleteCaptures()
	want := []engine.Message{
		// high priority first; 0x10's buffer is stale so it gets resized
		{Type: engine.MessageWindowCaptured, ID: high, Handle: 0x20},
		{Type: engine.MessageWindowSizeChanged, ID: low, Handle: 0x10},
	}
	if diff := cmp.Diff(want, drain(t, e)); diff != "" {
		t.Errorf("captures (-want +got):\n%s", diff)
	}
	if tex.Frames() != 1 {
		t.Errorf("texture frames = %d; expected 1", tex.Frames())
	}
	if w, h := e.WindowBufferWidth(low), e.WindowBufferHeight(low); w != 8 || h != 6 {
		t.Errorf("buffer = %dx%d; expected 8x6", w, h)
	}

	// nothing pending any more
	e.CompleteCaptures()
	if got := drain(t, e); len(got) != 0 {
		t.Errorf("second CompleteCaptures produced %v", got)
	}
}

func TestInitializeFailure(t *testing.T) {
	e := New(Options{FailInit: errors.New("no display")})
	err := e.Initialize()
	if !errors.Is(err, engine.ErrEngineInit) {
		t.Fatalf("Initialize error = %v; expected ErrEngineInit", err)
	}
	if e.Initialized() {
		t.Error("engine reports initialized after failure")
	}
}

func TestWindowFromPoint(t *testing.T) {
	e := New(Options{})
	e.AddWindow(0x10, Spec{X: 0, Y: 0, Width: 100, Height: 100, ZOrder: 2, Visible: true})
	e.AddWindow(0x20, Spec{X: 50, Y: 50, Width: 100, Height: 100, ZOrder: 1, Visible: true})
	e.AddWindow(0x30, Spec{X: 0, Y: 0, Width: 500, Height: 500, ZOrder: 0, Visible: false})

	testCases := []struct {
		x, y int
		want engine.Handle
	}{
		{10, 10, 0x10},
		{60, 60, 0x20},
		{140, 140, 0x20},
		{400, 400, 0},
	}
	for _, tc := range testCases {
		if got := e.WindowFromPoint(tc.x, tc.y); got != tc.want {
			t.Errorf("WindowFromPoint(%d, %d) = %v; expected %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestSetIcon(t *testing.T) {
	e := New(Options{})
	id := e.AddWindow(0x10, Spec{})
	drain(t, e)

	if _, ok := e.WindowIcon(id); ok {
		t.Fatal("icon before SetIcon")
	}

	icon := image.NewRGBA(image.Rect(0, 0, 16, 16))
	e.SetIcon(0x10, icon)
	e.SetIcon(0x99, icon)

	want := []engine.Message{{Type: engine.MessageIconCaptured, ID: id, Handle: 0x10}}
	if diff := cmp.Diff(want, drain(t, e)); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
	if got, ok := e.WindowIcon(id); !ok || got != icon {
		t.Errorf("WindowIcon = %p, %v", got, ok)
	}
}
