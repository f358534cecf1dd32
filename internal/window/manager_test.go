package window

import (
	"errors"
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/engine/sim"
	"github.com/google/go-cmp/cmp"
)

func newStartedManager(t *testing.T, e *sim.Engine) *Manager {
	t.Helper()
	m := NewManager(e)
	if err := m.Start(engine.DebugModeNone); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func TestManagerStartFailure(t *testing.T) {
	e := sim.New(sim.Options{FailInit: errors.New("boom")})
	m := NewManager(e)

	err := m.Start(engine.DebugModeNone)
	if !errors.Is(err, engine.ErrEngineInit) {
		t.Fatalf("Start error = %v; expected ErrEngineInit", err)
	}
	if e.HasLogFuncs() {
		t.Error("log funcs still attached after failed start")
	}
}

func TestManagerStartStop(t *testing.T) {
	e := sim.New(sim.Options{})
	m := NewManager(e)
	if err := m.Start(engine.DebugModeLog); err != nil {
		t.Fatal(err)
	}
	if !e.Initialized() || !e.HasLogFuncs() {
		t.Error("engine not initialized with log funcs")
	}
	m.Stop()
	if e.Initialized() || e.HasLogFuncs() {
		t.Error("engine still initialized after Stop")
	}
}

func TestManagerUpdateTracksAddedMinusRemoved(t *testing.T) {
	e := sim.New(sim.Options{})
	m := newStartedManager(t, e)

	e.AddWindow(0x10, sim.Spec{})
	e.AddWindow(0x20, sim.Spec{})
	e.AddWindow(0x30, sim.Spec{})
	m.Update()

	e.RemoveWindow(0x20)
	e.AddWindow(0x40, sim.Spec{})
	m.Update()

	want := []engine.Handle{0x10, 0x30, 0x40}
	if diff := cmp.Diff(want, m.Registry().Handles()); diff != "" {
		t.Errorf("registry (-want +got):\n%s", diff)
	}
}

func TestManagerEventOrder(t *testing.T) {
	e := sim.New(sim.Options{})
	m := newStartedManager(t, e)

	var got []string
	record := func(kind string) Handler {
		return func(w *Window) {
			got = append(got, kind+" "+w.Handle().String())
		}
	}
	d := m.Dispatcher()
	d.OnAdded(record("added"))
	d.OnRemoved(record("removed"))
	d.OnCaptured(record("captured"))
	d.OnSizeChanged(record("size"))
	d.OnIconCaptured(record("icon"))

	id := e.AddWindow(0x10, sim.Spec{})
	e.Emit(engine.Message{Type: engine.MessageIconCaptured, ID: id, Handle: 0x10})
	e.Emit(engine.Message{Type: engine.MessageType(77), ID: id, Handle: 0x10})
	e.Emit(engine.Message{Type: engine.MessageWindowCaptured, ID: 9, Handle: 0x99})
	e.Emit(engine.Message{Type: engine.MessageWindowCaptured, ID: id, Handle: 0x10})
	e.Emit(engine.Message{Type: engine.MessageWindowSizeChanged, ID: id, Handle: 0x10})
	e.RemoveWindow(0x10)
	e.RemoveWindow(0x10)
	m.Update()

	want := []string{
		"added 0x10",
		"icon 0x10",
		"captured 0x10",
		"size 0x10",
		"removed 0x10",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if m.Find(0x10) != nil {
		t.Error("0x10 still tracked after removal")
	}
}

func TestManagerRemovedObserverSeesDeadRecord(t *testing.T) {
	e := sim.New(sim.Options{})
	m := newStartedManager(t, e)

	e.AddWindow(0x10, sim.Spec{})
	m.Update()
	w := m.Find(0x10)

	var alive, tracked bool
	m.Dispatcher().OnRemoved(func(r *Window) {
		alive = r.IsAlive()
		tracked = m.Find(0x10) != nil
	})
	e.RemoveWindow(0x10)
	m.Update()

	if alive {
		t.Error("record alive during removal dispatch")
	}
	if !tracked {
		t.Error("record detached before removal observers ran")
	}
	if w.IsAlive() {
		t.Error("record alive after removal")
	}
}

func TestManagerReAddedHandle(t *testing.T) {
	e := sim.New(sim.Options{})
	m := newStartedManager(t, e)

	first := e.AddWindow(0x10, sim.Spec{})
	m.Update()
	old := m.Find(0x10)

	var removed int
	m.Dispatcher().OnRemoved(func(*Window) { removed++ })
	second := e.AddWindow(0x10, sim.Spec{})
	m.Update()

	w := m.Find(0x10)
	if w == old || w.ID() != second || first == second {
		t.Errorf("re-added handle kept the old record (id %d)", w.ID())
	}
	if old.IsAlive() || removed != 1 {
		t.Errorf("old record alive=%v, removed events=%d", old.IsAlive(), removed)
	}
}

func TestManagerRetire(t *testing.T) {
	e := sim.New(sim.Options{})
	m := newStartedManager(t, e)

	e.AddWindow(0x10, sim.Spec{})
	m.Update()

	var removed int
	m.Dispatcher().OnRemoved(func(*Window) { removed++ })
	if !m.Retire(0x10) {
		t.Fatal("Retire(0x10) = false")
	}
	if m.Retire(0x10) {
		t.Error("second Retire reported a removal")
	}

	// the engine's own removal later is a no-op
	e.RemoveWindow(0x10)
	m.Update()
	if removed != 1 {
		t.Errorf("removed observers ran %d times; expected 1", removed)
	}
}

func TestManagerCursorWindow(t *testing.T) {
	e := sim.New(sim.Options{})
	m := newStartedManager(t, e)

	e.AddWindow(0x10, sim.Spec{Width: 10, Height: 10})
	e.SetCursorWindow(0x10)
	m.Update()

	if got := m.CursorHandle(); got != 0x10 {
		t.Errorf("CursorHandle = %v; expected 0x10", got)
	}
	if w := m.CursorWindow(); w == nil || w.Handle() != 0x10 {
		t.Errorf("CursorWindow = %v", w)
	}
}
