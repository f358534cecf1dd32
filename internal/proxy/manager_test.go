package proxy

import (
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/engine/sim"
	"github.com/bryanchriswhite/DeskMirror/internal/scene"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
	"github.com/google/go-cmp/cmp"
)

type fixture struct {
	eng     *sim.Engine
	windows *window.Manager
	root    *scene.Node
	proxies *Manager
}

func newFixture(t *testing.T, template Template) *fixture {
	t.Helper()
	eng := sim.New(sim.Options{})
	windows := window.NewManager(eng)
	if err := windows.Start(engine.DebugModeNone); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(windows.Stop)

	root := scene.NewNode("root")
	proxies := NewManager(windows, root, template, DefaultSettings())
	proxies.Start()
	t.Cleanup(proxies.Stop)

	return &fixture{eng: eng, windows: windows, root: root, proxies: proxies}
}

func windowPrefab() Template {
	return scene.Prefab{Name: "window", Scale: scene.One}
}

func (f *fixture) handles() []engine.Handle {
	var out []engine.Handle
	for _, o := range f.proxies.Objects() {
		out = append(out, o.Handle())
	}
	return out
}

func TestRootAndChildPlacement(t *testing.T) {
	f := newFixture(t, windowPrefab())

	f.eng.AddWindow(0x10, sim.Spec{Title: "editor", Visible: true, Width: 800, Height: 600})
	f.windows.Update()

	w := f.proxies.Find(0x10)
	if w == nil {
		t.Fatal("no proxy for 0x10")
	}
	if w.IsChild() || w.Node().Parent() != f.root {
		t.Errorf("0x10 not placed under the scene root")
	}

	f.eng.AddWindow(0x20, sim.Spec{Owner: 0x10, Width: 200, Height: 100})
	f.windows.Update()

	c := f.proxies.Find(0x20)
	if c == nil {
		t.Fatal("no proxy for 0x20")
	}
	if c.ParentHandle() != 0x10 || c.Node().Parent() != w.Node() {
		t.Errorf("0x20 parent = %v; expected 0x10", c.ParentHandle())
	}
	if roots := f.proxies.Roots(); len(roots) != 1 || roots[0] != w {
		t.Errorf("roots = %d; expected only 0x10", len(roots))
	}
}

func TestRemovalCascades(t *testing.T) {
	f := newFixture(t, windowPrefab())

	f.eng.AddWindow(0x10, sim.Spec{Visible: true})
	f.eng.AddWindow(0x20, sim.Spec{Owner: 0x10})
	f.eng.AddWindow(0x30, sim.Spec{Owner: 0x20})
	f.eng.AddWindow(0x40, sim.Spec{Visible: true})
	f.windows.Update()

	nodes := map[engine.Handle]*scene.Node{}
	for _, o := range f.proxies.Objects() {
		nodes[o.Handle()] = o.Node()
	}

	var removed []engine.Handle
	f.windows.Dispatcher().OnRemoved(func(w *window.Window) {
		removed = append(removed, w.Handle())
	})

	f.eng.RemoveWindow(0x10)
	f.windows.Update()

	if diff := cmp.Diff([]engine.Handle{0x40}, f.handles()); diff != "" {
		t.Errorf("proxies (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]engine.Handle{0x40}, f.windows.Registry().Handles()); diff != "" {
		t.Errorf("registry (-want +got):\n%s", diff)
	}
	for _, h := range []engine.Handle{0x10, 0x20, 0x30} {
		if !nodes[h].Destroyed() {
			t.Errorf("node for %v not destroyed", h)
		}
	}
	if nodes[0x40].Destroyed() {
		t.Error("unrelated node destroyed")
	}
	if len(removed) != 3 {
		t.Errorf("removal observers saw %v", removed)
	}

	// the engine reporting the children later changes nothing
	f.eng.RemoveWindow(0x20)
	f.eng.RemoveWindow(0x30)
	f.windows.Update()
	if len(removed) != 3 {
		t.Errorf("late removals dispatched again: %v", removed)
	}
}

func TestRemovalReplacesGroupedWindows(t *testing.T) {
	f := newFixture(t, windowPrefab())

	f.eng.AddWindow(0x10, sim.Spec{Visible: true, ProcessID: 7, ThreadID: 1})
	f.eng.AddWindow(0x20, sim.Spec{Owner: 0x10})
	// grouped under 0x10 by process and thread only
	f.eng.AddWindow(0x30, sim.Spec{Visible: true, ProcessID: 7, ThreadID: 1})
	f.eng.AddWindow(0x35, sim.Spec{Owner: 0x30})
	f.windows.Update()

	if o := f.proxies.Find(0x30); o == nil || o.ParentHandle() != 0x10 {
		t.Fatalf("0x30 not grouped under 0x10: %v", o)
	}
	oldNode := f.proxies.Find(0x30).Node()

	f.eng.RemoveWindow(0x10)
	f.windows.Update()
	f.windows.Update()

	if diff := cmp.Diff([]engine.Handle{0x30, 0x35}, f.windows.Registry().Handles()); diff != "" {
		t.Errorf("registry (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]engine.Handle{0x30, 0x35}, f.handles()); diff != "" {
		t.Errorf("proxies (-want +got):\n%s", diff)
	}
	if !oldNode.Destroyed() {
		t.Error("grouped proxy kept its old node")
	}

	sibling := f.proxies.Find(0x30)
	if sibling == nil {
		t.Fatal("no proxy for 0x30")
	}
	if sibling.IsChild() || sibling.Node().Parent() != f.root {
		t.Errorf("0x30 parent = %v; expected a root", sibling.ParentHandle())
	}
	owned := f.proxies.Find(0x35)
	if owned == nil {
		t.Fatal("no proxy for 0x35")
	}
	if owned.ParentHandle() != 0x30 || owned.Node().Parent() != sibling.Node() {
		t.Errorf("0x35 parent = %v; expected 0x30", owned.ParentHandle())
	}
}

func TestGroupingOnlyUsesRoots(t *testing.T) {
	f := newFixture(t, windowPrefab())

	for _, h := range []engine.Handle{0x40, 0x30, 0x50} {
		f.eng.AddWindow(h, sim.Spec{Visible: true, ProcessID: 7, ThreadID: 1})
		f.windows.Update()
	}

	for _, h := range []engine.Handle{0x30, 0x50} {
		o := f.proxies.Find(h)
		if o == nil {
			t.Errorf("no proxy for %v", h)
			continue
		}
		if o.ParentHandle() != 0x40 {
			t.Errorf("%v grouped under %v; expected 0x40", h, o.ParentHandle())
		}
	}
}

func TestEligibility(t *testing.T) {
	tests := []struct {
		name  string
		spec  sim.Spec
		proxy bool
	}{
		{name: "visible root", spec: sim.Spec{Visible: true}, proxy: true},
		{name: "invisible root", spec: sim.Spec{Visible: false}},
		{name: "desktop", spec: sim.Spec{Visible: true, Desktop: true}},
		{name: "child of untracked owner, invisible", spec: sim.Spec{Owner: 0x99}},
		{name: "child of untracked owner, visible", spec: sim.Spec{Owner: 0x99, Visible: true}, proxy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, windowPrefab())
			f.eng.AddWindow(0x10, tt.spec)
			f.windows.Update()

			if got := f.proxies.Find(0x10) != nil; got != tt.proxy {
				t.Errorf("proxy created = %v; expected %v", got, tt.proxy)
			}
			if f.windows.Find(0x10) == nil {
				t.Error("window not tracked in the registry")
			}
		})
	}
}

func TestFindParentFallbacks(t *testing.T) {
	f := newFixture(t, windowPrefab())

	f.eng.AddWindow(0x10, sim.Spec{Visible: true, ProcessID: 42, ThreadID: 7})
	f.eng.AddWindow(0x11, sim.Spec{Visible: true, ProcessID: 43})
	f.windows.Update()

	// parent relation without an owner
	f.eng.AddWindow(0x20, sim.Spec{Parent: 0x11})
	// same process and thread, no relation at all
	f.eng.AddWindow(0x30, sim.Spec{ProcessID: 42, ThreadID: 7})
	// same process, different thread
	f.eng.AddWindow(0x40, sim.Spec{ProcessID: 42, ThreadID: 8})
	// unknown process never matches
	f.eng.AddWindow(0x50, sim.Spec{})
	f.windows.Update()

	want := map[engine.Handle]engine.Handle{0x20: 0x11, 0x30: 0x10}
	for h, parent := range want {
		o := f.proxies.Find(h)
		if o == nil || o.ParentHandle() != parent {
			t.Errorf("%v: parent = %v; expected %v", h, o, parent)
		}
	}
	for _, h := range []engine.Handle{0x40, 0x50} {
		if f.proxies.Find(h) != nil {
			t.Errorf("%v got a proxy without a parent or visibility", h)
		}
	}
}

func TestMissingTemplate(t *testing.T) {
	f := newFixture(t, nil)

	f.eng.AddWindow(0x10, sim.Spec{Visible: true})
	f.windows.Update()
	f.proxies.Update(0.1)

	if f.proxies.Len() != 0 {
		t.Errorf("created %d proxies without a template", f.proxies.Len())
	}
	if f.windows.Find(0x10) == nil {
		t.Error("window not tracked")
	}

	f.proxies.SetTemplate(windowPrefab())
	f.eng.AddWindow(0x20, sim.Spec{Visible: true})
	f.windows.Update()
	if f.proxies.Find(0x20) == nil {
		t.Error("no proxy after setting a template")
	}
}

func TestStartReplaysTrackedWindows(t *testing.T) {
	eng := sim.New(sim.Options{})
	windows := window.NewManager(eng)
	if err := windows.Start(engine.DebugModeNone); err != nil {
		t.Fatal(err)
	}
	defer windows.Stop()

	eng.AddWindow(0x10, sim.Spec{Visible: true})
	windows.Update()

	proxies := NewManager(windows, scene.NewNode("root"), windowPrefab(), DefaultSettings())
	proxies.Start()
	proxies.Start()
	defer proxies.Stop()

	if proxies.Len() != 1 || proxies.Find(0x10) == nil {
		t.Errorf("proxies = %d; expected the tracked window", proxies.Len())
	}
}

func TestCaptureMakesVisible(t *testing.T) {
	f := newFixture(t, windowPrefab())

	f.eng.AddWindow(0x10, sim.Spec{Title: "editor", Visible: true, Width: 8, Height: 8})
	f.windows.Update()
	o := f.proxies.Find(0x10)

	// first tick: buffer is stale, so the engine resizes it
	f.proxies.Update(0)
	f.eng.CompleteCaptures()
	f.windows.Update()
	if o.HasCaptured() || o.IsVisible() {
		t.Fatal("visible before any capture")
	}

	f.proxies.Update(1)
	f.eng.CompleteCaptures()
	f.windows.Update()
	f.proxies.Update(0)

	if !o.HasCaptured() || !o.IsVisible() || !o.Node().Material.Visible {
		t.Errorf("captured=%v visible=%v", o.HasCaptured(), o.IsVisible())
	}
	if o.Node().Material.Texture != o.Window().Texture() || o.Node().Material.Texture == nil {
		t.Error("node texture not bound to the window texture")
	}
	if o.Node().Name != "editor" {
		t.Errorf("node name = %q", o.Node().Name)
	}

	f.eng.SetIconic(0x10, true)
	f.proxies.Update(0)
	if o.IsVisible() {
		t.Error("minimized window still visible")
	}
}

func TestNodeNameFollowsTitleOnEvents(t *testing.T) {
	f := newFixture(t, windowPrefab())

	f.eng.AddWindow(0x10, sim.Spec{Title: "editor", Visible: true, Width: 8, Height: 8})
	f.windows.Update()
	o := f.proxies.Find(0x10)

	f.eng.SetTitle(0x10, "editor 2")
	for i := 0; i < 3; i++ {
		f.proxies.Update(0)
	}
	if o.Node().Name != "editor" {
		t.Errorf("name changed without an event: %q", o.Node().Name)
	}

	// the first serviced request resizes the buffer
	f.eng.CompleteCaptures()
	f.windows.Update()
	if o.Node().Name != "editor 2" {
		t.Errorf("name after size change = %q", o.Node().Name)
	}

	f.eng.SetTitle(0x10, "editor 3")
	f.proxies.Update(1)
	f.eng.CompleteCaptures()
	f.windows.Update()
	if !o.HasCaptured() || o.Node().Name != "editor 3" {
		t.Errorf("captured=%v name=%q", o.HasCaptured(), o.Node().Name)
	}
}

func TestAltTabWindowWithoutTitleIsInvalid(t *testing.T) {
	f := newFixture(t, windowPrefab())

	id := f.eng.AddWindow(0x10, sim.Spec{Visible: true, AltTab: true})
	f.windows.Update()
	f.eng.Emit(engine.Message{Type: engine.MessageWindowCaptured, ID: id, Handle: 0x10})
	f.windows.Update()
	f.proxies.Update(0)

	o := f.proxies.Find(0x10)
	if !o.HasCaptured() || o.IsValid() || o.IsVisible() {
		t.Errorf("captured=%v valid=%v visible=%v", o.HasCaptured(), o.IsValid(), o.IsVisible())
	}
}

func TestSetSettingsKeepsPerProxyRate(t *testing.T) {
	f := newFixture(t, windowPrefab())
	f.eng.AddWindow(0x10, sim.Spec{Visible: true})
	f.eng.AddWindow(0x20, sim.Spec{Visible: true})
	f.windows.Update()

	f.proxies.Find(0x20).SetFrameRate(60)

	s := DefaultSettings()
	s.FrameRate = 2
	f.proxies.SetSettings(s)

	if got := f.proxies.Find(0x10).FrameRate(); got != 2 {
		t.Errorf("0x10 rate = %v; expected 2", got)
	}
	if got := f.proxies.Find(0x20).FrameRate(); got != 60 {
		t.Errorf("0x20 rate = %v; expected 60", got)
	}
}

type recordingLayouter struct {
	inits   []engine.Handle
	layouts [][]engine.Handle
}

func (r *recordingLayouter) InitWindow(o *Object) { r.inits = append(r.inits, o.Handle()) }

func (r *recordingLayouter) UpdateLayout(objects []*Object) {
	var hs []engine.Handle
	for _, o := range objects {
		hs = append(hs, o.Handle())
	}
	r.layouts = append(r.layouts, hs)
}

func TestLayouterCalls(t *testing.T) {
	f := newFixture(t, windowPrefab())
	l := &recordingLayouter{}
	f.proxies.AddLayouter(l)

	f.eng.AddWindow(0x30, sim.Spec{Visible: true})
	f.eng.AddWindow(0x10, sim.Spec{Visible: true})
	f.eng.AddWindow(0x20, sim.Spec{Owner: 0x10})
	f.windows.Update()
	f.proxies.Update(0.1)

	if diff := cmp.Diff([]engine.Handle{0x30, 0x10, 0x20}, l.inits); diff != "" {
		t.Errorf("InitWindow order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]engine.Handle{{0x10, 0x30}}, l.layouts); diff != "" {
		t.Errorf("UpdateLayout roots (-want +got):\n%s", diff)
	}
}
