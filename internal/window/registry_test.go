package window

import (
	"testing"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/engine/sim"
	"github.com/google/go-cmp/cmp"
)

func TestRegistryFind(t *testing.T) {
	e := sim.New(sim.Options{})
	id := e.AddWindow(0x10, sim.Spec{Title: "terminal"})

	r := NewRegistry()
	w := newWindow(e, 0x10, id)
	r.add(w)

	if got := r.Find(0x10); got != w {
		t.Errorf("Find(0x10) = %v; expected the added record", got)
	}
	if got := r.Find(0); got != nil {
		t.Errorf("Find(null handle) = %v; expected nil", got)
	}
	if got := r.Find(0x99); got != nil {
		t.Errorf("Find(untracked) = %v; expected nil", got)
	}
	if got := r.FindByTitle("term"); got != w {
		t.Errorf("FindByTitle(\"term\") = %v", got)
	}
	if got := r.FindByTitle("browser"); got != nil {
		t.Errorf("FindByTitle(\"browser\") = %v; expected nil", got)
	}
}

func TestRegistryRemoveMarksDead(t *testing.T) {
	e := sim.New(sim.Options{})
	r := NewRegistry()
	w := newWindow(e, 0x10, e.AddWindow(0x10, sim.Spec{}))
	r.add(w)

	if got := r.remove(0x10); got != w {
		t.Fatalf("remove returned %v", got)
	}
	if w.IsAlive() {
		t.Error("removed record still alive")
	}
	if r.Find(0x10) != nil || r.Len() != 0 {
		t.Error("removed record still tracked")
	}
	if got := r.remove(0x10); got != nil {
		t.Errorf("second remove returned %v; expected nil", got)
	}
}

func TestRegistryOrdering(t *testing.T) {
	e := sim.New(sim.Options{})
	r := NewRegistry()
	for _, h := range []engine.Handle{0x30, 0x10, 0x20} {
		r.add(newWindow(e, h, e.AddWindow(h, sim.Spec{Title: "w"})))
	}

	want := []engine.Handle{0x10, 0x20, 0x30}
	if diff := cmp.Diff(want, r.Handles()); diff != "" {
		t.Errorf("Handles (-want +got):\n%s", diff)
	}
	var got []engine.Handle
	for _, w := range r.Windows() {
		got = append(got, w.Handle())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Windows (-want +got):\n%s", diff)
	}
	if n := len(r.FindAll("w")); n != 3 {
		t.Errorf("FindAll matched %d; expected 3", n)
	}
}
