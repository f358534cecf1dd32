package window

import (
	"sort"
	"strings"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

// Registry maps handles to live window records. Only the Manager mutates it.
type Registry struct {
	mu      sync.RWMutex
	windows map[engine.Handle]*Window
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{windows: make(map[engine.Handle]*Window)}
}

func (r *Registry) add(w *Window) {
	r.mu.Lock()
	r.windows[w.handle] = w
	r.mu.Unlock()
}

// remove marks the record dead before detaching it, so a handler still
// holding it mid-dispatch sees "not alive" rather than a missing entry.
func (r *Registry) remove(h engine.Handle) *Window {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[h]
	if !ok {
		return nil
	}
	w.markDead()
	delete(r.windows, h)
	return w
}

// Find returns the record for h, or nil for the null handle and for handles
// that are not tracked.
func (r *Registry) Find(h engine.Handle) *Window {
	if h == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windows[h]
}

// FindByTitle returns some window whose title contains substr. When several
// match, which one is returned is unspecified.
func (r *Registry) FindByTitle(substr string) *Window {
	for _, w := range r.snapshot() {
		if strings.Contains(w.Title(), substr) {
			return w
		}
	}
	return nil
}

// FindAll returns every window whose title contains substr
func (r *Registry) FindAll(substr string) []*Window {
	var out []*Window
	for _, w := range r.snapshot() {
		if strings.Contains(w.Title(), substr) {
			out = append(out, w)
		}
	}
	return out
}

// Windows returns all tracked windows ordered by handle
func (r *Registry) Windows() []*Window {
	out := r.snapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

// Handles returns all tracked handles in ascending order
func (r *Registry) Handles() []engine.Handle {
	r.mu.RLock()
	out := make([]engine.Handle, 0, len(r.windows))
	for h := range r.windows {
		out = append(out, h)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of tracked windows
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.windows)
}

func (r *Registry) snapshot() []*Window {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Window, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, w)
	}
	return out
}
