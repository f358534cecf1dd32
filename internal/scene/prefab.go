package scene

import (
	"sort"
	"sync"

	"golang.org/x/image/math/f64"
)

// Prefab is a named node template
type Prefab struct {
	Name  string
	Scale f64.Vec3
}

// Instantiate creates a node from the prefab under parent
func (p Prefab) Instantiate(parent *Node, name string) *Node {
	n := NewNode(name)
	if p.Scale != (f64.Vec3{}) {
		n.LocalScale = p.Scale
	}
	if parent != nil {
		parent.AddChild(n)
	}
	return n
}

// Library holds the prefabs available to a scene
type Library struct {
	mu      sync.RWMutex
	prefabs map[string]Prefab
}

// NewLibrary creates a library holding the built-in "window" prefab
func NewLibrary() *Library {
	l := &Library{prefabs: make(map[string]Prefab)}
	l.Register(Prefab{Name: "window", Scale: One})
	return l
}

// Register adds or replaces a prefab
func (l *Library) Register(p Prefab) {
	l.mu.Lock()
	l.prefabs[p.Name] = p
	l.mu.Unlock()
}

// Lookup finds a prefab by name
func (l *Library) Lookup(name string) (Prefab, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.prefabs[name]
	return p, ok
}

// Names lists registered prefabs
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.prefabs))
	for name := range l.prefabs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
