package proxy

import (
	"sort"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/scene"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
)

// Template instantiates the scene node for a new proxy
type Template interface {
	Instantiate(parent *scene.Node, name string) *scene.Node
}

// Layouter arranges proxies. InitWindow runs once per new proxy, UpdateLayout
// once per frame after the scheduling and child passes.
type Layouter interface {
	InitWindow(o *Object)
	UpdateLayout(objects []*Object)
}

// Manager keeps one proxy per eligible tracked window and places it in the
// scene hierarchy. All mutation happens from window events dispatched by
// window.Manager.Update, so it completes before the frame's Update pass.
type Manager struct {
	windows   *window.Manager
	root      *scene.Node
	template  Template
	settings  Settings
	objects   map[engine.Handle]*Object
	layouters []Layouter
	unsubs    []func()
}

// NewManager creates a manager placing root proxies under root. A nil
// template leaves windows tracked without proxies.
func NewManager(windows *window.Manager, root *scene.Node, template Template, settings Settings) *Manager {
	return &Manager{
		windows:  windows,
		root:     root,
		template: template,
		settings: settings,
		objects:  make(map[engine.Handle]*Object),
	}
}

// Start subscribes to window events and creates proxies for windows the
// registry already tracks.
func (m *Manager) Start() {
	if m.unsubs != nil {
		return
	}
	d := m.windows.Dispatcher()
	m.unsubs = []func(){
		d.OnAdded(m.onWindowAdded),
		d.OnRemoved(m.onWindowRemoved),
		d.OnCaptured(m.onWindowCaptured),
		d.OnSizeChanged(m.onWindowSizeChanged),
	}

	for _, w := range m.windows.Registry().Windows() {
		if _, ok := m.objects[w.Handle()]; !ok {
			m.onWindowAdded(w)
		}
	}
}

// Stop unsubscribes from window events. Existing proxies are kept.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// AddLayouter appends l to the layout pass
func (m *Manager) AddLayouter(l Layouter) {
	m.layouters = append(m.layouters, l)
}

// Settings returns the current shared settings
func (m *Manager) Settings() Settings { return m.settings }

// SetSettings replaces the shared settings. Proxies without a per-proxy frame
// rate pick up the new rate on their next Update.
func (m *Manager) SetSettings(s Settings) {
	m.settings = s
	for _, o := range m.objects {
		o.apply(s)
	}
}

// SetTemplate swaps the template used for proxies created from now on
func (m *Manager) SetTemplate(t Template) {
	m.template = t
}

// FindParent resolves the proxy a new window should be attached under:
// its owner's proxy, else its parent's proxy, else a root proxy of the same
// process and thread. The last step is a heuristic for windows that report
// neither relation and can pick the wrong root when one thread owns several
// unrelated top-level windows.
func (m *Manager) FindParent(w *window.Window) *Object {
	if owner := w.Owner(); owner != 0 {
		if o, ok := m.objects[owner]; ok {
			return o
		}
	}
	if parent := w.Parent(); parent != 0 {
		if o, ok := m.objects[parent]; ok {
			return o
		}
	}

	pid, tid := w.ProcessID(), w.ThreadID()
	if pid == 0 {
		return nil
	}
	for _, o := range m.Roots() {
		if o.Handle() == w.Handle() || o.window.IsChild() {
			continue
		}
		if o.window.ProcessID() == pid && o.window.ThreadID() == tid {
			return o
		}
	}
	return nil
}

func (m *Manager) onWindowAdded(w *window.Window) {
	log := logger.WithComponent("proxy-manager")

	if w.IsDesktop() {
		return
	}

	if parent := m.FindParent(w); parent != nil {
		m.addObject(w, parent)
		return
	}
	if w.IsVisible() {
		m.addObject(w, nil)
		return
	}
	log.Debug().Stringer("handle", w.Handle()).Msg("Skipping invisible root window")
}

func (m *Manager) addObject(w *window.Window, parent *Object) {
	log := logger.WithComponent("proxy-manager")

	if m.template == nil {
		log.Warn().
			Stringer("handle", w.Handle()).
			Msg("No proxy template configured, window tracked without a proxy")
		return
	}

	parentNode := m.root
	var parentHandle engine.Handle
	if parent != nil {
		parentNode = parent.node
		parentHandle = parent.Handle()
	}

	node := m.template.Instantiate(parentNode, w.Title())
	o := newObject(w, parentHandle, node, m.settings)
	for _, l := range m.layouters {
		l.InitWindow(o)
	}
	m.objects[w.Handle()] = o

	log.Debug().
		Stringer("handle", w.Handle()).
		Stringer("parent", parentHandle).
		Str("name", node.Name).
		Msg("Proxy created")
}

// onWindowRemoved destroys the proxy and every descendant proxy, leaves
// first. Descendants whose owner or parent chain reaches the removed window
// go with it and are retired from the registry, the same way the OS destroys
// owned windows with their owner. Descendants grouped only by process and
// thread are still alive; they are placed again from scratch.
func (m *Manager) onWindowRemoved(w *window.Window) {
	o, ok := m.objects[w.Handle()]
	if !ok {
		return
	}

	var removed []engine.Handle
	m.removeRecursive(o, &removed)

	// classify before retiring anything, the chains run through the registry
	var retire []engine.Handle
	var replace []*window.Window
	for i := len(removed) - 1; i >= 0; i-- {
		h := removed[i]
		if h == w.Handle() {
			continue
		}
		if m.descendsFrom(h, w.Handle()) {
			retire = append(retire, h)
			continue
		}
		if rw := m.windows.Find(h); rw != nil && rw.IsAlive() {
			replace = append(replace, rw)
		}
	}

	for _, h := range retire {
		m.windows.Retire(h)
	}
	// removed is leaves first, so replace runs ancestors before descendants
	for _, rw := range replace {
		if _, ok := m.objects[rw.Handle()]; !ok {
			m.onWindowAdded(rw)
		}
	}
}

// descendsFrom reports whether following h's owner, else parent, relation
// through tracked windows reaches ancestor.
func (m *Manager) descendsFrom(h, ancestor engine.Handle) bool {
	seen := make(map[engine.Handle]bool)
	for h != 0 && !seen[h] {
		seen[h] = true
		w := m.windows.Find(h)
		if w == nil {
			return false
		}
		next := w.Owner()
		if next == 0 {
			next = w.Parent()
		}
		if next == ancestor {
			return true
		}
		h = next
	}
	return false
}

func (m *Manager) removeRecursive(o *Object, removed *[]engine.Handle) {
	for _, child := range m.Children(o.Handle()) {
		m.removeRecursive(child, removed)
	}
	delete(m.objects, o.Handle())
	if o.node != nil {
		o.node.Destroy()
	}
	*removed = append(*removed, o.Handle())

	logger.WithComponent("proxy-manager").Debug().
		Stringer("handle", o.Handle()).
		Msg("Proxy destroyed")
}

func (m *Manager) onWindowCaptured(w *window.Window) {
	if o, ok := m.objects[w.Handle()]; ok {
		o.markCaptured()
	}
}

func (m *Manager) onWindowSizeChanged(w *window.Window) {
	if o, ok := m.objects[w.Handle()]; ok {
		o.markSizeChanged()
	}
}

// Update runs the per-frame pass: every proxy's scheduler, then the child
// transform, then the layouters.
func (m *Manager) Update(dt float64) {
	frame := FrameInfo{
		CursorHandle:    m.windows.CursorHandle(),
		NearFrontZOrder: m.settings.NearFrontZOrder,
	}

	objects := m.sorted()
	for _, o := range objects {
		o.Update(dt, frame)
	}

	eng := m.windows.Engine()
	screen := Screen{Width: eng.ScreenWidth(), Height: eng.ScreenHeight()}
	for _, o := range objects {
		if !o.IsChild() {
			continue
		}
		if parent, ok := m.objects[o.parent]; ok {
			MoveAndScaleChild(o, parent, screen, m.settings)
		}
	}

	if len(m.layouters) > 0 {
		roots := m.Roots()
		for _, l := range m.layouters {
			l.UpdateLayout(roots)
		}
	}
}

// Find returns the proxy for h, or nil
func (m *Manager) Find(h engine.Handle) *Object {
	return m.objects[h]
}

// Objects returns every proxy ordered by handle
func (m *Manager) Objects() []*Object {
	return m.sorted()
}

// Roots returns the proxies without a parent proxy, ordered by handle
func (m *Manager) Roots() []*Object {
	var out []*Object
	for _, o := range m.sorted() {
		if !o.IsChild() {
			out = append(out, o)
		}
	}
	return out
}

// Children returns the direct child proxies of h, ordered by handle
func (m *Manager) Children(h engine.Handle) []*Object {
	var out []*Object
	for _, o := range m.sorted() {
		if o.parent == h && o.parent != 0 {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of proxies
func (m *Manager) Len() int {
	return len(m.objects)
}

func (m *Manager) sorted() []*Object {
	out := make([]*Object, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle() < out[j].Handle() })
	return out
}
