package x11

import (
	"image"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

// props is what one poll learns about a client window
type props struct {
	owner    xproto.Window
	parent   xproto.Window
	pid      int
	x, y     int
	width    int
	height   int
	zOrder   int
	viewable bool
	states   []string
	types    []string
}

type window struct {
	id    engine.ID
	xid   xproto.Window
	props props

	title   string
	mode    engine.CaptureMode
	texture *engine.Texture
	icon    *image.RGBA
}

func (w *window) hasState(s string) bool {
	return contains(w.props.states, s)
}

func (w *window) hasType(t string) bool {
	return contains(w.props.types, t)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (e *Engine) pollLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.poll()
		}
	}
}

// clients returns top-level clients bottom to top. _NET_CLIENT_LIST is the
// fallback for window managers without stacking order.
func (e *Engine) clients() []xproto.Window {
	clients, err := ewmh.ClientListStackingGet(e.xu)
	if err == nil && len(clients) > 0 {
		return clients
	}
	clients, err = ewmh.ClientListGet(e.xu)
	if err != nil {
		e.errorf("failed to read client list: %v", err)
		return nil
	}
	return clients
}

// poll reads every client, then diffs against the known set under the lock:
// new clients are Added, vanished ones Removed, resized ones SizeChanged.
func (e *Engine) poll() {
	clients := e.clients()

	current := make(map[xproto.Window]props, len(clients))
	for i, xid := range clients {
		p, ok := e.readProps(xid)
		if !ok {
			continue
		}
		// stacking order is bottom to top, z-order counts from the top
		p.zOrder = len(clients) - 1 - i
		current[xid] = p
	}

	active, _ := ewmh.ActiveWindowGet(e.xu)
	pointer, perr := xproto.QueryPointer(e.conn, e.root).Reply()

	var added []*window
	e.mu.Lock()
	for xid, id := range e.byXID {
		if _, ok := current[xid]; ok {
			continue
		}
		w := e.windows[id]
		e.requests.remove(id)
		delete(e.windows, id)
		delete(e.byXID, xid)
		e.enqueueLocked(engine.MessageWindowRemoved, w)
	}
	for _, xid := range clients {
		p, ok := current[xid]
		if !ok {
			continue
		}
		if id, known := e.byXID[xid]; known {
			w := e.windows[id]
			resized := w.props.width != p.width || w.props.height != p.height
			w.props = p
			if resized {
				e.enqueueLocked(engine.MessageWindowSizeChanged, w)
			}
			continue
		}
		w := &window{id: e.nextID, xid: xid, props: p, mode: engine.CaptureModePrintWindow}
		e.nextID++
		e.windows[w.id] = w
		e.byXID[xid] = w.id
		e.enqueueLocked(engine.MessageWindowAdded, w)
		added = append(added, w)
	}

	e.active = engine.Handle(active)
	if perr == nil {
		e.cursorPos = engine.Point{X: int32(pointer.RootX), Y: int32(pointer.RootY)}
		e.cursor = e.windowFromPointLocked(int(pointer.RootX), int(pointer.RootY))
	}
	e.mu.Unlock()

	for _, w := range added {
		e.fetchIcon(w)
	}
}

// readProps queries one client. It reports false when the window vanished
// between listing and querying.
func (e *Engine) readProps(xid xproto.Window) (props, bool) {
	var p props

	geom, err := xproto.GetGeometry(e.conn, xproto.Drawable(xid)).Reply()
	if err != nil {
		return p, false
	}
	p.width, p.height = int(geom.Width), int(geom.Height)

	if pos, err := xproto.TranslateCoordinates(e.conn, xid, e.root, 0, 0).Reply(); err == nil {
		p.x, p.y = int(pos.DstX), int(pos.DstY)
	}
	if attrs, err := xproto.GetWindowAttributes(e.conn, xid).Reply(); err == nil {
		p.viewable = attrs.MapState == xproto.MapStateViewable
	}
	if tree, err := xproto.QueryTree(e.conn, xid).Reply(); err == nil && tree.Parent != e.root {
		p.parent = tree.Parent
	}
	if owner, err := icccm.WmTransientForGet(e.xu, xid); err == nil && owner != e.root {
		p.owner = owner
	}
	if pid, err := ewmh.WmPidGet(e.xu, xid); err == nil {
		p.pid = int(pid)
	}
	p.states, _ = ewmh.WmStateGet(e.xu, xid)
	p.types, _ = ewmh.WmWindowTypeGet(e.xu, xid)
	return p, true
}

// fetchIcon reads _NET_WM_ICON, keeps the largest size and queues
// IconCaptured. Windows without an icon get no message.
func (e *Engine) fetchIcon(w *window) {
	icons, err := ewmh.WmIconGet(e.xu, w.xid)
	if err != nil || len(icons) == 0 {
		return
	}
	best := icons[0]
	for _, icon := range icons[1:] {
		if icon.Width*icon.Height > best.Width*best.Height {
			best = icon
		}
	}
	img := iconImage(int(best.Width), int(best.Height), best.Data)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.windows[w.id]; !ok {
		return
	}
	w.icon = img
	e.enqueueLocked(engine.MessageIconCaptured, w)
}

// iconImage converts _NET_WM_ICON ARGB cardinals to RGBA
func iconImage(width, height int, argb []uint) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, px := range argb {
		if i >= width*height {
			break
		}
		o := i * 4
		img.Pix[o+0] = uint8(px >> 16)
		img.Pix[o+1] = uint8(px >> 8)
		img.Pix[o+2] = uint8(px)
		img.Pix[o+3] = uint8(px >> 24)
	}
	return img
}

// windowFromPointLocked returns the front-most viewable window containing
// (x, y); e.mu must be held.
func (e *Engine) windowFromPointLocked(x, y int) engine.Handle {
	var best *window
	for _, w := range e.windows {
		p := w.props
		if !p.viewable || w.hasState("_NET_WM_STATE_HIDDEN") {
			continue
		}
		if x < p.x || y < p.y || x >= p.x+p.width || y >= p.y+p.height {
			continue
		}
		if best == nil || p.zOrder < best.props.zOrder {
			best = w
		}
	}
	if best == nil {
		return 0
	}
	return engine.Handle(best.xid)
}

// WindowIcon returns the icon read for a window, if any
func (e *Engine) WindowIcon(id engine.ID) (*image.RGBA, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.windows[id]
	if !ok || w.icon == nil {
		return nil, false
	}
	return w.icon, true
}
