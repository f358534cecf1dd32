package window

import (
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

// Handler observes one kind of window lifecycle event
type Handler func(w *Window)

// Event is what channel subscribers receive
type Event struct {
	Type   engine.MessageType `json:"type"`
	Handle engine.Handle      `json:"handle"`
	ID     engine.ID          `json:"id"`
}

type observer struct {
	id int
	fn Handler
}

// Dispatcher fans window events out to observers, synchronously and in
// registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	nextID    int
	observers map[engine.MessageType][]observer
	listeners []chan Event
}

// NewDispatcher creates a dispatcher with no observers
func NewDispatcher() *Dispatcher {
	return &Dispatcher{observers: make(map[engine.MessageType][]observer)}
}

// On registers fn for kind and returns a func that unregisters it
func (d *Dispatcher) On(kind engine.MessageType, fn Handler) (unsubscribe func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.observers[kind] = append(d.observers[kind], observer{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		obs := d.observers[kind]
		for i, o := range obs {
			if o.id == id {
				d.observers[kind] = append(obs[:i:i], obs[i+1:]...)
				return
			}
		}
	}
}

func (d *Dispatcher) OnAdded(fn Handler) func()   { return d.On(engine.MessageWindowAdded, fn) }
func (d *Dispatcher) OnRemoved(fn Handler) func() { return d.On(engine.MessageWindowRemoved, fn) }
func (d *Dispatcher) OnCaptured(fn Handler) func() {
	return d.On(engine.MessageWindowCaptured, fn)
}
func (d *Dispatcher) OnSizeChanged(fn Handler) func() {
	return d.On(engine.MessageWindowSizeChanged, fn)
}
func (d *Dispatcher) OnIconCaptured(fn Handler) func() {
	return d.On(engine.MessageIconCaptured, fn)
}

// Dispatch delivers one event to every observer of kind before returning.
// Observers registered or removed during delivery take effect from the next
// Dispatch.
func (d *Dispatcher) Dispatch(kind engine.MessageType, w *Window) {
	d.mu.RLock()
	obs := append([]observer(nil), d.observers[kind]...)
	d.mu.RUnlock()

	for _, o := range obs {
		o.fn(w)
	}
	d.notifyListeners(Event{Type: kind, Handle: w.handle, ID: w.id})
}

// Subscribe adds a channel listener. Sends never block; a full channel
// misses events.
func (d *Dispatcher) Subscribe() chan Event {
	ch := make(chan Event, 64)
	d.mu.Lock()
	d.listeners = append(d.listeners, ch)
	d.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (d *Dispatcher) Unsubscribe(ch chan Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, listener := range d.listeners {
		if listener == ch {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (d *Dispatcher) notifyListeners(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, listener := range d.listeners {
		select {
		case listener <- ev:
		default:
		}
	}
}
