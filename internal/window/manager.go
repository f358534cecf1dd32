package window

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/rs/zerolog"
)

// Manager owns the engine lifecycle, the window registry and the dispatcher.
// Update drains the engine's message batch once per tick.
type Manager struct {
	eng        engine.Engine
	registry   *Registry
	dispatcher *Dispatcher

	mu           sync.RWMutex
	cursorHandle engine.Handle
	started      bool
}

// NewManager creates a manager around eng. Nothing talks to the engine until
// Start.
func NewManager(eng engine.Engine) *Manager {
	return &Manager{
		eng:        eng,
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(),
	}
}

// Start initializes the engine and attaches its log hooks. An initialization
// failure is returned as is and must be treated as fatal.
func (m *Manager) Start(debugMode engine.DebugMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	m.eng.SetDebugMode(debugMode)
	m.eng.SetLogFunc(logger.Func("engine", zerolog.DebugLevel))
	m.eng.SetErrorFunc(logger.Func("engine", zerolog.ErrorLevel))

	if err := m.eng.Initialize(); err != nil {
		m.eng.SetLogFunc(nil)
		m.eng.SetErrorFunc(nil)
		if !errors.Is(err, engine.ErrEngineInit) {
			err = fmt.Errorf("%w: %v", engine.ErrEngineInit, err)
		}
		return err
	}

	m.started = true
	logger.WithComponent("window-manager").Info().Msg("Capture engine initialized")
	return nil
}

// Stop detaches the log hooks and finalizes the engine
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.eng.SetLogFunc(nil)
	m.eng.SetErrorFunc(nil)
	m.eng.Finalize()
	m.started = false
}

// Engine returns the gateway
func (m *Manager) Engine() engine.Engine { return m.eng }

// Registry returns the window registry
func (m *Manager) Registry() *Registry { return m.registry }

// Dispatcher returns the event dispatcher
func (m *Manager) Dispatcher() *Dispatcher { return m.dispatcher }

// Update advances the engine one tick, refreshes the cursor window and
// processes the tick's messages in order. Every message is fully delivered
// before the next one is looked at.
func (m *Manager) Update() {
	log := logger.WithComponent("window-manager")

	m.eng.Update()

	m.mu.Lock()
	m.cursorHandle = m.eng.WindowUnderCursor()
	m.mu.Unlock()

	msgs, err := engine.DrainMessages(m.eng)
	if err != nil {
		log.Warn().Err(err).Int("decoded", len(msgs)).Msg("Truncated message batch")
	}

	for _, msg := range msgs {
		m.handleMessage(msg)
	}
}

func (m *Manager) handleMessage(msg engine.Message) {
	log := logger.WithComponent("window-manager")

	switch msg.Type {
	case engine.MessageWindowAdded:
		if old := m.registry.Find(msg.Handle); old != nil {
			// the engine reused a handle we still track: retire the old record first
			log.Debug().Stringer("handle", msg.Handle).Msg("Window re-added, retiring previous record")
			m.removeWindow(msg.Handle)
		}
		w := newWindow(m.eng, msg.Handle, msg.ID)
		m.registry.add(w)
		log.Debug().
			Stringer("handle", msg.Handle).
			Int32("id", int32(msg.ID)).
			Msg("Window added")
		m.dispatcher.Dispatch(engine.MessageWindowAdded, w)

	case engine.MessageWindowRemoved:
		if m.removeWindow(msg.Handle) {
			log.Debug().Stringer("handle", msg.Handle).Msg("Window removed")
		}

	case engine.MessageWindowCaptured,
		engine.MessageWindowSizeChanged,
		engine.MessageIconCaptured:
		if w := m.registry.Find(msg.Handle); w != nil {
			m.dispatcher.Dispatch(msg.Type, w)
		}

	default:
		// unknown kinds are skipped so newer engines keep working
	}
}

func (m *Manager) removeWindow(h engine.Handle) bool {
	w := m.registry.Find(h)
	if w == nil {
		return false
	}
	w.markDead()
	m.dispatcher.Dispatch(engine.MessageWindowRemoved, w)
	m.registry.remove(h)
	return true
}

// Retire drops a tracked window the engine has not reported removed yet,
// notifying removal observers the same way a WindowRemoved message would.
// A later WindowRemoved for h is a no-op.
func (m *Manager) Retire(h engine.Handle) bool {
	if !m.removeWindow(h) {
		return false
	}
	logger.WithComponent("window-manager").Debug().Stringer("handle", h).Msg("Window retired")
	return true
}

// Find returns the tracked window for h
func (m *Manager) Find(h engine.Handle) *Window {
	return m.registry.Find(h)
}

// FindByTitle returns some window whose title contains substr
func (m *Manager) FindByTitle(substr string) *Window {
	return m.registry.FindByTitle(substr)
}

// FindAll returns every window whose title contains substr
func (m *Manager) FindAll(substr string) []*Window {
	return m.registry.FindAll(substr)
}

// CursorHandle returns the handle under the cursor as of the last Update
func (m *Manager) CursorHandle() engine.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursorHandle
}

// CursorWindow resolves CursorHandle against the registry
func (m *Manager) CursorWindow() *Window {
	return m.registry.Find(m.CursorHandle())
}

// ForegroundWindow resolves the engine's foreground window
func (m *Manager) ForegroundWindow() *Window {
	return m.registry.Find(m.eng.ForegroundWindow())
}
