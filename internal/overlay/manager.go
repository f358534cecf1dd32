package overlay

import (
	"fmt"
	"image"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/config"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
)

// Widget type names accepted in output.widgets
const (
	TypeLabel  = config.WidgetLabel
	TypeBorder = config.WidgetBorder
)

// TitleFunc resolves the current title of a window
type TitleFunc func(h engine.Handle) (string, bool)

// Manager handles overlay widgets and rendering. Widgets render in the order
// they were added.
type Manager struct {
	titles TitleFunc

	mu      sync.RWMutex
	widgets []Widget
	enabled bool
}

// NewManager creates an empty, disabled overlay. titles may be nil.
func NewManager(titles TitleFunc) *Manager {
	return &Manager{titles: titles}
}

// AddWidget adds a widget to the overlay
func (m *Manager) AddWidget(widget Widget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.widgets {
		if w.ID() == widget.ID() {
			return fmt.Errorf("widget with ID %s already exists", widget.ID())
		}
	}
	m.widgets = append(m.widgets, widget)
	logger.WithComponent("overlay").Debug().
		Str("id", widget.ID()).
		Str("type", widget.Type()).
		Msg("Widget added")
	return nil
}

// RemoveWidget removes a widget from the overlay
func (m *Manager) RemoveWidget(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range m.widgets {
		if w.ID() == id {
			m.widgets = append(m.widgets[:i], m.widgets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("widget with ID %s not found", id)
}

// Widget retrieves a widget by ID
func (m *Manager) Widget(id string) (Widget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.widgets {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// Widgets returns all widgets in render order
func (m *Manager) Widgets() []Widget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Widget(nil), m.widgets...)
}

// SetEnabled enables or disables the entire overlay
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

// IsEnabled returns whether the overlay is enabled
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Render draws every enabled widget onto img
func (m *Manager) Render(img *image.RGBA, f Frame) {
	if !m.IsEnabled() {
		return
	}
	for _, w := range m.Widgets() {
		if !w.IsEnabled() {
			continue
		}
		if err := w.Render(img, f); err != nil {
			logger.WithComponent("overlay").Warn().Err(err).Str("id", w.ID()).Msg("Failed to render widget")
		}
	}
}

// Decorate renders the overlay for window h, resolving its title first
func (m *Manager) Decorate(h engine.Handle, img *image.RGBA) {
	if !m.IsEnabled() {
		return
	}
	f := Frame{Handle: h}
	if m.titles != nil {
		f.Title, _ = m.titles(h)
	}
	m.Render(img, f)
}

// CreateWidget creates a widget from its configuration
func CreateWidget(cfg config.WidgetConfig) (Widget, error) {
	var widget Widget

	switch cfg.Type {
	case TypeLabel:
		w := NewLabelWidget(cfg.ID, cfg.Text, cfg.X, cfg.Y, cfg.Opacity)
		if cfg.Color != "" {
			c, err := ParseColor(cfg.Color)
			if err != nil {
				return nil, err
			}
			w.SetColor(c)
		}
		if cfg.Background != "" {
			c, err := ParseColor(cfg.Background)
			if err != nil {
				return nil, err
			}
			w.SetBackground(&c)
		}
		widget = w
	case TypeBorder:
		c, err := ParseColor(cfg.Color)
		if err != nil {
			return nil, err
		}
		widget = NewBorderWidget(cfg.ID, cfg.Width, c, cfg.Opacity)
	default:
		return nil, fmt.Errorf("unknown widget type: %s", cfg.Type)
	}

	widget.SetEnabled(!cfg.Disabled)
	return widget, nil
}

// Apply replaces every widget with those described by cfg and sets the
// overlay's enabled state. Widgets that fail to build are skipped.
func (m *Manager) Apply(cfg config.OutputConfig) {
	log := logger.WithComponent("overlay")

	widgets := make([]Widget, 0, len(cfg.Widgets))
	seen := make(map[string]bool)
	for _, wc := range cfg.Widgets {
		if seen[wc.ID] {
			log.Warn().Str("id", wc.ID).Msg("Skipping duplicate widget")
			continue
		}
		w, err := CreateWidget(wc)
		if err != nil {
			log.Warn().Err(err).Str("id", wc.ID).Msg("Skipping widget")
			continue
		}
		seen[wc.ID] = true
		widgets = append(widgets, w)
	}

	m.mu.Lock()
	m.widgets = widgets
	m.enabled = cfg.Overlay
	m.mu.Unlock()

	log.Info().Bool("enabled", cfg.Overlay).Int("widgets", len(widgets)).Msg("Overlay configured")
}
