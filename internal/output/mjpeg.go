package output

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
)

// ErrNotRunning is returned by WriteFrame before Start or after Stop
var ErrNotRunning = errors.New("MJPEG output not running")

// MJPEGOutput keeps one Motion JPEG stream per window
type MJPEGOutput struct {
	config  Config
	running bool
	mu      sync.RWMutex

	streamsMu sync.RWMutex
	streams   map[engine.Handle]*stream

	// Stats
	frameCount uint64
	startTime  time.Time
}

type stream struct {
	mu         sync.RWMutex
	latest     []byte
	lastUpdate time.Time
	frames     uint64
	clients    map[chan []byte]struct{}
}

// Stats describes one window's stream
type Stats struct {
	Handle     engine.Handle `json:"handle"`
	Frames     uint64        `json:"frames"`
	Clients    int           `json:"clients"`
	LastUpdate time.Time     `json:"last_update"`
}

// NewMJPEGOutput creates a new MJPEG stream output
func NewMJPEGOutput(config Config) *MJPEGOutput {
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = jpeg.DefaultQuality
	}
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = 2
	}
	return &MJPEGOutput{
		config:  config,
		streams: make(map[engine.Handle]*stream),
	}
}

// Start initializes the MJPEG output
func (m *MJPEGOutput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG output already running")
	}

	m.running = true
	m.startTime = time.Now()
	m.frameCount = 0

	logger.WithComponent("mjpeg").Info().Int("quality", m.config.Quality).Msg("Output started")
	return nil
}

// Stop disconnects every client and forgets all streams
func (m *MJPEGOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	m.streamsMu.Lock()
	for _, s := range m.streams {
		s.closeClients()
	}
	m.streams = make(map[engine.Handle]*stream)
	m.streamsMu.Unlock()

	logger.WithComponent("mjpeg").Info().Uint64("frames", m.frameCount).Msg("Output stopped")
	return nil
}

// WriteFrame encodes frame and sends it to every client of window h
func (m *MJPEGOutput) WriteFrame(h engine.Handle, frame *image.RGBA) error {
	if !m.IsRunning() {
		return ErrNotRunning
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: m.config.Quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	data := buf.Bytes()

	s := m.stream(h, true)
	s.mu.Lock()
	s.latest = data
	s.lastUpdate = time.Now()
	s.frames++
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
			// client is slow, skip this frame
		}
	}
	s.mu.Unlock()

	m.mu.Lock()
	m.frameCount++
	m.mu.Unlock()
	return nil
}

// Drop disconnects the clients of window h and forgets its last frame
func (m *MJPEGOutput) Drop(h engine.Handle) {
	m.streamsMu.Lock()
	s, ok := m.streams[h]
	delete(m.streams, h)
	m.streamsMu.Unlock()

	if ok {
		s.closeClients()
		logger.WithComponent("mjpeg").Debug().Stringer("handle", h).Msg("Stream dropped")
	}
}

// Latest returns the last encoded frame of window h
func (m *MJPEGOutput) Latest(h engine.Handle) ([]byte, bool) {
	s := m.stream(h, false)
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Stats reports every window that has produced at least one frame
func (m *MJPEGOutput) Stats() []Stats {
	m.streamsMu.RLock()
	defer m.streamsMu.RUnlock()

	out := make([]Stats, 0, len(m.streams))
	for h, s := range m.streams {
		s.mu.RLock()
		out = append(out, Stats{Handle: h, Frames: s.frames, Clients: len(s.clients), LastUpdate: s.lastUpdate})
		s.mu.RUnlock()
	}
	return out
}

// Name returns the output type name
func (m *MJPEGOutput) Name() string {
	return "MJPEG HTTP Stream"
}

// IsRunning returns true if the output is active
func (m *MJPEGOutput) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *MJPEGOutput) stream(h engine.Handle, create bool) *stream {
	m.streamsMu.RLock()
	s, ok := m.streams[h]
	m.streamsMu.RUnlock()
	if ok || !create {
		return s
	}

	m.streamsMu.Lock()
	defer m.streamsMu.Unlock()
	if s, ok = m.streams[h]; ok {
		return s
	}
	s = &stream{clients: make(map[chan []byte]struct{})}
	m.streams[h] = s
	return s
}

func (s *stream) closeClients() {
	s.mu.Lock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]struct{})
	s.mu.Unlock()
}

// ServeStream streams window h to the client until it disconnects, the
// window is dropped or the output stops. The last frame, if any, is sent
// first.
func (m *MJPEGOutput) ServeStream(w http.ResponseWriter, r *http.Request, h engine.Handle) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Connection", "close")

	log := logger.WithComponent("mjpeg")

	frameChan := make(chan []byte, m.config.ClientBuffer)
	s := m.stream(h, true)
	s.mu.Lock()
	s.clients[frameChan] = struct{}{}
	clientCount := len(s.clients)
	if s.latest != nil {
		frameChan <- s.latest
	}
	s.mu.Unlock()

	log.Info().Stringer("handle", h).Int("clients", clientCount).Msg("Client connected")

	defer func() {
		s.mu.Lock()
		delete(s.clients, frameChan)
		remaining := len(s.clients)
		s.mu.Unlock()
		log.Info().Stringer("handle", h).Int("clients", remaining).Msg("Client disconnected")
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-frameChan:
			if !ok {
				return
			}
			if err := writePart(w, data); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}
