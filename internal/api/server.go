// Package api exposes the tracked windows, their proxies and their captured
// frames over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/bryanchriswhite/DeskMirror/internal/app"
	"github.com/bryanchriswhite/DeskMirror/internal/config"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/output"
	"github.com/bryanchriswhite/DeskMirror/internal/proxy"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by /api/health
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	ctx       *app.Context
	configMgr *config.Manager
	mjpeg     *output.MJPEGOutput
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	http     *http.Server
	shutdown bool
}

// NewServer creates a new API server. configMgr may be nil, in which case
// the config routes serve the context's config read-only.
func NewServer(ctx *app.Context, configMgr *config.Manager, mjpeg *output.MJPEGOutput) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		ctx:       ctx,
		configMgr: configMgr,
		mjpeg:     mjpeg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Windows
	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")
	api.HandleFunc("/windows/{handle}", s.handleGetWindow).Methods("GET")
	api.HandleFunc("/windows/{handle}/capture-mode", s.handleGetCaptureMode).Methods("GET")
	api.HandleFunc("/windows/{handle}/capture-mode", s.handleSetCaptureMode).Methods("PUT")
	api.HandleFunc("/windows/{handle}/frame.jpg", s.handleFrame).Methods("GET")
	api.HandleFunc("/windows/{handle}/icon.png", s.handleIcon).Methods("GET")
	api.HandleFunc("/windows/{handle}/stream", s.handleStream).Methods("GET")

	// Proxies
	api.HandleFunc("/proxies", s.handleGetProxies).Methods("GET")
	api.HandleFunc("/proxies/{handle}", s.handleUpdateProxy).Methods("PUT")

	// Events
	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/streams", s.handleStreamStats).Methods("GET")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the router wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on port until Shutdown. It returns nil after a clean shutdown,
// including one that happened before Start was called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.http = srv
	s.mu.Unlock()

	logger.WithComponent("api").Info().Msgf("Starting server on http://localhost%s", addr)

	// a Shutdown that lands between unlock and here makes this return ErrServerClosed
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers until ctx ends.
// A later Start returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	srv := s.http
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleParam parses the {handle} route variable, writing a 400 on failure
func handleParam(w http.ResponseWriter, r *http.Request) (engine.Handle, bool) {
	h, err := engine.ParseHandle(mux.Vars(r)["handle"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return h, true
}

// HTTP Handlers

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")

	var infos []window.Info
	s.ctx.Read(func(c *app.Context) {
		var windows []*window.Window
		if title != "" {
			windows = c.Windows().FindAll(title)
			sort.Slice(windows, func(i, j int) bool { return windows[i].Handle() < windows[j].Handle() })
		} else {
			windows = c.Windows().Registry().Windows()
		}
		infos = make([]window.Info, 0, len(windows))
		for _, win := range windows {
			infos = append(infos, win.Info())
		}
	})

	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}

	var info *window.Info
	s.ctx.Read(func(c *app.Context) {
		if win := c.Windows().Find(h); win != nil {
			i := win.Info()
			info = &i
		}
	})
	if info == nil {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type captureModeBody struct {
	Mode string `json:"mode"`
}

func (s *Server) handleGetCaptureMode(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}

	var mode engine.CaptureMode
	found := false
	s.ctx.Read(func(c *app.Context) {
		if win := c.Windows().Find(h); win != nil {
			mode, found = win.CaptureMode(), true
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}
	writeJSON(w, http.StatusOK, captureModeBody{Mode: mode.String()})
}

func (s *Server) handleSetCaptureMode(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}

	var req captureModeBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := engine.ParseCaptureMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	found := false
	s.ctx.Write(func(c *app.Context) {
		if o := c.Proxies().Find(h); o != nil {
			o.SetCaptureMode(mode)
			found = true
			return
		}
		if win := c.Windows().Find(h); win != nil {
			win.SetCaptureMode(mode)
			found = true
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}

	logger.WithComponent("api").Info().Stringer("handle", h).Stringer("mode", mode).Msg("Capture mode changed")
	writeJSON(w, http.StatusOK, captureModeBody{Mode: mode.String()})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}

	if s.mjpeg != nil {
		if data, ok := s.mjpeg.Latest(h); ok {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(data)
			return
		}
	}

	frame, ok := s.ctx.Frame(h)
	if !ok {
		writeError(w, http.StatusNotFound, "no frame captured")
		return
	}
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(buf.Bytes())
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}

	var icon *image.RGBA
	s.ctx.Read(func(c *app.Context) {
		if win := c.Windows().Find(h); win != nil {
			icon, _ = win.Icon()
		}
	})
	if icon == nil {
		writeError(w, http.StatusNotFound, "no icon")
		return
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, icon); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}
	if s.mjpeg == nil || !s.mjpeg.IsRunning() {
		writeError(w, http.StatusServiceUnavailable, "stream output not running")
		return
	}

	tracked := false
	s.ctx.Read(func(c *app.Context) {
		tracked = c.Windows().Find(h) != nil
	})
	if !tracked {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}

	s.mjpeg.ServeStream(w, r, h)
}

func (s *Server) handleGetProxies(w http.ResponseWriter, r *http.Request) {
	var infos []proxy.Info
	s.ctx.Read(func(c *app.Context) {
		objects := c.Proxies().Objects()
		infos = make([]proxy.Info, 0, len(objects))
		for _, o := range objects {
			infos = append(infos, o.Info())
		}
	})
	writeJSON(w, http.StatusOK, infos)
}

type proxyUpdate struct {
	Priority  *string  `json:"priority"`
	FrameRate *float64 `json:"frame_rate"`
}

func (s *Server) handleUpdateProxy(w http.ResponseWriter, r *http.Request) {
	h, ok := handleParam(w, r)
	if !ok {
		return
	}

	var req proxyUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var priority engine.Priority
	if req.Priority != nil {
		p, err := engine.ParsePriority(*req.Priority)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		priority = p
	}
	if req.FrameRate != nil && *req.FrameRate <= 0 {
		writeError(w, http.StatusBadRequest, "frame_rate must be positive")
		return
	}

	var info *proxy.Info
	s.ctx.Write(func(c *app.Context) {
		o := c.Proxies().Find(h)
		if o == nil {
			return
		}
		if req.Priority != nil {
			o.SetPriority(priority)
		}
		if req.FrameRate != nil {
			o.SetFrameRate(*req.FrameRate)
		}
		i := o.Info()
		info = &i
	})
	if info == nil {
		writeError(w, http.StatusNotFound, "proxy not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	if s.mjpeg == nil {
		writeJSON(w, http.StatusOK, []output.Stats{})
		return
	}
	stats := s.mjpeg.Stats()
	sort.Slice(stats, func(i, j int) bool { return stats[i].Handle < stats[j].Handle })
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr != nil {
		writeJSON(w, http.StatusOK, s.configMgr.Get())
		return
	}
	var cfg config.Config
	s.ctx.Read(func(c *app.Context) {
		cfg = *c.Config()
	})
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		writeError(w, http.StatusMethodNotAllowed, "configuration is read-only")
		return
	}

	cfg := s.configMgr.Get()
	if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.configMgr.Update(cfg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var windows, proxies int
	s.ctx.Read(func(c *app.Context) {
		windows = c.Windows().Registry().Len()
		proxies = c.Proxies().Len()
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"ticks":   s.ctx.Ticks(),
		"windows": windows,
		"proxies": proxies,
	})
}
