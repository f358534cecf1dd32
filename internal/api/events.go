package api

import (
	"net/http"
	"time"

	"github.com/bryanchriswhite/DeskMirror/internal/app"
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/window"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventMessage is one websocket frame on /api/events
type EventMessage struct {
	Client string        `json:"client"`
	Type   string        `json:"type"`
	Handle engine.Handle `json:"handle"`
	ID     engine.ID     `json:"id"`
	Title  string        `json:"title,omitempty"`
}

const eventWriteTimeout = 5 * time.Second

// handleEvents streams window lifecycle events over a websocket. The first
// frame is a "hello" carrying the client id.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	clog := log.With().Str("client", clientID).Logger()

	var dispatcher *window.Dispatcher
	s.ctx.Read(func(c *app.Context) {
		dispatcher = c.Windows().Dispatcher()
	})
	updates := dispatcher.Subscribe()
	defer dispatcher.Unsubscribe(updates)

	clog.Info().Msg("Event client connected")
	defer clog.Info().Msg("Event client disconnected")

	if err := s.writeEvent(conn, EventMessage{Client: clientID, Type: "hello"}); err != nil {
		return
	}

	// Reader goroutine: detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			msg := EventMessage{
				Client: clientID,
				Type:   ev.Type.String(),
				Handle: ev.Handle,
				ID:     ev.ID,
			}
			if ev.Type == engine.MessageWindowAdded {
				s.ctx.Read(func(c *app.Context) {
					if win := c.Windows().Find(ev.Handle); win != nil {
						msg.Title = win.Title()
					}
				})
			}
			if err := s.writeEvent(conn, msg); err != nil {
				clog.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, msg EventMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
