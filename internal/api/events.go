package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mathwake/wake-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEventsWS streams alarm session events to the browser so it learns
// about ring events the moment the trigger watcher fires them
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("events websocket connected", "user", user.ID)

	events, cancel := s.manager.Subscribe(user.ID)
	defer cancel()

	// Push the current state first so the client does not start blind
	if view, err := s.manager.State(r.Context(), user.ID); err == nil {
		if err := conn.WriteJSON(models.Event{Type: "state", Session: view, At: time.Now()}); err != nil {
			slog.Debug("failed to send initial state", "error", err)
			return
		}
	}

	// Reader goroutine: we never expect client messages, but reading is the
	// only way to notice the peer going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			slog.Info("events websocket disconnected", "user", user.ID)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("failed to send event", "error", err)
				return
			}
		}
	}
}
