package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsBufferSize   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleLive upgrades to a websocket and streams the session's events:
// chunk lifecycle, notes updates, merge completion and recording status.
// Delivery is best-effort; a slow client loses events rather than stalling
// the pipeline.
func (h *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, exists := h.manager.GetSession(id); !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	sub, cancel := h.eventBus.Subscribe(id, wsBufferSize)
	defer cancel()

	h.logger.Info("Live channel opened", slog.String("session_id", id))

	// Read pump: the client sends nothing meaningful, but reading is
	// required to process control frames and observe the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-closed:
			h.logClose(id, sub.Dropped())
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logClose(id, sub.Dropped())
				return
			}

		case event, ok := <-sub.C:
			if !ok {
				h.logClose(id, sub.Dropped())
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logClose(id, sub.Dropped())
				return
			}
			h.metrics.RecordEventPublished(string(event.Type))
		}
	}
}

func (h *HTTPServer) logClose(sessionID string, dropped uint64) {
	if dropped > 0 {
		h.metrics.RecordEventsDropped(dropped)
	}
	h.logger.Info("Live channel closed",
		slog.String("session_id", sessionID),
		slog.Uint64("dropped_events", dropped),
	)
}
