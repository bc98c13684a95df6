package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsPushInterval is how often the status document is pushed to clients.
const wsPushInterval = 2 * time.Second

// WSHandler streams status snapshots to dashboard clients.
type WSHandler struct {
	Status *StatusHandler

	upgrader websocket.Upgrader
}

func NewWSHandler(status *StatusHandler) *WSHandler {
	return &WSHandler{
		Status: status,
		upgrader: websocket.Upgrader{
			// The dashboard is served from the same local address.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades the connection and pushes a status snapshot every few
// seconds until the client goes away.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(h.Status.snapshot()); err != nil {
			return
		}
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
