package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ControlHandler executes dashboard actions.
type ControlHandler struct {
	// Actions maps an action name to its trigger. Wired in main so the
	// handler stays free of pipeline dependencies.
	Actions map[string]func(ctx context.Context) error

	// TestWebhook posts a test message to the configured webhook.
	TestWebhook func(ctx context.Context) error
}

type controlRequest struct {
	Action string `json:"action"`
}

func (h *ControlHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	action, ok := h.Actions[req.Action]
	if !ok {
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	slog.Info("dashboard action triggered", "action", req.Action)
	if err := action(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "action": req.Action})
}

func (h *ControlHandler) HandleTestWebhook(w http.ResponseWriter, r *http.Request) {
	if h.TestWebhook == nil {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.TestWebhook(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"status": "sent"})
}
