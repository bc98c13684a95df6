package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"impactgo/pkg/model"
	"impactgo/pkg/queue"
	"impactgo/pkg/tracker"
	"impactgo/pkg/version"
)

// StatusHandler reports the live state of the pipeline.
type StatusHandler struct {
	Queue     *queue.Manager
	Daily     *tracker.DailyCounters
	Tracker   *tracker.Tracker
	Started   time.Time
	Publisher interface{ Configured() bool }
	Monitor   interface{ Paused() bool }
}

// Status is the dashboard status document.
type Status struct {
	Version      string                           `json:"version"`
	Uptime       string                           `json:"uptime"`
	Monitoring   string                           `json:"monitoring"`
	QueueLen     int                              `json:"queue_len"`
	WebhookReady bool                             `json:"webhook_ready"`
	Daily        tracker.DailySnapshot            `json:"daily"`
	Providers    map[string]tracker.ProviderStats `json:"providers"`
}

func (h *StatusHandler) snapshot() Status {
	s := Status{
		Version:    version.Version,
		Uptime:     time.Since(h.Started).Round(time.Second).String(),
		Monitoring: "active",
		QueueLen:   h.Queue.Len(),
	}
	if h.Monitor != nil && h.Monitor.Paused() {
		s.Monitoring = "paused"
	}
	if h.Publisher != nil {
		s.WebhookReady = h.Publisher.Configured()
	}
	if h.Daily != nil {
		s.Daily = h.Daily.Snapshot()
	}
	if h.Tracker != nil {
		s.Providers = h.Tracker.Snapshot()
	}
	return s
}

func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.snapshot())
}

// HandleQueue returns the queued plays, newest first.
func (h *StatusHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	items := h.Queue.Snapshot()
	// Snapshot is oldest-first; the dashboard wants the latest on top.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	if items == nil {
		items = []model.QueuedItem{}
	}
	writeJSON(w, items)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
