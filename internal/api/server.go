// Package api serves the local dashboard and its JSON endpoints.
package api

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"impactgo/internal/ui"
	"impactgo/pkg/version"
)

// NewServer creates and configures the HTTP server. metricsHandler may be
// nil to disable the scrape endpoint; shutdown is invoked by the dashboard
// shutdown button.
func NewServer(addr string, status *StatusHandler, control *ControlHandler, ws *WSHandler,
	metricsHandler http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// Health + version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// Dashboard data
	mux.HandleFunc("GET /api/status", status.HandleStatus)
	mux.HandleFunc("GET /api/queue", status.HandleQueue)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// Actions
	mux.HandleFunc("POST /api/control", control.HandleControl)
	mux.HandleFunc("POST /api/test-webhook", control.HandleTestWebhook)

	// Live updates
	mux.HandleFunc("GET /api/ws", ws.HandleWS)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Shut down in a goroutine so the response can flush.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// Static dashboard, served from the "dist" subtree of the embedded FS.
	distFS, err := fs.Sub(ui.DistFS, "dist")
	if err != nil {
		panic(fmt.Sprintf("Failed to subtree dist from embedded assets: %v", err))
	}
	mux.Handle("/", http.FileServer(&spaFileSystem{root: http.FS(distFS)}))

	return &http.Server{
		Addr:         addr,
		Handler:      logRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
