package api

import (
	"net/http"
	"time"

	"impactgo/pkg/logging"
)

// logRequests writes one line per request to the request log. The response
// writer is passed through untouched so the websocket upgrade can hijack it.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if logging.RequestLogger != nil {
			logging.RequestLogger.Info("Request Processed",
				"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}
	})
}
