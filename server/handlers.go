package server

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"app":    s.config.GetAppName(),
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	}
}
