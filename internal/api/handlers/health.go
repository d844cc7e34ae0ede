package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/internal/calendar"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Mode     string `json:"concurrency_mode"`
}

// HealthCheck pings the store.
func HealthCheck(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := svc.Ping(ctx); err != nil {
			w.Header().Set("Retry-After", "1")
			middleware.WriteError(w, http.StatusServiceUnavailable, "unhealthy", "Database connection failed")
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "healthy",
			Database: "connected",
			Mode:     svc.Guard().Mode().String(),
		})
	}
}
