package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	Database Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := map[string]string{"status": "ok"}
	status := http.StatusOK

	if h.Database != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.Database.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Warn("database ping failed", "error", err)
			payload = map[string]string{"status": "degraded", "database": "unreachable"}
			status = http.StatusServiceUnavailable
		}
	}

	response.JSON(ctx, w, status, payload)
}
