package handlers

import (
	"context"
	"net/http"
	"time"

	"piggybank/internal/apperr"
	"piggybank/internal/log"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Live reports that the process is serving requests
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the database answers within readinessTimeout
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed", log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, errorDetail{
			Kind:    string(apperr.KindInternal),
			Code:    CodeUnavailable,
			Message: "database is unavailable",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
