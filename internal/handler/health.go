package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/handler/dto"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	store     HealthChecker
	storeName string
	kandjiURL string
	now       func() time.Time
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for store when notifications are disabled.
func NewHealthHandler(store HealthChecker, storeName, kandjiURL string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		storeName: storeName,
		kandjiURL: kandjiURL,
		now:       time.Now,
	}
}

// Health is the liveness probe. It has no dependency checks.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		KandjiURL: h.kandjiURL,
	})
}

// Readyz is the readiness probe. It pings the notified-set store.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			checks[h.storeName] = "error: " + err.Error()
			healthy = false
		} else {
			checks[h.storeName] = "ok"
		}
	} else {
		checks["store"] = "not configured"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, dto.ReadinessResponse{
		Status: status,
		Checks: checks,
	})
}
