package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger checks a dependency's reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gauge reports a named runtime count, such as active conversations.
type Gauge struct {
	Name  string
	Value func() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	gauges  []Gauge
	started time.Time
}

// NewHealthHandler creates a health handler checking db within timeout.
func NewHealthHandler(db Pinger, timeout time.Duration, gauges ...Gauge) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{db: db, timeout: timeout, gauges: gauges, started: time.Now()}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]any{
		"status":         "healthy",
		"checks":         checks,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	statusCode := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if len(h.gauges) > 0 {
		counts := make(map[string]int, len(h.gauges))
		for _, g := range h.gauges {
			counts[g.Name] = g.Value()
		}
		status["active"] = counts
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
