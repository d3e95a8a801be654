package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/crackd/internal/session"
	"github.com/ashureev/crackd/internal/store"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo     store.Repository
	registry *session.Registry
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, registry *session.Registry) *HealthHandler {
	return &HealthHandler{repo: repo, registry: registry}
}

// Check reports whether the service's dependencies are reachable.
func (h *HealthHandler) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return h.repo.Ping(ctx)
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"api": "ok", "database": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.Check(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}
	if h.registry != nil {
		status["sessions"] = h.registry.Len()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
