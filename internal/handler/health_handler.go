package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Raymond9734/storefront-outreach/internal/cache"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db          Pinger
	cacheClient cache.Client
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler. cacheClient may be nil when Redis is not configured.
func NewHealthHandler(db Pinger, cacheClient cache.Client, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		cacheClient: cacheClient,
		logger:      logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Services: make(map[string]string),
	}

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Error("database health check failed", slog.String("error", err.Error()))
		response.Status = "unhealthy"
		response.Services["database"] = "unhealthy"
	} else {
		response.Services["database"] = "healthy"
	}

	if h.cacheClient != nil {
		if err := h.cacheClient.Health(ctx); err != nil {
			h.logger.Error("cache health check failed", slog.String("error", err.Error()))
			response.Status = "unhealthy"
			response.Services["cache"] = "unhealthy"
		} else {
			response.Services["cache"] = "healthy"
		}
	} else {
		response.Services["cache"] = "not_configured"
	}

	if response.Status == "healthy" {
		respondSuccess(w, response)
	} else {
		respondJSON(w, http.StatusServiceUnavailable, response)
	}
}
