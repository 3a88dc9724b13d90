package handlers

import (
	"context"

	"github.com/maruel/rowgrid/internal/grid"
	"github.com/maruel/rowgrid/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	session *grid.Session
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, session *grid.Session) *HealthHandler {
	return &HealthHandler{version: version, session: session}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Session: h.session.ID,
	}, nil
}
