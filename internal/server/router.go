package server

import (
	"net/http"

	"github.com/maruel/rowgrid/internal/config"
	"github.com/maruel/rowgrid/internal/grid"
	"github.com/maruel/rowgrid/internal/server/handlers"
)

// NewRouter creates and configures the HTTP router serving session.
func NewRouter(session *grid.Session, view config.ViewConfig, version string) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	gh := handlers.NewGridHandler(session, view)
	hh := handlers.NewHealthHandler(version, session)

	// Health check
	mux.Handle("GET /api/health", Wrap(hh.Health))

	// Rows endpoints
	mux.Handle("GET /api/v1/rows", Wrap(gh.GetRows))
	mux.Handle("POST /api/v1/window/load", Wrap(gh.LoadWindow))

	// Pages endpoints
	mux.Handle("GET /api/v1/pages", Wrap(gh.ListPages))
	mux.Handle("POST /api/v1/pages/{page}/load", Wrap(gh.LoadPage))

	// View endpoints
	mux.Handle("POST /api/v1/sort", Wrap(gh.Sort))
	mux.Handle("POST /api/v1/group", Wrap(gh.Group))
	mux.Handle("POST /api/v1/groups/{key}/toggle", Wrap(gh.ToggleGroup))
	mux.Handle("POST /api/v1/reset", Wrap(gh.Reset))

	return RequestLogger(mux)
}
