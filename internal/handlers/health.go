package handlers

import (
	"context"
	"net/http"

	"medassist-ai/internal/contextutil"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and dependency health.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler creates the health endpoint handler. deps maps a
// dependency name to its ping check; a nil map disables dependency checks.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health handles GET /health. A failing dependency degrades the status but
// still answers 200; the service can answer without its auxiliaries.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	resp := healthResponse{Status: "ok"}
	if len(h.deps) > 0 {
		resp.Dependencies = make(map[string]string, len(h.deps))
		for name, dep := range h.deps {
			if err := dep.Ping(ctx); err != nil {
				logger.WarnContext(ctx, "dependency unhealthy", "dependency", name, "error", err)
				resp.Dependencies[name] = "unavailable"
				resp.Status = "degraded"
				continue
			}
			resp.Dependencies[name] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
