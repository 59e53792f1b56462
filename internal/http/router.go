package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"medassist-ai/internal/handlers"
)

// NewRouter wires the API routes and shared middleware.
func NewRouter(logger *slog.Logger, ask *handlers.AskHandler, health *handlers.HealthHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/health", health.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", ask.Ask)
		r.Get("/health", health.Health)
	})

	return r
}
