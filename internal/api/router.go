package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Insights.
	r.Get("/tasks/today", h.TodayTasks)
	r.Get("/health-check", h.HealthCheck)
	r.Get("/health-check/text", h.HealthCheckText)
	r.Get("/strategy", h.Strategy)
	r.Get("/weekly-review", h.WeeklyReview)

	// Pages.
	r.Post("/tasks", h.CreateTask)
	r.Get("/pages/{id}", h.GetPage)
	r.Patch("/pages/{id}/status", h.UpdateStatus)
	r.Get("/search", h.Search)

	// Cache and history.
	r.Post("/cache/invalidate", h.InvalidateCache)
	r.Get("/history", h.History)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
