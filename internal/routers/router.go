package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tadwork/code-dojo/internal/api"
	"github.com/Tadwork/code-dojo/internal/metrics"
)

func New(h *api.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", h.Health)

	r.Post("/api/sessions", h.CreateSession)
	r.Get("/api/sessions/{code}", h.GetSession)

	r.Post("/api/execute", h.Execute)
	r.Post("/api/assistant/generate", h.Generate)

	r.Get("/ws/{code}", h.CollabWS)

	r.Handle("/metrics", metrics.Handler())

	return r
}
