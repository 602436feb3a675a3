package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes assembles the HTTP surface.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.CreateJob)
		r.Get("/{id}", h.GetJob)
		r.Post("/{id}/start", h.StartJob)
		r.Get("/{id}/summary", h.GetSummary)
		r.Get("/{id}/result", h.GetResult)
		r.Delete("/{id}", h.DeleteJob)
	})

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", h.ListSources)
		r.Get("/{id}/layers", h.ListLayers)
	})

	return r
}
