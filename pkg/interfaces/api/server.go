package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. metrics may be
// nil to leave /metrics unexposed.
func NewRouter(h *Handler, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/strategies", h.ListStrategies)

		// Planning routes; the dataset comes in the body or from ?dataset=name
		r.Route("/plans", func(r chi.Router) {
			r.Post("/compare", h.ComparePlans)
			r.Post("/{strategy}", h.CreatePlan)
		})

		// Run history
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Get("/{runID}", h.GetRun)
		})

		// Stored datasets
		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", h.ListDatasets)
			r.Put("/{name}", h.SaveDataset)
			r.Get("/{name}", h.GetDataset)
			r.Delete("/{name}", h.DeleteDataset)
		})

		r.Get("/events", h.ListEvents)
	})

	return r
}
