package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hope-box/frontier/internal/config"
	"github.com/hope-box/frontier/internal/events"
	"github.com/hope-box/frontier/internal/ligands"
	"github.com/hope-box/frontier/internal/store"
)

func NewRouter(s store.Store, e events.Client, l ligands.Client, cfg *config.Config, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	runs := NewRunsHandler(s, e, l, cfg)
	admin := NewAdminHandler(s, e)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", runs.Create)
		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)
		r.Get("/runs/{id}/ranked", runs.Ranked)
		r.Get("/runs/{id}/frontier", runs.Frontier)
		r.Get("/runs/{id}/structures", runs.Structures)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
			r.Post("/runs/{id}/requeue", admin.Requeue)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
