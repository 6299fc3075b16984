package routers

import (
	"net/http"

	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes(router *chi.Mux, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
	router.Get("/api/v1/interview/healthz", healthHandler.HealthzHandler)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
}
