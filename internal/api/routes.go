package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/supplyvault/compliance-monitor/internal/pkg/httputil"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.supplyvault.io", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Scheduler entry points. EventBridge calls these on its own
		// cadence; the bearer secret keeps them off the public surface.
		r.Route("/cron", func(r chi.Router) {
			r.Use(h.RequireCronSecret)
			r.Get("/expiry-alerts", h.RunExpiryAlerts)
			r.Get("/reverify", h.RunReverify)
		})

		r.Get("/certifications/{id}", h.GetCertification)
		r.Post("/ingest/certificate", h.IngestCertificate)
	})

	// 404 for unknown routes under a JSON API
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.NotFound(w, "not found")
	})

	return r
}
