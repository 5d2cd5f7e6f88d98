// Package api exposes the HTTP surface: campaign lifecycle, lead scores,
// and the provider webhook.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. The webhook endpoint is outside
// /api on purpose: providers authenticate differently than dashboard
// callers.
func SetupRoutes(h *Handlers, auth *Authenticator) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.coldreach.io", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Provider webhook (no caller auth; events for unknown messages are
	// dropped inside the receiver)
	r.Post("/webhooks/email", h.HandleEmailWebhook)

	// API routes (protected)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Post("/publish", h.PublishCampaign)
			r.Post("/pause", h.PauseCampaign)
			r.Post("/resume", h.ResumeCampaign)
		})

		r.Route("/leads/{leadID}/score", func(r chi.Router) {
			r.Get("/", h.GetLeadScore)
			r.Post("/recompute", h.RecomputeLeadScore)
		})
	})

	return r
}
