/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer connecting URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile/web client

SECURITY NOTE:
  No authentication middleware; the upstream product handles auth outside
  this core.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/workitems", func(r chi.Router) {
			r.Get("/", h.ListWorkItems)
			r.Post("/", h.CreateWorkItem)
			r.Put("/{id}", h.UpdateWorkItem)
			r.Delete("/{id}", h.DeleteWorkItem)
		})

		r.Route("/counterparties", func(r chi.Router) {
			r.Get("/", h.ListCounterparties)
			r.Post("/", h.CreateCounterparty)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Delete("/{id}", h.DeleteRule)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/{id}/edit", h.EditEvent)
		})

		r.Get("/calendar", h.GetCalendar)

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/extend", h.TriggerExtension)
		})
	})

	return r
}
