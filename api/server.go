/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the front office

SECURITY NOTE:
  No authentication middleware. The back office runs on a trusted
  network; authentication is the reverse proxy's job here.

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

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Ingredient routes
		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", h.ListIngredients)
			r.Post("/", h.CreateIngredient)
			r.Get("/{id}", h.GetIngredient)
			r.Delete("/{id}", h.DeleteIngredient)
		})

		// Stock ledger routes
		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", h.ListStocks)
			r.Post("/", h.InitStock)
			r.Get("/by-ingredient/{ingredientID}", h.GetStockByIngredient)
			r.Get("/{id}", h.GetStock)
			r.Delete("/{id}", h.DeleteStock)
			r.Get("/{id}/transactions", h.ListTransactions)
			r.Post("/{id}/transactions", h.AddTransaction)
			r.Get("/{id}/reconciliation", h.GetReconciliation)
		})

		// Menu routes
		r.Route("/menu", func(r chi.Router) {
			r.Get("/", h.ListMenuItems)
			r.Post("/", h.CreateMenuItem)
			r.Get("/{id}", h.GetMenuItem)
			r.Delete("/{id}", h.DeleteMenuItem)
		})
	})

	return r
}
