/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser front end

ROUTE GROUPS:
  /api/transactions/*   Ledger CRUD, returns, receipts
  /api/summary/*        Aggregates
  /api/import           Spreadsheet upload
  /api/export           Spreadsheet / report download
  /api/integrity        Return-link check
  /api/updates          Release check
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. The server is meant to listen on
  localhost for the shop's own machine.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultOrigins are allowed when the configuration names none.
var DefaultOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "transactions": h.Ledger.Len()})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Patch("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Get("/{id}/returns", h.ListReturns)
			r.Post("/{id}/returns", h.CreateReturn)
			r.Get("/{id}/returnable", h.GetReturnable)
			r.Get("/{id}/receipt", h.GetReceipt)
		})

		r.Route("/summary", func(r chi.Router) {
			r.Get("/daily", h.GetDailySummary)
			r.Get("/range", h.GetRangeSummary)
			r.Get("/month", h.GetMonthSummary)
			r.Get("/year", h.GetYearSummary)
			r.Get("/breakdown", h.GetBreakdown)
		})

		r.Post("/import", h.ImportFile)
		r.Get("/export", h.Export)
		r.Get("/integrity", h.GetIntegrity)
		r.Get("/updates", h.CheckUpdates)
	})

	return r
}
