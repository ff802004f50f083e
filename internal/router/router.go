package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheikh-saqib/credit-tracker/internal/handler"
)

func SetupRoutes(r chi.Router, h *handler.Handler) chi.Router {
	// ---- Global Middleware ----
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handler.SessionHeader},
		AllowCredentials: false, // must be false when using "*"
		MaxAge:           300,
	}))

	r.Get("/health", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.Session)

		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.Get("/session", h.HandleSession)

		// ---- any role ----
		r.Group(func(pr chi.Router) {
			pr.Use(handler.RequireAuth)

			pr.Get("/ledger", h.HandleGetLedger)
			pr.Get("/ledger/draft", h.HandleGetDraft)
			pr.Get("/ledger/stream", h.HandleLedgerStream)

			pr.Get("/students", h.HandleListStudents)
			pr.Get("/students/stream", h.HandleRosterStream)
			pr.Get("/students/selected", h.HandleGetSelected)
			pr.Get("/students/{id}", h.HandleGetStudent)
			pr.Post("/students/{id}/select", h.HandleSelectStudent)
		})

		// ---- admin only ----
		r.Group(func(ar chi.Router) {
			ar.Use(handler.RequireAdmin)

			ar.Post("/ledger/transactions", h.HandleAddTransaction)
			ar.Delete("/ledger/transactions/{txID}", h.HandleDeleteTransaction)

			ar.Post("/students", h.HandleAddStudent)
			ar.Delete("/students/{id}", h.HandleDeleteStudent)
			ar.Post("/students/{id}/transactions", h.HandleAddStudentTransaction)
			ar.Delete("/students/{id}/transactions/{txID}", h.HandleDeleteStudentTransaction)

			ar.Post("/reconcile", h.HandleReconcile)
		})
	})

	return r
}
