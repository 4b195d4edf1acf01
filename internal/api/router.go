package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/fobos-app/ledger/internal/api/handlers"
	"github.com/fobos-app/ledger/internal/config"
	"github.com/fobos-app/ledger/internal/metrics"
	"github.com/fobos-app/ledger/internal/middleware"
	"github.com/fobos-app/ledger/internal/services"
)

type RouterDeps struct {
	Cfg        config.Config
	Ledger     *services.LedgerService
	Accounts   *services.AccountService
	Categories *services.CategoryService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RequestMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	eh := handlers.NewEntryHandler(d.Ledger)
	ah := handlers.NewAccountHandler(d.Accounts)
	ch := handlers.NewCategoryHandler(d.Categories)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- accounts ----------
		r.Get("/accounts", ah.List)
		r.Post("/accounts", ah.Create)
		r.Get("/accounts/{id}", ah.Get)
		r.Put("/accounts/{id}", ah.Update)
		r.Delete("/accounts/{id}", ah.Delete)
		r.Post("/accounts/{id}/import", eh.Import)

		// ---------- categories ----------
		r.Get("/categories", ch.List)
		r.Post("/categories", ch.Create)
		r.Put("/categories/{id}", ch.Update)
		r.Delete("/categories/{id}", ch.Delete)

		// ---------- entries ----------
		r.Get("/entries", eh.List)
		r.Post("/entries", eh.Create)
		r.Get("/entries/{id}", eh.Get)
		r.Put("/entries/{id}", eh.Update)
		r.Delete("/entries/{id}", eh.Delete)
		r.Post("/reconcile", eh.Reconcile)
	})

	return r
}
