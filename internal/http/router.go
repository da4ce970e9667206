package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallyhq/tally/internal/http/account"
	"github.com/tallyhq/tally/internal/http/auth"
	"github.com/tallyhq/tally/internal/http/category"
	"github.com/tallyhq/tally/internal/http/export"
	"github.com/tallyhq/tally/internal/http/importfile"
	"github.com/tallyhq/tally/internal/http/merchant"
	"github.com/tallyhq/tally/internal/http/review"
	"github.com/tallyhq/tally/internal/http/split"
	"github.com/tallyhq/tally/internal/http/splitrule"
	"github.com/tallyhq/tally/internal/http/statement"
	"github.com/tallyhq/tally/internal/http/transaction"
)

type Handlers struct {
	Transactions *transaction.Handler
	Import       *importfile.Handler
	Accounts     *account.Handler
	Categories   *category.Handler
	Merchants    *merchant.Handler
	Splits       *split.Handler
	SplitRules   *splitrule.Handler
	Review       *review.Handler
	Statements   *statement.Handler
	Export       *export.Handler
}

type Options struct {
	AllowedOrigins []string
	// Verifier guards /api/v1 when set.
	Verifier *auth.Verifier
	Gatherer prometheus.Gatherer
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Verifier != nil {
			r.Use(opts.Verifier.Middleware)
		}

		r.Route("/transactions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Transactions.Routes(r)
		})

		r.Route("/import", h.Import.Routes)

		r.Route("/accounts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Accounts.Routes(r)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Categories.Routes(r)
		})

		r.Route("/merchants", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Merchants.Routes(r)
		})

		r.Route("/splits", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Splits.Routes(r)
		})

		r.Route("/split-rules", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.SplitRules.Routes(r)
		})

		r.Route("/review", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Review.Routes(r)
		})

		r.Route("/statements", h.Statements.Routes)
		r.Route("/export", h.Export.Routes)
	})

	return router
}
