package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tallyhq/tally/internal/account"
	accountStore "github.com/tallyhq/tally/internal/account/store"
	"github.com/tallyhq/tally/internal/category"
	categoryStore "github.com/tallyhq/tally/internal/category/store"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/database"
	"github.com/tallyhq/tally/internal/export"
	tallyHttp "github.com/tallyhq/tally/internal/http"
	accountHandler "github.com/tallyhq/tally/internal/http/account"
	"github.com/tallyhq/tally/internal/http/auth"
	categoryHandler "github.com/tallyhq/tally/internal/http/category"
	exportHandler "github.com/tallyhq/tally/internal/http/export"
	importHandler "github.com/tallyhq/tally/internal/http/importfile"
	merchantHandler "github.com/tallyhq/tally/internal/http/merchant"
	reviewHandler "github.com/tallyhq/tally/internal/http/review"
	splitHandler "github.com/tallyhq/tally/internal/http/split"
	ruleHandler "github.com/tallyhq/tally/internal/http/splitrule"
	statementHandler "github.com/tallyhq/tally/internal/http/statement"
	txHandler "github.com/tallyhq/tally/internal/http/transaction"
	"github.com/tallyhq/tally/internal/importer"
	"github.com/tallyhq/tally/internal/merchant"
	merchantStore "github.com/tallyhq/tally/internal/merchant/store"
	"github.com/tallyhq/tally/internal/review"
	"github.com/tallyhq/tally/internal/split"
	splitStore "github.com/tallyhq/tally/internal/split/store"
	"github.com/tallyhq/tally/internal/splitrule"
	ruleStore "github.com/tallyhq/tally/internal/splitrule/store"
	"github.com/tallyhq/tally/internal/statement"
	statementStore "github.com/tallyhq/tally/internal/statement/store"
	"github.com/tallyhq/tally/internal/transaction"
	txStore "github.com/tallyhq/tally/internal/transaction/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(cfg.Logger())

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	designation := account.Designation{
		SuspenseName: cfg.Ledger.SuspenseName,
		MiscNames:    cfg.Ledger.MiscNames,
		MiscCodes:    cfg.Ledger.MiscCodes,
	}

	var (
		transactionService = transaction.NewService(txStore.New(db))
		accountService     = account.NewService(accountStore.New(db), designation)
		categoryService    = category.NewService(categoryStore.New(db))
		merchantService    = merchant.NewService(merchantStore.New(db), transactionService)
		splitService       = split.NewService(splitStore.New(db))
		ruleService        = splitrule.NewService(ruleStore.New(db))
		importService      = importer.NewService()
		exportService      = export.NewService(transactionService, accountService, splitService)
		statementService   = statement.NewService(statementStore.New(db), extractors(ctx, cfg))
	)

	reviewService := review.NewService(review.Deps{
		Transactions: transactionService,
		Merchants:    merchantService,
		Categories:   categoryService,
		Charts:       accountService,
		Splits:       splitService,
		Rules:        ruleService,
	}, review.NewMetrics(registry))

	handlers := tallyHttp.Handlers{
		Transactions: txHandler.NewHandler(transactionService, splitService, merchantService, accountService),
		Import:       importHandler.NewHandler(importService, transactionService, accountService),
		Accounts:     accountHandler.NewHandler(accountService),
		Categories:   categoryHandler.NewHandler(categoryService),
		Merchants:    merchantHandler.NewHandler(merchantService),
		Splits:       splitHandler.NewHandler(),
		SplitRules:   ruleHandler.NewHandler(ruleService),
		Review:       reviewHandler.NewHandler(reviewService),
		Statements:   statementHandler.NewHandler(statementService),
		Export:       exportHandler.NewHandler(exportService),
	}

	opts := tallyHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Gatherer:       registry,
	}

	if cfg.Auth.JWTSecret != "" {
		opts.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		slog.Warn("AUTH_JWT_SECRET is not set, API requests are not authenticated")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           tallyHttp.New(handlers, opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Extraction.Timeout + cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("starting server", "name", cfg.App.Name, "addr", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// extractors always offers the local service; the vision model is added
// when an API key is configured.
func extractors(ctx context.Context, cfg *config.Config) map[statement.Source]statement.Extractor {
	out := map[statement.Source]statement.Extractor{
		statement.SourceLocal: statement.NewLocalExtractor(
			cfg.Extraction.ServiceURL, cfg.Extraction.Timeout, cfg.Extraction.RatePerMin),
	}

	if cfg.Extraction.GeminiKey == "" {
		return out
	}

	vision, err := statement.NewVisionExtractor(ctx, cfg.Extraction.GeminiKey, cfg.Extraction.GeminiModel)
	if err != nil {
		slog.Error("vision extractor disabled", "error", err)
		return out
	}

	out[statement.SourceVision] = vision

	return out
}
