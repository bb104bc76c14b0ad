// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/db"
	"github.com/danielhkuo/dv-appraisal/handlers"
	"github.com/danielhkuo/dv-appraisal/httpclient"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/mailer"
	"github.com/danielhkuo/dv-appraisal/pricing"
	"github.com/danielhkuo/dv-appraisal/report"
	"github.com/danielhkuo/dv-appraisal/router"
	"github.com/danielhkuo/dv-appraisal/valuation"
	"github.com/danielhkuo/dv-appraisal/vindecode"
)

const (
	shutdownTimeout  = 15 * time.Second
	pdfRenderTimeout = 30 * time.Second
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	rules, err := valuation.LoadRules(cfg.RulesFile)
	if err != nil {
		slog.Error("failed to load valuation rules", "file", cfg.RulesFile, "error", err)
		os.Exit(1)
	}

	// Connect to the database and create the schema (tables)
	dbConn, err := db.Open(cfg)
	if err != nil {
		slog.Error("database setup failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer logging.SafeClose(dbConn, logger, "close database")
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	prices := pricing.NewClient(cfg.MarketCheckAPIKey, cfg.MarketCheckBaseURL,
		httpclient.WithRateLimit(cfg.MarketCheckRPS, 1))
	if !prices.Configured() {
		slog.Warn("MarketCheck API key not set, valuations use owner and heuristic values only")
	}

	var pdf report.Renderer = report.DisabledRenderer{}
	if cfg.PDFEnabled {
		rod := report.NewRodRenderer(cfg.ChromeBin, pdfRenderTimeout)
		defer logging.SafeClose(rod, logger, "close pdf renderer")
		pdf = rod
	}

	mail, err := mailer.New(cfg.ResendAPIKey, cfg.MailFrom)
	if err != nil {
		slog.Error("mailer setup failed", "error", err)
		os.Exit(1)
	}

	svc := handlers.Services{
		Rules:   rules,
		Prices:  prices,
		Decoder: vindecode.NewClient(cfg.NHTSABaseURL),
		PDF:     pdf,
		Mailer:  mail,
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, svc)
	handler, stopLimiter := router.NewHandler(mux, cfg, logger)
	defer stopLimiter()

	// Create server
	server := http.Server{
		Handler:           handler,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "pdf", cfg.PDFEnabled, "rate_limit", cfg.RateLimit)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}
}
