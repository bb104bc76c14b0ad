// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/handlers"
	"github.com/danielhkuo/dv-appraisal/metrics"
	"github.com/danielhkuo/dv-appraisal/middleware"
)

// rateLimiterIdleTTL is how long a quiet client's bucket is kept
const rateLimiterIdleTTL = 10 * time.Minute

func NewRouter(db *sql.DB, cfg cliparse.Config, svc handlers.Services) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	estimateHandler := handlers.NewEstimateHandler(cfg, svc)
	appraisalHandler := handlers.NewAppraisalHandler(db, cfg, svc)
	paymentHandler := handlers.NewPaymentHandler(db, cfg, svc)
	valuationHandler := handlers.NewValuationHandler(db, cfg, svc)
	reportHandler := handlers.NewReportHandler(db, cfg, svc)
	chatHandler := handlers.NewChatHandler(db, cfg, svc)
	healthHandler := handlers.NewHealthHandler(db)

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireSession(db, h))
	}

	// Ops
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Accounts
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(authHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /auth/logout", authed(authHandler.Logout))
	mux.HandleFunc("GET /auth/me", authed(authHandler.Me))

	// Anonymous tools
	mux.HandleFunc("POST /estimate", middleware.WithLogging(estimateHandler.Estimate))
	mux.HandleFunc("GET /vin/{vin}", middleware.WithLogging(estimateHandler.DecodeVIN))

	// Appraisal wizard
	mux.HandleFunc("POST /appraisals", authed(appraisalHandler.Create))
	mux.HandleFunc("GET /appraisals", authed(appraisalHandler.List))
	mux.HandleFunc("GET /appraisals/{id}", authed(appraisalHandler.Get))
	mux.HandleFunc("PUT /appraisals/{id}/vehicle", authed(appraisalHandler.UpdateVehicle))
	mux.HandleFunc("PUT /appraisals/{id}/accident", authed(appraisalHandler.UpdateAccident))
	mux.HandleFunc("PUT /appraisals/{id}/damage", authed(appraisalHandler.UpdateDamage))
	mux.HandleFunc("GET /appraisals/{id}/estimate", authed(appraisalHandler.Estimate))

	// Payment and valuation
	mux.HandleFunc("POST /appraisals/{id}/payment", authed(paymentHandler.Pay))
	mux.HandleFunc("POST /appraisals/{id}/valuation", authed(valuationHandler.Run))
	mux.HandleFunc("GET /appraisals/{id}/valuation", authed(valuationHandler.Get))

	// Documents
	mux.HandleFunc("GET /appraisals/{id}/report", authed(reportHandler.Report))
	mux.HandleFunc("GET /appraisals/{id}/report.pdf", authed(reportHandler.ReportPDF))
	mux.HandleFunc("GET /appraisals/{id}/demand-letter", authed(reportHandler.DemandLetter))
	mux.HandleFunc("POST /appraisals/{id}/report/email", authed(reportHandler.Email))
	mux.HandleFunc("GET /appraisals/{id}/share", authed(reportHandler.Share))
	mux.HandleFunc("GET /shared/{id}", middleware.WithLogging(reportHandler.Shared))

	// Negotiation assistant
	mux.HandleFunc("POST /appraisals/{id}/chat", authed(chatHandler.Send))
	mux.HandleFunc("GET /appraisals/{id}/chat", authed(chatHandler.History))

	// Root endpoint
	mux.HandleFunc("GET /{$}", healthHandler.Root)

	return mux
}

// NewHandler wraps the routes with the middleware every request passes
// through. The returned stop func ends the rate limiter's cleanup goroutine.
func NewHandler(mux http.Handler, cfg cliparse.Config, logger *slog.Logger) (http.Handler, func()) {
	mws := []func(http.Handler) http.Handler{
		middleware.RealIP(cfg.TrustedProxies),
		middleware.SecurityHeaders(cfg.SecureCookies()),
		middleware.Observe(logger),
	}

	stop := func() {}
	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, max(int(cfg.RateLimit*2), 1), rateLimiterIdleTTL)
		mws = append(mws, limiter.Middleware)
		stop = limiter.Stop
	}

	mws = append(mws, middleware.Compression, middleware.CORS(cfg.AllowedOrigins()))
	return middleware.Chain(mux, mws...), stop
}
