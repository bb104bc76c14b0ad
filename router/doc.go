// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the DV Appraisal API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, svc)

NewHandler wraps it with the middleware every request passes through
(client IP resolution, security headers, request IDs and metrics, the
per-client rate limit, gzip and the CORS allowlist):

	handler, stop := router.NewHandler(mux, cfg, logger)
	defer stop()

# Endpoints

Ops:

	GET /health  - Database ping
	GET /metrics - Prometheus metrics
	GET /        - Banner

Accounts:

	POST /auth/register - Create account and session
	POST /auth/login    - Start session
	POST /auth/logout   - End session (session required)
	GET  /auth/me       - Current user (session required)

Anonymous tools:

	POST /estimate  - Preview estimate for a posted vehicle profile
	GET  /vin/{vin} - Decode a VIN

Appraisal wizard (session required, own appraisals only):

	POST /appraisals               - Start a draft
	GET  /appraisals               - List appraisals
	GET  /appraisals/{id}          - Get appraisal
	PUT  /appraisals/{id}/vehicle  - Vehicle step
	PUT  /appraisals/{id}/accident - Accident step
	PUT  /appraisals/{id}/damage   - Damage step
	GET  /appraisals/{id}/estimate - Preview estimate

Payment, valuation and documents (session required):

	POST /appraisals/{id}/payment      - Pay the report fee
	POST /appraisals/{id}/valuation    - Run the full valuation
	GET  /appraisals/{id}/valuation    - Latest valuation
	GET  /appraisals/{id}/report       - HTML report
	GET  /appraisals/{id}/report.pdf   - PDF report
	GET  /appraisals/{id}/demand-letter - HTML demand letter
	POST /appraisals/{id}/report/email - E-mail the PDF
	GET  /appraisals/{id}/share        - Signed read-only link

Public report view:

	GET /shared/{id}?exp=&sig= - Shared report

Negotiation assistant (session required):

	POST /appraisals/{id}/chat - Send a message
	GET  /appraisals/{id}/chat - Conversation history

# Handler Initialization

Handlers receive the database, the configuration and, where they call out,
the handlers.Services bundle of price source, VIN decoder, PDF renderer,
mailer and clock. Missing services fall back to disabled implementations.
*/
package router
