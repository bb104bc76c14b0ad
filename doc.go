// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the DV Appraisal API server.

DV Appraisal estimates the diminished value of a car after an accident: the
market value it lost for carrying an accident history even once repaired.
Owners walk a three-step wizard (vehicle, accident, damage), get a free
preview estimate, pay the report fee, and receive a full valuation that
blends their declared value with MarketCheck price predictions and nearby
comparable listings. The valuation backs an HTML/PDF report, a demand
letter for the insurer, signed share links and a rule-based negotiation
assistant.

# Starting the Server

The server reads environment variables (and a .env file when present) or
CLI flags:

	SESSION_SECRET=... go run .

Or with flags:

	go run . -p 8080 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - SESSION_SECRET (--session-secret): Key for share-link signatures and IP hashes

Optional settings:

  - PORT (-p): Server port (default: 8080)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - DATABASE_URL (-d): Connection string or SQLite file
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - PUBLIC_BASE_URL: Base of share links; https enables secure cookies and HSTS
  - MARKETCHECK_API_KEY, MARKETCHECK_BASE_URL, MARKETCHECK_RPS: Market data
  - NHTSA_BASE_URL: VIN decoding
  - RESEND_API_KEY, MAIL_FROM: Report e-mail
  - PDF_ENABLED (--pdf), CHROME_BIN: Headless Chrome PDF rendering
  - RULES_FILE (--rules): YAML overrides for the valuation rules
  - REPORT_FEE_CENTS: Price of the full report
  - RATE_LIMIT: Requests per second per client IP, 0 disables

Missing API keys disable the matching feature instead of failing startup.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (auth, wizard, payment, valuation, reports, chat)
  - router: Route definitions using Go 1.22+ routing and the global middleware chain
  - middleware: Sessions, logging, rate limiting, security headers, JSON helpers
  - valuation: Diminished value formulas, comparables and source blending
  - pricing, vindecode: MarketCheck and NHTSA clients on httpclient
  - report, mailer: Document templates, PDF rendering and e-mail delivery
  - negotiation: Intent classification and templated replies
  - models: Request/response types
  - auth: Passwords, session tokens and signed links
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing
  - logging, metrics: slog setup and Prometheus collectors

See package documentation for each component.
*/
package main
