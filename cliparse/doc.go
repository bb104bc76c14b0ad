// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Before reading the environment it loads a dotenv file (default ".env",
override with -env-file, disable with -env-file ""). Variables already set in
the process environment are never overwritten by the file, and a missing
file is not an error.

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type (sqlite or postgres)
	-log-level        debug, info, warn or error
	-session-secret   Signing secret
	-marketcheck-key  MarketCheck API key
	-resend-key       Resend API key
	-rules            Valuation rules YAML file
	-pdf              Enable PDF rendering
	-env-file         dotenv file

# Environment Variables

	PORT                 → -p (default 8080)
	DATABASE_URL         → -d (required)
	DATABASE_TYPE        → -t (default sqlite)
	LOG_LEVEL            → -log-level (default info)
	SESSION_SECRET       → -session-secret (required)
	PUBLIC_BASE_URL      base for share links (default http://localhost:PORT)
	MARKETCHECK_API_KEY  → -marketcheck-key (market pricing off when empty)
	MARKETCHECK_BASE_URL API endpoint override
	MARKETCHECK_RPS      outgoing MarketCheck requests per second (default 2)
	NHTSA_BASE_URL       vPIC endpoint override
	RESEND_API_KEY       → -resend-key (email off when empty)
	MAIL_FROM            sender address
	PDF_ENABLED          → -pdf (default false)
	CHROME_BIN           Chromium binary for PDF rendering
	RULES_FILE           → -rules
	REPORT_FEE_CENTS     report price (default 4900)
	RATE_LIMIT           requests per second per client IP (default 5, 0 disables)

CLI flags take precedence over environment variables.

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg)
	// ...
	mux := router.NewRouter(conn, cfg, deps)
*/
package cliparse
