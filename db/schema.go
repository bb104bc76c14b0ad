// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	// lib/pq accepts a multi-statement Exec but the sqlite driver runs one
	// statement per call, so split on the terminator.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// The DDL sticks to types both PostgreSQL and SQLite accept
const schema = `
-- Accounts
CREATE TABLE IF NOT EXISTS app_user (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Sessions (only the token hash is stored)
CREATE TABLE IF NOT EXISTS session (
    token_hash TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
    ip_hash TEXT,
    user_agent TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_user_id ON session(user_id);

-- Appraisals (one row per wizard run)
CREATE TABLE IF NOT EXISTS appraisal (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'submitted', 'paid', 'completed')),
    vin TEXT NOT NULL DEFAULT '',
    year INTEGER NOT NULL DEFAULT 0,
    make TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    trim TEXT NOT NULL DEFAULT '',
    mileage INTEGER NOT NULL DEFAULT 0,
    state TEXT NOT NULL DEFAULT '',
    zip TEXT NOT NULL DEFAULT '',
    declared_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    accident_date TIMESTAMP,
    repair_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    airbag_deployed BOOLEAN NOT NULL DEFAULT FALSE,
    structural_damage BOOLEAN NOT NULL DEFAULT FALSE,
    prior_accidents INTEGER NOT NULL DEFAULT 0,
    insurer_name TEXT NOT NULL DEFAULT '',
    claim_number TEXT NOT NULL DEFAULT '',
    vehicle_done BOOLEAN NOT NULL DEFAULT FALSE,
    accident_done BOOLEAN NOT NULL DEFAULT FALSE,
    damage_done BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_appraisal_user_id ON appraisal(user_id);
CREATE INDEX IF NOT EXISTS idx_appraisal_status ON appraisal(status);

-- Damage areas (replaced as a whole by the damage step)
CREATE TABLE IF NOT EXISTS damage_area (
    appraisal_id TEXT NOT NULL REFERENCES appraisal(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    area TEXT NOT NULL,
    severity TEXT NOT NULL CHECK (severity IN ('none', 'minor', 'moderate', 'severe', 'structural')),
    PRIMARY KEY (appraisal_id, position)
);

-- Payments (one per appraisal)
CREATE TABLE IF NOT EXISTS payment (
    id TEXT PRIMARY KEY,
    appraisal_id TEXT NOT NULL UNIQUE REFERENCES appraisal(id) ON DELETE CASCADE,
    amount_cents INTEGER NOT NULL CHECK (amount_cents >= 0),
    currency TEXT NOT NULL DEFAULT 'usd',
    provider TEXT NOT NULL,
    reference TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('succeeded', 'failed')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Valuation snapshots (latest by computed_at wins)
CREATE TABLE IF NOT EXISTS valuation (
    id TEXT PRIMARY KEY,
    appraisal_id TEXT NOT NULL REFERENCES appraisal(id) ON DELETE CASCADE,
    amount DOUBLE PRECISION NOT NULL,
    value_source TEXT NOT NULL,
    payload TEXT NOT NULL,
    computed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_valuation_appraisal_id ON valuation(appraisal_id, computed_at);

-- Rendered and e-mailed documents
CREATE TABLE IF NOT EXISTS report (
    id TEXT PRIMARY KEY,
    appraisal_id TEXT NOT NULL REFERENCES appraisal(id) ON DELETE CASCADE,
    valuation_id TEXT NOT NULL REFERENCES valuation(id) ON DELETE CASCADE,
    document TEXT NOT NULL CHECK (document IN ('report', 'demand_letter')),
    format TEXT NOT NULL CHECK (format IN ('html', 'pdf')),
    emailed_to TEXT,
    email_id TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_report_appraisal_id ON report(appraisal_id);

-- Negotiation chat
CREATE TABLE IF NOT EXISTS chat_message (
    id TEXT PRIMARY KEY,
    appraisal_id TEXT NOT NULL REFERENCES appraisal(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    body TEXT NOT NULL,
    intent TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (appraisal_id, seq)
)
`
