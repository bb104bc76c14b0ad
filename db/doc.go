// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Opening

Open picks the driver from the config, pings the database and runs
CreateSchema:

	conn, err := db.Open(cfg)

DATABASE_TYPE "postgres" uses lib/pq, "sqlite" uses the pure Go
modernc.org/sqlite driver. SQLite DSNs get foreign keys and a busy timeout
switched on, and the pool is limited to one connection. Queries everywhere
use $N placeholders, which both drivers bind positionally.

# Schema Creation

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The DDL only uses types both databases understand (TEXT, INTEGER, BOOLEAN,
DOUBLE PRECISION, TIMESTAMP); JSON snapshots are stored as TEXT.

# Tables

  - app_user: Accounts (email, bcrypt password hash)
  - session: Login sessions keyed by the SHA-256 of the token
  - appraisal: Wizard state, vehicle and accident details, lifecycle status
  - damage_area: Ordered damage areas of an appraisal
  - payment: The report fee payment, at most one per appraisal
  - valuation: JSON snapshots of full valuations
  - report: Log of rendered and e-mailed documents
  - chat_message: Negotiation assistant transcript

# Relationships

	app_user 1──* session
	app_user 1──* appraisal
	appraisal 1──* damage_area
	appraisal 1──0..1 payment
	appraisal 1──* valuation
	valuation 1──* report
	appraisal 1──* chat_message

All foreign keys use ON DELETE CASCADE.

# Status

appraisal.status moves draft → submitted → paid → completed and is
enforced by a CHECK constraint; the transitions themselves live in the
handlers.
*/
package db
