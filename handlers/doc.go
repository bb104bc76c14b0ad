// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the DV Appraisal API.

# Handler Types

Each handler is a struct with database, config and service dependencies:

  - AuthHandler: Registration, login, logout and the current user
  - AppraisalHandler: Wizard steps and the free preview estimate
  - EstimateHandler: Anonymous estimate and VIN lookup
  - PaymentHandler: Report fee through the mock provider
  - ValuationHandler: Paid full valuation snapshots
  - ReportHandler: Report, demand letter, PDF, e-mail and share links
  - ChatHandler: Negotiation assistant
  - HealthHandler: Health check and root

Handlers are created via constructor functions:

	appraisals := handlers.NewAppraisalHandler(db, cfg, svc)

Services carries the collaborators (valuation rules, market pricing, VIN
decoder, PDF renderer, mailer, assistant and clock). Nil fields fall back to
disabled implementations, so tests only set what they exercise.

# Appraisal Lifecycle

Appraisals progress through four states: draft → submitted → paid → completed

	POST /appraisals                 → Create (draft)
	PUT  /appraisals/{id}/vehicle    → UpdateVehicle
	PUT  /appraisals/{id}/accident   → UpdateAccident
	PUT  /appraisals/{id}/damage     → UpdateDamage
	POST /appraisals/{id}/payment    → Pay (paid)
	POST /appraisals/{id}/valuation  → Run
	GET  /appraisals/{id}/report     → Report (first document completes the appraisal)

Steps can be saved in any order and repeated until payment; whichever one
completes the set moves a draft to submitted. Every appraisal route requires a
session and only finds the caller's own appraisals; anything else is 404.

# Documents

The report and demand letter print the latest valuation snapshot. PDFs go
through the report.Renderer and answer 503 when rendering is disabled; the
same holds for e-mail without a Resend key. Each delivered document is
logged in the report table.

Share links carry an expiry and an HMAC signature keyed by the session
secret:

	GET /shared/{id}?exp=1735689600&sig=...

# Negotiation

POST /appraisals/{id}/chat stores the message and the assistant reply under
consecutive sequence numbers. The reply quotes the latest valuation, or the
preview estimate when none exists yet.
*/
package handlers
