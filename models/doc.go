// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

Valuation types (VehicleProfile, Estimate, FullValuation, ...) live in the
valuation package and are embedded here rather than copied.

# Request Types

Types for parsing incoming JSON:

  - RegisterRequest, LoginRequest: email, password (name on register)
  - VehicleStepRequest: vin, year, make, model, trim, mileage, state, zip, declared_value
  - AccidentStepRequest: accident_date (YYYY-MM-DD), repair_cost, airbag_deployed,
    structural_damage, prior_accidents, insurer_name, claim_number
  - DamageStepRequest: damage_areas [{area, severity}]
  - PaymentRequest: token
  - EmailReportRequest: to, include_demand_letter
  - ChatRequest: message

# Response Types

Types for JSON responses:

  - AuthResponse: user, token, expires_at
  - EstimateResponse: estimate, preview
  - PaymentResponse: payment_id, status, amount_cents, currency, reference, appraisal_status
  - ValuationResponse: valuation_id, appraisal_id, valuation
  - ShareResponse: url, expires_at
  - EmailReportResponse: email_id, to
  - ChatResponse: message, reply, offer, counter, accept
  - HealthResponse: status, database
  - ErrorResponse: error, message, fields

# Domain Types

  - User: account (password hash never serialized)
  - Appraisal: wizard state with the vehicle profile and step completion
  - WizardSteps: which of the vehicle, accident and damage steps are saved
  - ChatMessage: one line of the negotiation transcript

# Constants

Appraisal status:

	StatusDraft      wizard in progress
	StatusSubmitted  vehicle, accident and damage saved
	StatusPaid       report fee recorded
	StatusCompleted  report delivered

Documents are DocumentReport and DocumentDemandLetter, each in FormatHTML or
FormatPDF. Chat roles are RoleUser and RoleAssistant.
*/
package models
