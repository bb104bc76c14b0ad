package models

import (
	"time"

	"github.com/danielhkuo/dv-appraisal/valuation"
)

// Appraisal status constants
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusPaid      = "paid"
	StatusCompleted = "completed"
)

// Document constants
const (
	DocumentReport       = "report"
	DocumentDemandLetter = "demand_letter"
	FormatHTML           = "html"
	FormatPDF            = "pdf"
)

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request types

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Wizard step 1
type VehicleStepRequest struct {
	VIN           string  `json:"vin"`
	Year          int     `json:"year"`
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	Trim          string  `json:"trim"`
	Mileage       int     `json:"mileage"`
	State         string  `json:"state"`
	ZIP           string  `json:"zip"`
	DeclaredValue float64 `json:"declared_value"`
}

// Wizard step 2. AccidentDate is YYYY-MM-DD.
type AccidentStepRequest struct {
	AccidentDate   string  `json:"accident_date"`
	RepairCost     float64 `json:"repair_cost"`
	Airbag         bool    `json:"airbag_deployed"`
	Structural     bool    `json:"structural_damage"`
	PriorAccidents int     `json:"prior_accidents"`
	InsurerName    string  `json:"insurer_name"`
	ClaimNumber    string  `json:"claim_number"`
}

// Wizard step 3
type DamageStepRequest struct {
	DamageAreas []valuation.DamageArea `json:"damage_areas"`
}

// Wizard step 4. The mock provider declines the token "tok_declined".
type PaymentRequest struct {
	Token string `json:"token"`
}

type EmailReportRequest struct {
	To                  string `json:"to"`
	IncludeDemandLetter bool   `json:"include_demand_letter"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// Response types

type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EstimateResponse struct {
	Estimate valuation.Estimate `json:"estimate"`
	// Preview estimates use the declared or heuristic value only
	Preview bool `json:"preview"`
}

type VINResponse struct {
	VIN     string                   `json:"vin"`
	Decoded valuation.DecodedVehicle `json:"decoded"`
}

type PaymentResponse struct {
	PaymentID       string `json:"payment_id"`
	Status          string `json:"status"`
	AmountCents     int    `json:"amount_cents"`
	Currency        string `json:"currency"`
	Reference       string `json:"reference"`
	AppraisalStatus string `json:"appraisal_status"`
}

type ValuationResponse struct {
	ValuationID string                  `json:"valuation_id"`
	AppraisalID string                  `json:"appraisal_id"`
	Valuation   valuation.FullValuation `json:"valuation"`
}

type ShareResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EmailReportResponse struct {
	EmailID string `json:"email_id"`
	To      string `json:"to"`
}

type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Reply   ChatMessage `json:"reply"`
	Offer   float64     `json:"offer,omitempty"`
	Counter float64     `json:"counter,omitempty"`
	Accept  bool        `json:"accept,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Domain types

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

type WizardSteps struct {
	Vehicle  bool `json:"vehicle"`
	Accident bool `json:"accident"`
	Damage   bool `json:"damage"`
}

type Appraisal struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"-"`
	Status      string                   `json:"status"`
	Vehicle     valuation.VehicleProfile `json:"vehicle"`
	InsurerName string                   `json:"insurer_name,omitempty"`
	ClaimNumber string                   `json:"claim_number,omitempty"`
	Steps       WizardSteps              `json:"steps"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Body      string    `json:"body"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Error response

type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}
