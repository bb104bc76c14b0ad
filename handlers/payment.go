// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
)

const (
	paymentProvider = "mock"
	paymentCurrency = "usd"
	// DeclinedToken makes the mock provider refuse the charge
	DeclinedToken = "tok_declined"
)

var errCardDeclined = errors.New("card declined")

// PaymentHandler records the report fee. Charges go to a mock provider that
// accepts every token except DeclinedToken.
type PaymentHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewPaymentHandler(db *sql.DB, cfg cliparse.Config, svc Services) *PaymentHandler {
	return &PaymentHandler{db: db, cfg: cfg, svc: svc.withDefaults()}
}

// Pay handles POST /appraisals/{id}/payment
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req models.PaymentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		middleware.FieldErrorResponse(w, "Invalid payment", map[string][]string{"token": {"is required"}})
		return
	}

	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}

	switch a.Status {
	case models.StatusDraft:
		middleware.ErrorResponse(w, http.StatusConflict, "Complete the wizard before paying")
		return
	case models.StatusPaid, models.StatusCompleted:
		middleware.ErrorResponse(w, http.StatusConflict, "Appraisal is already paid")
		return
	}

	reference, err := charge(req.Token, h.cfg.ReportFeeCents)
	if errors.Is(err, errCardDeclined) {
		log.Info("payment declined", "appraisal_id", a.ID)
		middleware.ErrorResponse(w, http.StatusPaymentRequired, "Card declined")
		return
	}
	if err != nil {
		log.Error("payment provider failed", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Payment provider unavailable")
		return
	}

	paymentID := uuid.NewString()
	now := h.svc.now()

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		log.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer logging.SafeRollback(tx, log, "record payment")

	res, err := tx.ExecContext(r.Context(), `
		UPDATE appraisal
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, models.StatusPaid, now, a.ID, models.StatusSubmitted)
	if err != nil {
		log.Error("failed to update appraisal status", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record payment")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Appraisal is already paid")
		return
	}

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO payment (id, appraisal_id, amount_cents, currency, provider, reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, paymentID, a.ID, h.cfg.ReportFeeCents, paymentCurrency, paymentProvider, reference, "succeeded", now)
	if err != nil {
		log.Error("failed to insert payment", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record payment")
		return
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit payment", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record payment")
		return
	}

	log.Info("payment recorded", "appraisal_id", a.ID, "payment_id", paymentID, "amount_cents", h.cfg.ReportFeeCents)

	middleware.JSONResponse(w, http.StatusCreated, models.PaymentResponse{
		PaymentID:       paymentID,
		Status:          "succeeded",
		AmountCents:     h.cfg.ReportFeeCents,
		Currency:        paymentCurrency,
		Reference:       reference,
		AppraisalStatus: models.StatusPaid,
	})
}

// charge runs the mock provider and returns its charge reference
func charge(token string, amountCents int) (string, error) {
	if token == DeclinedToken {
		return "", errCardDeclined
	}
	return "ch_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
