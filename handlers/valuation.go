// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/metrics"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

// ValuationHandler runs and serves the paid full valuation
type ValuationHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewValuationHandler(db *sql.DB, cfg cliparse.Config, svc Services) *ValuationHandler {
	return &ValuationHandler{db: db, cfg: cfg, svc: svc.withDefaults()}
}

// Run handles POST /appraisals/{id}/valuation. Every call computes a new
// snapshot; the latest one backs the documents.
func (h *ValuationHandler) Run(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}
	if !isPaid(a) {
		middleware.ErrorResponse(w, http.StatusPaymentRequired, "Pay for the appraisal before running the full valuation")
		return
	}

	now := h.svc.now()
	fv, err := valuation.ComputeFullValuation(r.Context(), a.Vehicle, h.svc.Prices, h.svc.Rules, now)
	if err != nil {
		if validationResponse(w, err) {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("valuation cancelled", "appraisal_id", a.ID, "error", err)
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Valuation timed out, retry later")
			return
		}
		log.Error("valuation failed", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Valuation failed")
		return
	}
	fv.Decoded = h.decode(r.Context(), a)

	for _, s := range fv.Sources {
		if s.Error != "" {
			log.Warn("price source unavailable", "appraisal_id", a.ID, "source", s.Name, "error", s.Error)
		}
	}

	payload, err := json.Marshal(fv)
	if err != nil {
		log.Error("failed to encode valuation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Valuation failed")
		return
	}

	valuationID := uuid.NewString()
	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO valuation (id, appraisal_id, amount, value_source, payload, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, valuationID, a.ID, fv.Estimate.Amount, fv.Estimate.ValueSource, string(payload), now)
	if err != nil {
		log.Error("failed to insert valuation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save valuation")
		return
	}

	metrics.ObserveValuation("full", fv.Estimate.ValueSource, fv.Estimate.Amount)
	log.Info("valuation computed",
		"appraisal_id", a.ID,
		"valuation_id", valuationID,
		"amount", fv.Estimate.Amount,
		"value_source", fv.Estimate.ValueSource,
	)

	middleware.JSONResponse(w, http.StatusCreated, models.ValuationResponse{
		ValuationID: valuationID,
		AppraisalID: a.ID,
		Valuation:   fv,
	})
}

// Get handles GET /appraisals/{id}/valuation
func (h *ValuationHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}

	valuationID, fv, err := latestValuation(r.Context(), h.db, a.ID)
	if errors.Is(err, errNoValuation) {
		middleware.ErrorResponse(w, http.StatusNotFound, "No valuation has been computed")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load valuation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ValuationResponse{
		ValuationID: valuationID,
		AppraisalID: a.ID,
		Valuation:   fv,
	})
}

// decode looks the VIN up for the report header. Failures only cost the
// decoded section, so they are logged and dropped.
func (h *ValuationHandler) decode(ctx context.Context, a models.Appraisal) *valuation.DecodedVehicle {
	if h.svc.Decoder == nil || a.Vehicle.VIN == "" {
		return nil
	}
	d, err := h.svc.Decoder.Decode(ctx, a.Vehicle.VIN)
	if err != nil {
		logging.FromContext(ctx).Warn("vin decode failed", "appraisal_id", a.ID, "error", err)
		return nil
	}
	return &d
}
