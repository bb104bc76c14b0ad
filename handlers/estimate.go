// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"

	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/httpclient"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/metrics"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/valuation"
	"github.com/danielhkuo/dv-appraisal/vindecode"
)

// EstimateHandler serves the public endpoints that need no account
type EstimateHandler struct {
	cfg cliparse.Config
	svc Services
}

func NewEstimateHandler(cfg cliparse.Config, svc Services) *EstimateHandler {
	return &EstimateHandler{cfg: cfg, svc: svc.withDefaults()}
}

// Estimate handles POST /estimate. The body is a vehicle profile; nothing is stored.
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var p valuation.VehicleProfile
	if err := middleware.ParseJSONBody(r, &p); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	now := h.svc.now()
	if err := valuation.ValidateProfile(p, now); err != nil {
		if !validationResponse(w, err) {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	est := valuation.ComputeDVAmount(p, h.svc.Rules, now)
	metrics.ObserveValuation("preview", est.ValueSource, est.Amount)

	middleware.JSONResponse(w, http.StatusOK, models.EstimateResponse{Estimate: est, Preview: true})
}

// DecodeVIN handles GET /vin/{vin}
func (h *EstimateHandler) DecodeVIN(w http.ResponseWriter, r *http.Request) {
	vin := vindecode.Normalize(r.PathValue("vin"))
	if err := vindecode.ValidateVIN(vin); err != nil {
		middleware.FieldErrorResponse(w, "Invalid VIN", map[string][]string{"vin": {err.Error()}})
		return
	}

	if h.svc.Decoder == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "VIN decoding is not available")
		return
	}

	decoded, err := h.svc.Decoder.Decode(r.Context(), vin)
	if err != nil {
		var apiErr *httpclient.APIError
		switch {
		case errors.Is(err, vindecode.ErrDecodeFailed):
			middleware.ErrorResponse(w, http.StatusUnprocessableEntity, "VIN could not be decoded")
		case errors.As(err, &apiErr):
			logging.FromContext(r.Context()).Warn("vin decode upstream error", "status", apiErr.Status, "error", err)
			middleware.ErrorResponse(w, http.StatusBadGateway, "VIN service returned an error")
		default:
			logging.FromContext(r.Context()).Error("vin decode failed", "error", err)
			middleware.ErrorResponse(w, http.StatusBadGateway, "VIN service unavailable")
		}
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VINResponse{VIN: vin, Decoded: decoded})
}
