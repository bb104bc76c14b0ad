// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/danielhkuo/dv-appraisal/auth"
	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/metrics"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/valuation"
	"github.com/danielhkuo/dv-appraisal/vindecode"
)

var zipPattern = regexp.MustCompile(`^[0-9]{5}$`)

// AppraisalHandler serves the wizard: creating appraisals, the three data
// steps and the free preview estimate
type AppraisalHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewAppraisalHandler(db *sql.DB, cfg cliparse.Config, svc Services) *AppraisalHandler {
	return &AppraisalHandler{db: db, cfg: cfg, svc: svc.withDefaults()}
}

// Create handles POST /appraisals
func (h *AppraisalHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		log.Error("failed to generate appraisal ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create appraisal")
		return
	}

	now := h.svc.now()
	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO appraisal (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, id, user.ID, models.StatusDraft, now)
	if err != nil {
		log.Error("failed to insert appraisal", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create appraisal")
		return
	}

	log.Info("appraisal created", "appraisal_id", id, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.Appraisal{
		ID:        id,
		UserID:    user.ID,
		Status:    models.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// List handles GET /appraisals, newest first
func (h *AppraisalHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT `+appraisalColumns+`
		FROM appraisal
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, user.ID)
	if err != nil {
		log.Error("failed to query appraisals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	appraisals := []models.Appraisal{}
	for rows.Next() {
		a, err := scanAppraisal(rows)
		if err != nil {
			rows.Close()
			log.Error("failed to scan appraisal", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		appraisals = append(appraisals, a)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		log.Error("failed to iterate appraisals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Damage areas are read after the appraisal rows are released
	for i := range appraisals {
		appraisals[i].Vehicle.DamageAreas, err = loadDamageAreas(r.Context(), h.db, appraisals[i].ID)
		if err != nil {
			log.Error("failed to load damage areas", "appraisal_id", appraisals[i].ID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	middleware.JSONResponse(w, http.StatusOK, appraisals)
}

// Get handles GET /appraisals/{id}
func (h *AppraisalHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// UpdateVehicle handles PUT /appraisals/{id}/vehicle
func (h *AppraisalHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.VehicleStepRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a, _, ok := h.editable(w, r)
	if !ok {
		return
	}

	v := &a.Vehicle
	v.VIN = vindecode.Normalize(req.VIN)
	v.Year = req.Year
	v.Make = strings.TrimSpace(req.Make)
	v.Model = strings.TrimSpace(req.Model)
	v.Trim = strings.TrimSpace(req.Trim)
	v.Mileage = req.Mileage
	v.State = strings.ToUpper(strings.TrimSpace(req.State))
	v.ZIP = strings.TrimSpace(req.ZIP)
	v.DeclaredValue = req.DeclaredValue

	fields := h.profileProblems(a.Vehicle, true)
	if v.VIN != "" {
		if err := vindecode.ValidateVIN(v.VIN); err != nil {
			fields["vin"] = append(fields["vin"], "is not a valid 17-character VIN")
		}
	}
	if v.ZIP != "" && !zipPattern.MatchString(v.ZIP) {
		fields["zip"] = append(fields["zip"], "must be a five-digit ZIP code")
	}
	if len(fields) > 0 {
		middleware.FieldErrorResponse(w, "Invalid vehicle information", fields)
		return
	}

	prev := a.Status
	a.Steps.Vehicle = true
	a.Status = nextStatus(a)
	a.UpdatedAt = h.svc.now()

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE appraisal
		SET vin = $1, year = $2, make = $3, model = $4, trim = $5, mileage = $6,
		    state = $7, zip = $8, declared_value = $9, vehicle_done = TRUE, status = $10, updated_at = $11
		WHERE id = $12 AND status = $13
	`, v.VIN, v.Year, v.Make, v.Model, v.Trim, v.Mileage, v.State, v.ZIP, v.DeclaredValue, a.Status, a.UpdatedAt, a.ID, prev)
	if !h.stepSaved(w, r, a, prev, res, err) {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// UpdateAccident handles PUT /appraisals/{id}/accident
func (h *AppraisalHandler) UpdateAccident(w http.ResponseWriter, r *http.Request) {
	var req models.AccidentStepRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a, _, ok := h.editable(w, r)
	if !ok {
		return
	}

	var badDate bool
	v := &a.Vehicle
	v.AccidentDate = nil
	if req.AccidentDate != "" {
		d, err := time.Parse(time.DateOnly, req.AccidentDate)
		if err != nil {
			badDate = true
		} else {
			v.AccidentDate = &d
		}
	}
	v.RepairCost = req.RepairCost
	v.Airbag = req.Airbag
	v.Structural = req.Structural
	v.PriorAccidents = req.PriorAccidents
	a.InsurerName = strings.TrimSpace(req.InsurerName)
	a.ClaimNumber = strings.TrimSpace(req.ClaimNumber)

	fields := h.profileProblems(a.Vehicle, a.Steps.Vehicle)
	if badDate {
		fields["accident_date"] = append(fields["accident_date"], "must be a date in YYYY-MM-DD form")
	}
	if len(fields) > 0 {
		middleware.FieldErrorResponse(w, "Invalid accident information", fields)
		return
	}

	prev := a.Status
	a.Steps.Accident = true
	a.Status = nextStatus(a)
	a.UpdatedAt = h.svc.now()

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE appraisal
		SET accident_date = $1, repair_cost = $2, airbag_deployed = $3, structural_damage = $4,
		    prior_accidents = $5, insurer_name = $6, claim_number = $7, accident_done = TRUE,
		    status = $8, updated_at = $9
		WHERE id = $10 AND status = $11
	`, v.AccidentDate, v.RepairCost, v.Airbag, v.Structural, v.PriorAccidents, a.InsurerName, a.ClaimNumber,
		a.Status, a.UpdatedAt, a.ID, prev)
	if !h.stepSaved(w, r, a, prev, res, err) {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// UpdateDamage handles PUT /appraisals/{id}/damage. The submitted list
// replaces the stored one.
func (h *AppraisalHandler) UpdateDamage(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req models.DamageStepRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a, _, ok := h.editable(w, r)
	if !ok {
		return
	}

	areas := make([]valuation.DamageArea, 0, len(req.DamageAreas))
	for _, d := range req.DamageAreas {
		areas = append(areas, valuation.DamageArea{
			Area:     strings.TrimSpace(d.Area),
			Severity: strings.ToLower(strings.TrimSpace(d.Severity)),
		})
	}
	a.Vehicle.DamageAreas = areas

	fields := h.profileProblems(a.Vehicle, a.Steps.Vehicle)
	if len(areas) == 0 {
		fields["damage_areas"] = append(fields["damage_areas"], "at least one area is required")
	}
	if len(fields) > 0 {
		middleware.FieldErrorResponse(w, "Invalid damage information", fields)
		return
	}

	prev := a.Status
	a.Steps.Damage = true
	a.Status = nextStatus(a)
	a.UpdatedAt = h.svc.now()

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		log.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer logging.SafeRollback(tx, log, "update damage")

	if _, err := tx.ExecContext(r.Context(), "DELETE FROM damage_area WHERE appraisal_id = $1", a.ID); err != nil {
		log.Error("failed to clear damage areas", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save damage")
		return
	}
	for i, d := range areas {
		_, err := tx.ExecContext(r.Context(), `
			INSERT INTO damage_area (appraisal_id, position, area, severity)
			VALUES ($1, $2, $3, $4)
		`, a.ID, i, d.Area, d.Severity)
		if err != nil {
			log.Error("failed to insert damage area", "appraisal_id", a.ID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save damage")
			return
		}
	}

	res, err := tx.ExecContext(r.Context(), `
		UPDATE appraisal
		SET damage_done = TRUE, status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, a.Status, a.UpdatedAt, a.ID, prev)
	if !h.stepSaved(w, r, a, prev, res, err) {
		return
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit damage", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save damage")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// Estimate handles GET /appraisals/{id}/estimate, the free preview for a
// saved appraisal
func (h *AppraisalHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}

	if !a.Steps.Vehicle || !a.Steps.Accident || !a.Steps.Damage {
		middleware.ErrorResponse(w, http.StatusConflict, "Complete the vehicle, accident and damage steps first")
		return
	}

	now := h.svc.now()
	if err := valuation.ValidateProfile(a.Vehicle, now); err != nil {
		if !validationResponse(w, err) {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	est := valuation.ComputeDVAmount(a.Vehicle, h.svc.Rules, now)
	metrics.ObserveValuation("preview", est.ValueSource, est.Amount)

	middleware.JSONResponse(w, http.StatusOK, models.EstimateResponse{Estimate: est, Preview: true})
}

// nextStatus submits a draft once all three wizard steps are done
func nextStatus(a models.Appraisal) string {
	if a.Status == models.StatusDraft && a.Steps.Vehicle && a.Steps.Accident && a.Steps.Damage {
		return models.StatusSubmitted
	}
	return a.Status
}

// stepSaved checks the result of a wizard step update. The status guard in
// the WHERE clause keeps a concurrent payment from being overwritten.
func (h *AppraisalHandler) stepSaved(w http.ResponseWriter, r *http.Request, a models.Appraisal, prev string, res sql.Result, err error) bool {
	log := logging.FromContext(r.Context())
	if err != nil {
		log.Error("failed to save wizard step", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save appraisal")
		return false
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Appraisal changed, reload and retry")
		return false
	}
	if a.Status != prev {
		log.Info("appraisal submitted", "appraisal_id", a.ID)
	}
	return true
}

// editable loads the caller's appraisal and rejects it once paid
func (h *AppraisalHandler) editable(w http.ResponseWriter, r *http.Request) (models.Appraisal, models.User, bool) {
	a, user, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return a, user, false
	}
	if a.Status != models.StatusDraft && a.Status != models.StatusSubmitted {
		middleware.ErrorResponse(w, http.StatusConflict, "Appraisal is paid and can no longer be edited")
		return a, user, false
	}
	return a, user, true
}

// vehicleStepFields are the profile fields owned by the vehicle step
var vehicleStepFields = map[string]bool{
	"year": true, "make": true, "model": true, "mileage": true, "state": true, "declared_value": true,
}

// profileProblems validates the profile as far as the wizard has filled it.
// Problems with vehicle step fields are dropped unless withVehicle is set.
func (h *AppraisalHandler) profileProblems(p valuation.VehicleProfile, withVehicle bool) map[string][]string {
	fields := map[string][]string{}
	var verr *valuation.ValidationError
	if err := valuation.ValidateProfile(p, h.svc.now()); errors.As(err, &verr) {
		for k, v := range verr.Fields {
			if !withVehicle && vehicleStepFields[k] {
				continue
			}
			fields[k] = v
		}
	}
	return fields
}
