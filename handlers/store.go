// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

var (
	errAppraisalNotFound = errors.New("appraisal not found")
	errNoValuation       = errors.New("no valuation computed")
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const appraisalColumns = `id, user_id, status, vin, year, make, model, trim, mileage, state, zip,
	declared_value, accident_date, repair_cost, airbag_deployed, structural_damage, prior_accidents,
	insurer_name, claim_number, vehicle_done, accident_done, damage_done, created_at, updated_at, completed_at`

func scanAppraisal(row rowScanner) (models.Appraisal, error) {
	var a models.Appraisal
	var accident, completed sql.NullTime
	v := &a.Vehicle

	err := row.Scan(
		&a.ID, &a.UserID, &a.Status, &v.VIN, &v.Year, &v.Make, &v.Model, &v.Trim, &v.Mileage, &v.State, &v.ZIP,
		&v.DeclaredValue, &accident, &v.RepairCost, &v.Airbag, &v.Structural, &v.PriorAccidents,
		&a.InsurerName, &a.ClaimNumber, &a.Steps.Vehicle, &a.Steps.Accident, &a.Steps.Damage,
		&a.CreatedAt, &a.UpdatedAt, &completed,
	)
	if err != nil {
		return models.Appraisal{}, err
	}

	if accident.Valid {
		t := accident.Time.UTC()
		v.AccidentDate = &t
	}
	if completed.Valid {
		t := completed.Time.UTC()
		a.CompletedAt = &t
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

// loadAppraisal reads one appraisal with its damage areas. A non-empty
// userID restricts the lookup to that owner.
func loadAppraisal(ctx context.Context, q querier, id, userID string) (models.Appraisal, error) {
	query := `SELECT ` + appraisalColumns + ` FROM appraisal WHERE id = $1`
	args := []any{id}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	a, err := scanAppraisal(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Appraisal{}, errAppraisalNotFound
	}
	if err != nil {
		return models.Appraisal{}, fmt.Errorf("query appraisal: %w", err)
	}

	a.Vehicle.DamageAreas, err = loadDamageAreas(ctx, q, id)
	if err != nil {
		return models.Appraisal{}, err
	}
	return a, nil
}

func loadDamageAreas(ctx context.Context, q querier, appraisalID string) ([]valuation.DamageArea, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT area, severity
		FROM damage_area
		WHERE appraisal_id = $1
		ORDER BY position
	`, appraisalID)
	if err != nil {
		return nil, fmt.Errorf("query damage areas: %w", err)
	}
	defer rows.Close()

	var areas []valuation.DamageArea
	for rows.Next() {
		var d valuation.DamageArea
		if err := rows.Scan(&d.Area, &d.Severity); err != nil {
			return nil, fmt.Errorf("scan damage area: %w", err)
		}
		areas = append(areas, d)
	}
	return areas, rows.Err()
}

// latestValuation returns the most recent valuation snapshot and its ID
func latestValuation(ctx context.Context, q querier, appraisalID string) (string, valuation.FullValuation, error) {
	var id, payload string
	err := q.QueryRowContext(ctx, `
		SELECT id, payload
		FROM valuation
		WHERE appraisal_id = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`, appraisalID).Scan(&id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", valuation.FullValuation{}, errNoValuation
	}
	if err != nil {
		return "", valuation.FullValuation{}, fmt.Errorf("query valuation: %w", err)
	}

	var fv valuation.FullValuation
	if err := json.Unmarshal([]byte(payload), &fv); err != nil {
		return "", valuation.FullValuation{}, fmt.Errorf("decode valuation %s: %w", id, err)
	}
	return id, fv, nil
}

// ownedAppraisal loads the caller's appraisal named by the {id} path value,
// writing the error response itself when it returns false
func ownedAppraisal(w http.ResponseWriter, r *http.Request, db *sql.DB) (models.Appraisal, models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return models.Appraisal{}, models.User{}, false
	}

	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "appraisal id is required")
		return models.Appraisal{}, models.User{}, false
	}

	a, err := loadAppraisal(r.Context(), db, id, user.ID)
	if errors.Is(err, errAppraisalNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Appraisal not found")
		return models.Appraisal{}, models.User{}, false
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load appraisal", "appraisal_id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Appraisal{}, models.User{}, false
	}
	return a, user, true
}

// isPaid reports whether the appraisal has passed payment
func isPaid(a models.Appraisal) bool {
	return a.Status == models.StatusPaid || a.Status == models.StatusCompleted
}

// validationResponse writes the field errors of a *valuation.ValidationError
// and reports whether err was one
func validationResponse(w http.ResponseWriter, err error) bool {
	var verr *valuation.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	middleware.FieldErrorResponse(w, "Invalid vehicle profile", verr.Fields)
	return true
}
