// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/testutil"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

const valuationPattern = "/appraisals/{id}/valuation"

// runValuation computes and stores a full valuation for a paid appraisal
func runValuation(t *testing.T, db *sql.DB, svc Services, token, id string) models.ValuationResponse {
	t.Helper()
	h := NewValuationHandler(db, testutil.GetTestConfig(), svc)

	req := testutil.MakeRequest("POST", "/appraisals/"+id+"/valuation", nil, testutil.AuthHeaders(token))
	w := serve(db, "POST "+valuationPattern, h.Run, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.ValuationResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func TestValuation_Run(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user, token := testutil.CreateTestUser(t, db, "owner@example.com")
	id := testutil.CreateTestAppraisal(t, db, user.ID, models.StatusPaid)

	resp := runValuation(t, db, testServices(), token, id)

	assert.NotEmpty(t, resp.ValuationID)
	assert.Equal(t, id, resp.AppraisalID)
	fv := resp.Valuation
	assert.Equal(t, valuation.SourceBlended, fv.Estimate.ValueSource)
	assert.Greater(t, fv.Estimate.Amount, 0.0)
	require.NotNil(t, fv.Market)
	assert.Equal(t, 27000.0, fv.Market.Price)
	assert.NotEmpty(t, fv.Comparables.Listings)
	require.NotNil(t, fv.Decoded)
	assert.Equal(t, "EX-L", fv.Decoded.Trim)
	assert.True(t, fv.ComputedAt.Equal(testutil.Now))

	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM valuation WHERE appraisal_id = $1", id))
	// Running a valuation is not a document, the status stays paid
	assert.Equal(t, models.StatusPaid, appraisalStatus(t, db, id))
}

func TestValuation_GetReturnsLatest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user, token := testutil.CreateTestUser(t, db, "owner@example.com")
	id := testutil.CreateTestAppraisal(t, db, user.ID, models.StatusPaid)

	runValuation(t, db, testServices(), token, id)
	later := testServices()
	later.Now = func() time.Time { return testutil.Now.Add(time.Hour) }
	second := runValuation(t, db, later, token, id)
	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM valuation WHERE appraisal_id = $1", id))

	h := NewValuationHandler(db, testutil.GetTestConfig(), testServices())
	req := testutil.MakeRequest("GET", "/appraisals/"+id+"/valuation", nil, testutil.AuthHeaders(token))
	w := serve(db, "GET "+valuationPattern, h.Get, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var got models.ValuationResponse
	testutil.AssertJSON(t, w, &got)
	assert.Equal(t, second.ValuationID, got.ValuationID)
	assert.Equal(t, second.Valuation.Estimate.Amount, got.Valuation.Estimate.Amount)
	assert.True(t, got.Valuation.ComputedAt.Equal(testutil.Now.Add(time.Hour)))
}

func TestValuation_RequiresPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user, token := testutil.CreateTestUser(t, db, "owner@example.com")
	id := testutil.CreateTestAppraisal(t, db, user.ID, models.StatusSubmitted)
	h := NewValuationHandler(db, testutil.GetTestConfig(), testServices())

	req := testutil.MakeRequest("POST", "/appraisals/"+id+"/valuation", nil, testutil.AuthHeaders(token))
	w := serve(db, "POST "+valuationPattern, h.Run, req)
	testutil.AssertStatus(t, w, http.StatusPaymentRequired)
	assert.Zero(t, countRows(t, db, "SELECT COUNT(*) FROM valuation"))
}

func TestValuation_GetBeforeRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user, token := testutil.CreateTestUser(t, db, "owner@example.com")
	id := testutil.CreateTestAppraisal(t, db, user.ID, models.StatusPaid)
	h := NewValuationHandler(db, testutil.GetTestConfig(), testServices())

	req := testutil.MakeRequest("GET", "/appraisals/"+id+"/valuation", nil, testutil.AuthHeaders(token))
	w := serve(db, "GET "+valuationPattern, h.Get, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestValuation_UpstreamFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user, token := testutil.CreateTestUser(t, db, "owner@example.com")
	id := testutil.CreateTestAppraisal(t, db, user.ID, models.StatusPaid)

	svc := testServices()
	svc.Prices = &fakePrices{priceErr: errors.New("marketcheck: unexpected status 503"), searchErr: errors.New("timeout")}
	svc.Decoder = &fakeDecoder{err: errors.New("nhtsa down")}

	resp := runValuation(t, db, svc, token, id)

	fv := resp.Valuation
	assert.Equal(t, valuation.SourceOwner, fv.Estimate.ValueSource)
	assert.Equal(t, 25000.0, fv.Estimate.PreAccidentValue)
	assert.Nil(t, fv.Market)
	assert.Nil(t, fv.Decoded)
	for _, s := range fv.Sources {
		if s.Name == valuation.SourceMarket {
			assert.False(t, s.Available)
			assert.NotEmpty(t, s.Error)
		}
	}
}
