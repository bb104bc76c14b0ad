// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/dv-appraisal/httpclient"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/testutil"
	"github.com/danielhkuo/dv-appraisal/valuation"
	"github.com/danielhkuo/dv-appraisal/vindecode"
)

func accordProfile() valuation.VehicleProfile {
	accident := testutil.AccidentDate
	return valuation.VehicleProfile{
		VIN:           "1HGCV1F13MA000001",
		Year:          2021,
		Make:          "Honda",
		Model:         "Accord",
		Mileage:       30000,
		State:         "TX",
		DeclaredValue: 25000,
		RepairCost:    5000,
		DamageAreas: []valuation.DamageArea{
			{Area: "rear bumper", Severity: valuation.SeverityMinor},
			{Area: "trunk", Severity: valuation.SeverityModerate},
		},
		AccidentDate: &accident,
	}
}

func TestEstimate_Anonymous(t *testing.T) {
	h := NewEstimateHandler(testutil.GetTestConfig(), testServices())

	w := serve(nil, "POST /estimate", h.Estimate, testutil.MakeRequest("POST", "/estimate", accordProfile(), nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EstimateResponse
	testutil.AssertJSON(t, w, &resp)

	want := valuation.ComputeDVAmount(accordProfile(), valuation.DefaultRules(), testutil.Now)
	assert.True(t, resp.Preview)
	assert.Equal(t, want.Amount, resp.Estimate.Amount)
	assert.Equal(t, want.Low, resp.Estimate.Low)
	assert.Equal(t, want.High, resp.Estimate.High)
	assert.Equal(t, valuation.SourceOwner, resp.Estimate.ValueSource)
}

func TestEstimate_HeuristicWithoutDeclaredValue(t *testing.T) {
	h := NewEstimateHandler(testutil.GetTestConfig(), testServices())
	p := accordProfile()
	p.DeclaredValue = 0

	w := serve(nil, "POST /estimate", h.Estimate, testutil.MakeRequest("POST", "/estimate", p, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EstimateResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, valuation.SourceHeuristic, resp.Estimate.ValueSource)
}

func TestEstimate_Invalid(t *testing.T) {
	h := NewEstimateHandler(testutil.GetTestConfig(), testServices())
	p := accordProfile()
	p.Year = 0
	p.State = "Texas"

	w := serve(nil, "POST /estimate", h.Estimate, testutil.MakeRequest("POST", "/estimate", p, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Contains(t, resp.Fields, "year")
	assert.Contains(t, resp.Fields, "state")
}

func TestEstimate_InvalidJSON(t *testing.T) {
	h := NewEstimateHandler(testutil.GetTestConfig(), testServices())

	req := testutil.MakeRequest("POST", "/estimate", nil, nil)
	w := serve(nil, "POST /estimate", h.Estimate, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestDecodeVIN(t *testing.T) {
	svc := testServices()
	dec := svc.Decoder.(*fakeDecoder)
	h := NewEstimateHandler(testutil.GetTestConfig(), svc)

	w := serve(nil, "GET /vin/{vin}", h.DecodeVIN, testutil.MakeRequest("GET", "/vin/1hgcv1f13ma000001", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VINResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "1HGCV1F13MA000001", resp.VIN)
	assert.Equal(t, "Accord", resp.Decoded.Model)
	assert.Equal(t, 1, dec.calls)
}

func TestDecodeVIN_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vin     string
		decoder VINDecoder
		status  int
	}{
		{"bad check digit", "1HGCV1F13MA000002", &fakeDecoder{}, http.StatusBadRequest},
		{"too short", "1HGCV1F13", &fakeDecoder{}, http.StatusBadRequest},
		{"not decodable", "1HGCV1F13MA000001", &fakeDecoder{err: fmt.Errorf("%w: 8 - no detailed data", vindecode.ErrDecodeFailed)}, http.StatusUnprocessableEntity},
		{"upstream error", "1HGCV1F13MA000001", &fakeDecoder{err: &httpclient.APIError{API: "nhtsa", Status: 500}}, http.StatusBadGateway},
		{"network error", "1HGCV1F13MA000001", &fakeDecoder{err: errors.New("dial tcp: timeout")}, http.StatusBadGateway},
		{"no decoder", "1HGCV1F13MA000001", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testServices()
			svc.Decoder = tt.decoder
			h := NewEstimateHandler(testutil.GetTestConfig(), svc)

			w := serve(nil, "GET /vin/{vin}", h.DecodeVIN, testutil.MakeRequest("GET", "/vin/"+tt.vin, nil, nil))
			testutil.AssertStatus(t, w, tt.status)

			if tt.status == http.StatusBadRequest {
				dec, ok := tt.decoder.(*fakeDecoder)
				require.True(t, ok)
				assert.Zero(t, dec.calls)
			}
		})
	}
}
