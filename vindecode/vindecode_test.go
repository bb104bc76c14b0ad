// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vindecode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/dv-appraisal/httpclient"
)

func TestValidateVIN(t *testing.T) {
	tests := []struct {
		vin   string
		valid bool
	}{
		{"1HGCM82633A004352", true},
		{"1HGCV1F13MA000001", true},
		{"1M8GDM9AXKP042788", true}, // check digit X
		{"11111111111111111", true},
		{"1HGCM82633A004353", false}, // wrong check digit
		{"1HGCM82633A00435", false},  // 16 chars
		{"1HGCM82633A0043521", false},
		{"1HGCM8263OA004352", false}, // letter O
		{"IHGCM82633A004352", false},
		{"1hgcm82633a004352", false}, // not normalized
	}

	for _, tt := range tests {
		t.Run(tt.vin, func(t *testing.T) {
			err := ValidateVIN(tt.vin)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidVIN)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1HGCM82633A004352", Normalize("  1hgcm82633a004352 "))
	assert.NoError(t, ValidateVIN(Normalize("1hgcm82633a004352")))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Honda", titleCase("HONDA"))
	assert.Equal(t, "Mercedes-Benz", titleCase("MERCEDES-BENZ"))
	assert.Equal(t, "Land Rover", titleCase(" LAND ROVER"))
	assert.Equal(t, "", titleCase(""))
}

func TestDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vehicles/DecodeVinValues/1HGCV1F13MA000001", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{"Count":1,"Message":"Results returned successfully","Results":[
			{"Make":"HONDA","Model":"Accord","ModelYear":"2021","Trim":"EX-L","BodyClass":"Sedan/Saloon",
			 "ErrorCode":"0","ErrorText":"0 - VIN decoded clean. Check Digit (9th position) is correct"}]}`))
	}))
	defer srv.Close()

	v, err := NewClient(srv.URL).Decode(context.Background(), "1hgcv1f13ma000001")
	require.NoError(t, err)
	assert.Equal(t, 2021, v.Year)
	assert.Equal(t, "Honda", v.Make)
	assert.Equal(t, "Accord", v.Model)
	assert.Equal(t, "EX-L", v.Trim)
	assert.Equal(t, "Sedan/Saloon", v.BodyClass)
}

func TestDecode_ErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Count":1,"Results":[{"Make":"","ModelYear":"","ErrorCode":"11,400",
			"ErrorText":"11 - Incorrect Model Year, decoded data may not be accurate"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA000001")
	require.ErrorIs(t, err, ErrDecodeFailed)
	assert.Contains(t, err.Error(), "Incorrect Model Year")
}

func TestDecode_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Count":0,"Results":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA000001")
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestDecode_InvalidVINSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Decode(context.Background(), "not-a-vin")
	assert.ErrorIs(t, err, ErrInvalidVIN)
	assert.False(t, called)
}

func TestDecode_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Decode(context.Background(), "1HGCV1F13MA000001")
	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "nhtsa", apiErr.API)
}
