// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/testutil"
)

func TestRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewAuthHandler(db, testutil.GetTestConfig())

	req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Email:    "  Owner@Example.com ",
		Password: "hunter2hunter2",
		Name:     "Pat Owner",
	}, nil)
	w := serve(nil, "POST /auth/register", h.Register, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.AuthResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "owner@example.com", resp.User.Email)
	assert.Equal(t, "Pat Owner", resp.User.Name)
	assert.Len(t, resp.Token, 32)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)

	// Only the hash of the token is stored
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM session WHERE token_hash = $1", resp.Token))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM session WHERE user_id = $1", resp.User.ID))
}

func TestRegister_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewAuthHandler(db, testutil.GetTestConfig())
	testutil.CreateTestUser(t, db, "taken@example.com")

	tests := []struct {
		name   string
		req    models.RegisterRequest
		status int
		field  string
	}{
		{"bad email", models.RegisterRequest{Email: "not-an-email", Password: "longenough"}, http.StatusBadRequest, "email"},
		{"display name email", models.RegisterRequest{Email: "Pat <pat@example.com>", Password: "longenough"}, http.StatusBadRequest, "email"},
		{"short password", models.RegisterRequest{Email: "new@example.com", Password: "short"}, http.StatusBadRequest, "password"},
		{"password over 72 bytes", models.RegisterRequest{Email: "new@example.com", Password: strings.Repeat("é", 37)}, http.StatusBadRequest, "password"},
		{"duplicate", models.RegisterRequest{Email: "TAKEN@example.com", Password: "longenough"}, http.StatusConflict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(nil, "POST /auth/register", h.Register, testutil.MakeRequest("POST", "/auth/register", tt.req, nil))
			testutil.AssertStatus(t, w, tt.status)

			if tt.field != "" {
				var resp models.ErrorResponse
				testutil.AssertJSON(t, w, &resp)
				assert.Contains(t, resp.Fields, tt.field)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.PublicBaseURL = "https://dv.example.com"
	h := NewAuthHandler(db, cfg)
	user, _ := testutil.CreateTestUser(t, db, "owner@example.com")

	t.Run("success", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{Email: "owner@example.com", Password: testutil.TestPassword}, nil)
		w := serve(nil, "POST /auth/login", h.Login, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.AuthResponse
		testutil.AssertJSON(t, w, &resp)
		assert.Equal(t, user.ID, resp.User.ID)
		require.Len(t, w.Result().Cookies(), 1)
		assert.True(t, w.Result().Cookies()[0].Secure)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{Email: "owner@example.com", Password: "wrong password"}, nil)
		w := serve(nil, "POST /auth/login", h.Login, req)
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{Email: "nobody@example.com", Password: testutil.TestPassword}, nil)
		w := serve(nil, "POST /auth/login", h.Login, req)
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}

func TestMeAndLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewAuthHandler(db, testutil.GetTestConfig())
	user, token := testutil.CreateTestUser(t, db, "owner@example.com")

	w := serve(db, "GET /auth/me", h.Me, testutil.MakeRequest("GET", "/auth/me", nil, testutil.AuthHeaders(token)))
	testutil.AssertStatus(t, w, http.StatusOK)
	var me models.User
	testutil.AssertJSON(t, w, &me)
	assert.Equal(t, user.ID, me.ID)

	w = serve(db, "POST /auth/logout", h.Logout, testutil.MakeRequest("POST", "/auth/logout", nil, testutil.AuthHeaders(token)))
	testutil.AssertStatus(t, w, http.StatusNoContent)
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)

	w = serve(db, "GET /auth/me", h.Me, testutil.MakeRequest("GET", "/auth/me", nil, testutil.AuthHeaders(token)))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}
