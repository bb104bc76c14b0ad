// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/dv-appraisal/auth"
	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/db"
	"github.com/danielhkuo/dv-appraisal/models"
)

// TestPassword is the password of every user made by CreateTestUser
const TestPassword = "correct horse battery"

// Now is the fixed clock handler tests run at
var Now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// AccidentDate is the loss date of CreateTestAppraisal's vehicle
var AccidentDate = time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenDSN("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           8080,
		DatabaseURL:    ":memory:",
		DatabaseType:   "sqlite",
		SessionSecret:  "test-session-secret",
		PublicBaseURL:  "http://dv.test",
		MailFrom:       "reports@dv.test",
		ReportFeeCents: 4900,
	}
}

// CreateTestUser inserts a user with TestPassword and a live session, returning the user and raw session token
func CreateTestUser(t *testing.T, conn *sql.DB, email string) (models.User, string) {
	t.Helper()

	id, _ := auth.GenerateID(16)
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	now := time.Now().UTC()

	_, err = conn.Exec(`
		INSERT INTO app_user (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, email, "Test Owner", hash, now)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	token, _ := auth.GenerateSessionToken()
	_, err = conn.Exec(`
		INSERT INTO session (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, auth.HashToken(token), id, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return models.User{ID: id, Email: email, Name: "Test Owner", CreatedAt: now}, token
}

// CreateTestAppraisal inserts a 2021 Honda Accord appraisal with every wizard step filled.
// status should be "draft", "submitted", "paid" or "completed"; paid and completed get a payment row.
func CreateTestAppraisal(t *testing.T, conn *sql.DB, userID, status string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	now := time.Now().UTC()

	_, err := conn.Exec(`
		INSERT INTO appraisal (id, user_id, status, vin, year, make, model, trim, mileage, state, zip,
			declared_value, accident_date, repair_cost, airbag_deployed, structural_damage, prior_accidents,
			insurer_name, claim_number, vehicle_done, accident_done, damage_done, created_at, updated_at)
		VALUES ($1, $2, $3, '1HGCV1F13MA000001', 2021, 'Honda', 'Accord', 'EX-L', 30000, 'TX', '78701',
			25000, $4, 5000, FALSE, FALSE, 0,
			'Acme Mutual', 'CLM-42', TRUE, TRUE, TRUE, $5, $5)
	`, id, userID, status, AccidentDate, now)
	if err != nil {
		t.Fatalf("Failed to create test appraisal: %v", err)
	}

	for i, d := range [][2]string{{"rear bumper", "minor"}, {"trunk", "moderate"}} {
		_, err := conn.Exec(`
			INSERT INTO damage_area (appraisal_id, position, area, severity)
			VALUES ($1, $2, $3, $4)
		`, id, i, d[0], d[1])
		if err != nil {
			t.Fatalf("Failed to create test damage area: %v", err)
		}
	}

	if status == models.StatusPaid || status == models.StatusCompleted {
		paymentID, _ := auth.GenerateID(16)
		_, err := conn.Exec(`
			INSERT INTO payment (id, appraisal_id, amount_cents, currency, provider, reference, status, created_at)
			VALUES ($1, $2, 4900, 'usd', 'mock', 'test-ref', 'succeeded', $3)
		`, paymentID, id, now)
		if err != nil {
			t.Fatalf("Failed to create test payment: %v", err)
		}
	}

	return id
}

// AuthHeaders returns the bearer header for a session token
func AuthHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
