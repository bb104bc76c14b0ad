// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/dv-appraisal/mailer"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/testutil"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

type fakePrices struct {
	price     valuation.MarketPrice
	priceErr  error
	listings  []valuation.Listing
	searchErr error
}

func (f *fakePrices) PredictPrice(ctx context.Context, q valuation.PriceQuery) (valuation.MarketPrice, error) {
	return f.price, f.priceErr
}

func (f *fakePrices) SearchComparables(ctx context.Context, q valuation.PriceQuery) ([]valuation.Listing, error) {
	return f.listings, f.searchErr
}

type fakeDecoder struct {
	decoded valuation.DecodedVehicle
	err     error
	calls   int
}

func (f *fakeDecoder) Decode(ctx context.Context, vin string) (valuation.DecodedVehicle, error) {
	f.calls++
	return f.decoded, f.err
}

type fakePDF struct {
	mu    sync.Mutex
	pages [][]byte
}

func (f *fakePDF) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, html)
	return []byte("%PDF-1.7 test"), nil
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "email-123", nil
}

func accordListings() []valuation.Listing {
	return []valuation.Listing{
		{ID: "a", Year: 2021, Make: "Honda", Model: "Accord", Price: 26000, Miles: 31000, Distance: 10},
		{ID: "b", Year: 2021, Make: "Honda", Model: "Accord", Price: 25500, Miles: 28000, Distance: 20},
		{ID: "c", Year: 2022, Make: "Honda", Model: "Accord", Price: 27000, Miles: 30000, Distance: 5},
	}
}

// testServices returns services on the fixed test clock with market data for the Accord
func testServices() Services {
	return Services{
		Prices: &fakePrices{
			price:    valuation.MarketPrice{Price: 27000, MSRP: 31000},
			listings: accordListings(),
		},
		Decoder: &fakeDecoder{decoded: valuation.DecodedVehicle{Year: 2021, Make: "Honda", Model: "Accord", Trim: "EX-L", BodyClass: "Sedan/Saloon"}},
		Now:     func() time.Time { return testutil.Now },
	}
}

// serve routes req through a mux holding pattern, behind session auth when db is set
func serve(db *sql.DB, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	if db != nil {
		h = middleware.RequireSession(db, h)
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func appraisalStatus(t *testing.T, db *sql.DB, id string) string {
	t.Helper()
	var status string
	if err := db.QueryRow("SELECT status FROM appraisal WHERE id = $1", id).Scan(&status); err != nil {
		t.Fatalf("status query failed: %v", err)
	}
	return status
}
