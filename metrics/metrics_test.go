// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /health", "200"))

	ObserveHTTPRequest("GET", "GET /health", 200, 5*time.Millisecond)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /health", "200"))
	assert.Equal(t, before+1, after)
}

func TestObserveHTTPRequest_EmptyRoute(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404"))

	ObserveHTTPRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestCounters(t *testing.T) {
	ObserveValuation("full", "blended", 1696)
	IncReportRendered("report", "pdf")
	IncEmail("sent")
	IncRateLimited()
	ObserveExternalCall("marketcheck", "ok", 100*time.Millisecond)

	assert.GreaterOrEqual(t, testutil.ToFloat64(valuationsTotal.WithLabelValues("full", "blended")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(reportsRenderedTotal.WithLabelValues("report", "pdf")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(emailsTotal.WithLabelValues("sent")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(rateLimitedTotal), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(externalCallsTotal.WithLabelValues("marketcheck", "ok")), 1.0)
}

func TestHandler_ExposesNamespace(t *testing.T) {
	IncEmail("disabled")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dvappraisal_mail_sent_total")
}
