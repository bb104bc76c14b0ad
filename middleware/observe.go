// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// Observe tags each request with an ID, stores a logger carrying it in the
// request context and records request metrics by route pattern.
func Observe(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			ctx := logging.WithLogger(r.Context(), logger.With("request_id", reqID))
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// The mux fills r.Pattern on the request it was handed
			metrics.ObserveHTTPRequest(r.Method, r.Pattern, rec.code(), time.Since(start))
		})
	}
}
