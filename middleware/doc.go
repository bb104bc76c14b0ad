// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /appraisals", middleware.WithLogging(handler))

Logs request start at debug level and completion (method, path, route,
status, duration_ms) through the request's context logger. 5xx responses
are logged at error level.

# Observability

Observe tags every request with an X-Request-ID (kept from the client when
it is at most 64 bytes), stores a logger carrying the ID in the request
context for logging.FromContext, and records request metrics by route
pattern.

# Sessions

RequireSession accepts a bearer token or the dv_session cookie, looks the
hashed token up and rejects missing or expired sessions with 401:

	mux.HandleFunc("GET /auth/me", middleware.RequireSession(db, h.Me))

Handlers read the caller with UserFromContext(r.Context()).

# Rate Limiting and Security

NewRateLimiter keeps a token bucket per client IP and answers 429 with
Retry-After once a client runs dry. Idle buckets are swept by a background
goroutine that Stop ends. SecurityHeaders sets the browser hardening headers
(plus HSTS behind HTTPS) and Compression gzips large responses.

Chain composes them so the first middleware listed is the outermost:

	h := middleware.Chain(mux, middleware.RealIP(proxies), middleware.Observe(logger),
		limiter.Middleware, middleware.CORS(origins))

# CORS Middleware

Enable cross-origin requests from the configured frontend origins. A listed
origin is echoed and credentials are allowed so the session cookie travels.
Unlisted origins get no CORS headers and their preflights a 403. Allows
methods GET, POST, PUT, DELETE, OPTIONS with headers Content-Type and
Authorization.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.FieldErrorResponse(w, "Invalid vehicle profile", fields)

Parse JSON request bodies (capped at 1 MiB):

	var req models.VehicleStepRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

RealIP resolves the client address once. X-Forwarded-For and X-Real-IP
are read only when the peer sits in a trusted proxy prefix, so a direct
client cannot pick its own address:

	ip := middleware.GetClientIP(r)

Used as the rate limit key and, hashed, on stored sessions.
*/
package middleware
