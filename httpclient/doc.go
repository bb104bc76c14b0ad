// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package httpclient is the outbound HTTP layer used by the MarketCheck and
NHTSA clients.

New builds an *http.Client with explicit dial, TLS, header and idle timeouts.
Executor wraps that client for one named upstream API and adds:

  - a per-request timeout layered on the caller's context
  - optional token-bucket throttling (golang.org/x/time/rate) so a burst of
    valuations cannot exhaust a paid API quota
  - bounded body reads
  - metrics per API and outcome
  - *APIError for any non-2xx answer, carrying the status and a body snippet

Only GET with a JSON response is supported because that is all the upstream
APIs need.
*/
package httpclient
