// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielhkuo/dv-appraisal/metrics"
)

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 4 << 20

// APIError is a non-2xx answer from an upstream API
type APIError struct {
	API    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.API, e.Status, e.Body)
}

// Executor performs GET requests against one upstream API, throttled and timed
type Executor struct {
	api     string
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// ExecutorOption allows configuring an Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the default timeout applied to requests.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = timeout }
}

// WithClient sets a custom HTTP client.
func WithClient(client *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = client }
}

// WithRateLimit throttles outgoing requests to perSecond with the given burst.
// perSecond <= 0 disables throttling.
func WithRateLimit(perSecond float64, burst int) ExecutorOption {
	return func(e *Executor) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// NewExecutor builds an Executor for the named API with a default client and timeout.
func NewExecutor(api string, opts ...ExecutorOption) *Executor {
	cfg := DefaultConfig()
	e := &Executor{
		api:     api,
		client:  New(cfg),
		timeout: cfg.Timeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// stripURL drops the request URL from transport errors since upstream
// credentials travel in the query string
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// GetJSON issues a GET to url and decodes a 2xx JSON body into v
func (e *Executor) GetJSON(ctx context.Context, rawURL string, v any) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", e.api, err)
		}
	}

	ctxWithTimeout := ctx
	cancel := func() {}
	if e.timeout > 0 {
		ctxWithTimeout, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", e.api, stripURL(err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		metrics.ObserveExternalCall(e.api, "error", time.Since(start))
		return fmt.Errorf("%s: request failed: %w", e.api, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.ObserveExternalCall(e.api, "error", time.Since(start))
		return fmt.Errorf("%s: read body: %w", e.api, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveExternalCall(e.api, "http_"+strconv.Itoa(resp.StatusCode), time.Since(start))
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return &APIError{API: e.api, Status: resp.StatusCode, Body: snippet}
	}
	metrics.ObserveExternalCall(e.api, "ok", time.Since(start))

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: decode response: %w", e.api, err)
	}
	return nil
}
