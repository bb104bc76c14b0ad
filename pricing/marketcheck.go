// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/danielhkuo/dv-appraisal/httpclient"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

const (
	DefaultBaseURL = "https://mc-api.marketcheck.com"
	apiName        = "marketcheck"
)

var (
	// ErrNotConfigured is returned by every call when no API key is set
	ErrNotConfigured = errors.New("marketcheck: api key not configured")
	// ErrVINRequired means price prediction was asked for a vehicle without a VIN
	ErrVINRequired = errors.New("marketcheck: vin required for price prediction")
)

// Client talks to the MarketCheck REST API and implements valuation.PriceSource
type Client struct {
	apiKey  string
	baseURL string
	exec    *httpclient.Executor
}

var _ valuation.PriceSource = (*Client)(nil)

// NewClient builds a client. An empty baseURL means DefaultBaseURL.
func NewClient(apiKey, baseURL string, opts ...httpclient.ExecutorOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    httpclient.NewExecutor(apiName, opts...),
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type predictResponse struct {
	MarketcheckPrice float64 `json:"marketcheck_price"`
	MSRP             float64 `json:"msrp"`
}

// PredictPrice asks for MarketCheck's retail price prediction for a VIN at the given mileage and ZIP
func (c *Client) PredictPrice(ctx context.Context, q valuation.PriceQuery) (valuation.MarketPrice, error) {
	if !c.Configured() {
		return valuation.MarketPrice{}, ErrNotConfigured
	}
	if q.VIN == "" {
		return valuation.MarketPrice{}, ErrVINRequired
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("vin", strings.ToUpper(q.VIN))
	params.Set("miles", strconv.Itoa(q.Mileage))
	if q.ZIP != "" {
		params.Set("zip", q.ZIP)
	}

	var resp predictResponse
	if err := c.exec.GetJSON(ctx, c.baseURL+"/v2/predict/car/us/marketcheck_price?"+params.Encode(), &resp); err != nil {
		return valuation.MarketPrice{}, err
	}
	if resp.MarketcheckPrice < 0 {
		return valuation.MarketPrice{}, fmt.Errorf("marketcheck: negative price %.2f", resp.MarketcheckPrice)
	}

	return valuation.MarketPrice{Price: resp.MarketcheckPrice, MSRP: resp.MSRP}, nil
}

type searchResponse struct {
	NumFound int             `json:"num_found"`
	Listings []searchListing `json:"listings"`
}

type searchListing struct {
	ID     string  `json:"id"`
	VIN    string  `json:"vin"`
	Price  float64 `json:"price"`
	Miles  int     `json:"miles"`
	Dist   float64 `json:"dist"`
	VDPURL string  `json:"vdp_url"`
	Build  struct {
		Year  int    `json:"year"`
		Make  string `json:"make"`
		Model string `json:"model"`
		Trim  string `json:"trim"`
	} `json:"build"`
	Dealer struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"dealer"`
}

// yearRange renders year±delta as the comma list the search API accepts
func yearRange(year, delta int) string {
	years := make([]string, 0, 2*max(delta, 0)+1)
	for y := year - max(delta, 0); y <= year+max(delta, 0); y++ {
		years = append(years, strconv.Itoa(y))
	}
	return strings.Join(years, ",")
}

// SearchComparables lists active inventory for the same make and model
// within the year window near the ZIP
func (c *Client) SearchComparables(ctx context.Context, q valuation.PriceQuery) ([]valuation.Listing, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("year", yearRange(q.Year, q.YearDelta))
	params.Set("make", strings.ToLower(q.Make))
	params.Set("model", strings.ToLower(q.Model))
	if q.ZIP != "" {
		params.Set("zip", q.ZIP)
		if q.Radius > 0 {
			params.Set("radius", strconv.Itoa(q.Radius))
		}
	}
	if q.Rows > 0 {
		params.Set("rows", strconv.Itoa(q.Rows))
	}

	var resp searchResponse
	if err := c.exec.GetJSON(ctx, c.baseURL+"/v2/search/car/active?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	listings := make([]valuation.Listing, 0, len(resp.Listings))
	for _, l := range resp.Listings {
		listings = append(listings, valuation.Listing{
			ID:          l.ID,
			VIN:         l.VIN,
			Year:        l.Build.Year,
			Make:        l.Build.Make,
			Model:       l.Build.Model,
			Trim:        l.Build.Trim,
			Price:       l.Price,
			Miles:       l.Miles,
			Distance:    l.Dist,
			DealerCity:  l.Dealer.City,
			DealerState: l.Dealer.State,
			URL:         l.VDPURL,
		})
	}
	return listings, nil
}
