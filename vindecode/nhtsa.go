// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vindecode

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

const DefaultBaseURL = "https://vpic.nhtsa.dot.gov"

// ErrDecodeFailed means vPIC answered but could not decode the VIN
var ErrDecodeFailed = errors.New("vin decode failed")

type Client struct {
	baseURL string
	exec    *httpclient.Executor
}

func NewClient(baseURL string, opts ...httpclient.ExecutorOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    httpclient.NewExecutor("nhtsa", opts...),
	}
}

type decodeResponse struct {
	Count   int            `json:"Count"`
	Message string         `json:"Message"`
	Results []decodeResult `json:"Results"`
}

type decodeResult struct {
	Make      string `json:"Make"`
	Model     string `json:"Model"`
	ModelYear string `json:"ModelYear"`
	Trim      string `json:"Trim"`
	BodyClass string `json:"BodyClass"`
	ErrorCode string `json:"ErrorCode"`
	ErrorText string `json:"ErrorText"`
}

// Decode validates vin locally, then asks vPIC for year, make, model, trim and body class
func (c *Client) Decode(ctx context.Context, vin string) (valuation.DecodedVehicle, error) {
	vin = Normalize(vin)
	if err := ValidateVIN(vin); err != nil {
		return valuation.DecodedVehicle{}, err
	}

	var resp decodeResponse
	endpoint := c.baseURL + "/api/vehicles/DecodeVinValues/" + url.PathEscape(vin) + "?format=json"
	if err := c.exec.GetJSON(ctx, endpoint, &resp); err != nil {
		return valuation.DecodedVehicle{}, err
	}
	if len(resp.Results) == 0 {
		return valuation.DecodedVehicle{}, fmt.Errorf("%w: empty result set", ErrDecodeFailed)
	}

	res := resp.Results[0]
	// ErrorCode is a comma separated list such as "0" or "1,11"
	code := strings.TrimSpace(strings.SplitN(res.ErrorCode, ",", 2)[0])
	if code != "" && code != "0" {
		return valuation.DecodedVehicle{}, fmt.Errorf("%w: %s", ErrDecodeFailed, res.ErrorText)
	}

	year, _ := strconv.Atoi(strings.TrimSpace(res.ModelYear))
	return valuation.DecodedVehicle{
		Year:      year,
		Make:      titleCase(res.Make),
		Model:     strings.TrimSpace(res.Model),
		Trim:      strings.TrimSpace(res.Trim),
		BodyClass: strings.TrimSpace(res.BodyClass),
	}, nil
}

// titleCase turns vPIC's "MERCEDES-BENZ" into "Mercedes-Benz"
func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		upper = c == ' ' || c == '-'
	}
	return string(b)
}
