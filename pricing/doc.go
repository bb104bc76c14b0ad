// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pricing is the MarketCheck client used as the market price source of
a full valuation.

Two endpoints are used:

	GET /v2/predict/car/us/marketcheck_price?api_key=&vin=&miles=&zip=
	GET /v2/search/car/active?api_key=&year=&make=&model=&zip=&radius=&rows=

The first returns MarketCheck's predicted retail price (and MSRP) for a VIN;
the second returns active dealer listings which valuation.SelectComparables
narrows down to the closest matches.

The client never decides what to do with a failure. Without an API key every
call returns ErrNotConfigured, upstream non-2xx answers come back as
*httpclient.APIError, and ComputeFullValuation records the message on the
source and carries on with the remaining sources.

Requests go through an httpclient.Executor. main configures it with a
client-side rate limit so a burst of valuations stays inside the account's
quota.
*/
package pricing
