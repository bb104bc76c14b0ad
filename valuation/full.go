// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// ComputeFullValuation blends market pricing with the owner's declared value
// to settle the pre-accident value, then runs the diminished value chain.
// A failing price source is recorded and skipped; only an invalid profile or
// a cancelled context is an error.
func ComputeFullValuation(ctx context.Context, p VehicleProfile, src PriceSource, r Rules, asOf time.Time) (FullValuation, error) {
	if err := ValidateProfile(p, asOf); err != nil {
		return FullValuation{}, err
	}

	q := PriceQuery{
		VIN:     p.VIN,
		Year:    p.Year,
		Make:    p.Make,
		Model:   p.Model,
		Trim:    p.Trim,
		Mileage: p.Mileage,
		ZIP:     p.ZIP,
		Radius:  r.Comparables.SearchRadius,
		Rows:    r.Comparables.SearchRows,

		YearDelta: r.Comparables.MaxYearDelta,
	}

	var market MarketPrice
	var listings []Listing
	var marketErr, compErr error
	if src != nil {
		// Goroutines never return errors so one source failing does not cancel the other
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			market, marketErr = src.PredictPrice(gctx, q)
			return nil
		})
		g.Go(func() error {
			listings, compErr = src.SearchComparables(gctx, q)
			return nil
		})
		_ = g.Wait()
	} else {
		marketErr = errNoSource
		compErr = errNoSource
	}
	if err := ctx.Err(); err != nil {
		return FullValuation{}, fmt.Errorf("valuation cancelled: %w", err)
	}

	fv := FullValuation{ComputedAt: asOf}

	owner := SourceValue{Name: SourceOwner, Weight: r.SourceWeights.Owner}
	if p.DeclaredValue > 0 {
		owner.Value, owner.Available = p.DeclaredValue, true
	} else {
		owner.Error = "not declared"
	}

	mkt := SourceValue{Name: SourceMarket, Weight: r.SourceWeights.Market}
	switch {
	case marketErr != nil:
		mkt.Error = "market price unavailable"
		slog.Warn("market price unavailable", "error", marketErr, "vin", p.VIN)
	case market.Price <= 0:
		mkt.Error = "no price returned"
	default:
		m := market
		fv.Market = &m
		mkt.Value, mkt.Available = market.Price, true
	}

	comps := SourceValue{Name: SourceComparables, Weight: r.SourceWeights.Comparables}
	if compErr != nil {
		comps.Error = "comparable listings unavailable"
		slog.Warn("comparable search unavailable", "error", compErr, "make", p.Make, "model", p.Model)
	} else {
		fv.Comparables = SelectComparables(p, listings, r)
		if len(fv.Comparables.Listings) > 0 {
			comps.Value, comps.Available = fv.Comparables.AveragePrice, true
		} else {
			comps.Error = "no comparable listings"
		}
	}
	if fv.Comparables.Listings == nil {
		fv.Comparables.Listings = []Listing{}
	}

	fv.Sources = []SourceValue{owner, mkt, comps}
	value, source := blendSources(fv.Sources)
	if value <= 0 {
		value, source = HeuristicValue(p, r, asOf), SourceHeuristic
		fv.Sources = append(fv.Sources, SourceValue{Name: SourceHeuristic, Value: value, Weight: 1, Available: true})
	}

	fv.Estimate = newEstimate(value, source, CalculateDiminishedValue(value, p, r, asOf), r)
	return fv, nil
}

var errNoSource = errors.New("no price source configured")

// blendSources returns the weighted mean of the available sources with the
// weights renormalised over what is available. The weights in srcs are
// rewritten to the effective ones. The label is the single source used, or
// SourceBlended.
func blendSources(srcs []SourceValue) (float64, string) {
	var weightSum float64
	used := 0
	label := ""
	for _, s := range srcs {
		if s.Available && s.Weight > 0 {
			weightSum += s.Weight
			used++
			label = s.Name
		}
	}
	if weightSum == 0 {
		for i := range srcs {
			srcs[i].Weight = 0
		}
		return 0, ""
	}

	var value float64
	for i := range srcs {
		if srcs[i].Available && srcs[i].Weight > 0 {
			srcs[i].Weight = srcs[i].Weight / weightSum
			value += srcs[i].Value * srcs[i].Weight
		} else {
			srcs[i].Weight = 0
		}
		srcs[i].Weight = math.Round(srcs[i].Weight*10000) / 10000
	}
	if used > 1 {
		label = SourceBlended
	}
	return math.Round(value), label
}
