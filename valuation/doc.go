// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package valuation computes diminished value (DV) estimates.

# Multiplier Chain

CalculateDiminishedValue takes a pre-accident value and blends two methods:

	17c    = value × base_loss_cap × damage_modifier × mileage_multiplier
	stigma = value × stigma_percent × max(mileage_multiplier, floor) × age_multiplier
	dv     = (w17c×17c + wStigma×stigma) / (w17c + wStigma)
	         × prior_accident_multiplier × state_multiplier

The result is clamped to max_loss_fraction of the value and rounded to whole
dollars. Each step is returned in a Breakdown so reports can show the work.

# Estimates

	est := valuation.ComputeDVAmount(profile, rules, time.Now())

ComputeDVAmount is the free wizard preview: the owner's declared value, or
HeuristicValue when none was given. No network access.

	fv, err := valuation.ComputeFullValuation(ctx, profile, priceSource, rules, time.Now())

ComputeFullValuation asks a PriceSource for a predicted market price and
for comparable listings (concurrently), picks the closest comparables with
SelectComparables, and blends owner, market and comparable values with the
configured source weights. Unavailable sources are skipped and their weight
is redistributed.

# Rules

All tables (mileage, age and repair-ratio bands, damage modifiers, state
adjustments, weights) live in rules.yaml, embedded as DefaultRules. LoadRules
overlays an operator-supplied file on the defaults.
*/
package valuation
