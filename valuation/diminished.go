// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"math"
	"time"
)

var severityRank = map[string]int{
	SeverityNone:       0,
	SeverityMinor:      1,
	SeverityModerate:   2,
	SeveritySevere:     3,
	SeverityStructural: 4,
}

// DamageSeverity returns the worst severity across the profile's damage areas.
// The structural flag always wins.
func DamageSeverity(p VehicleProfile) string {
	if p.Structural {
		return SeverityStructural
	}
	worst := SeverityNone
	for _, d := range p.DamageAreas {
		if severityRank[d.Severity] > severityRank[worst] {
			worst = d.Severity
		}
	}
	return worst
}

// AgeYears is the vehicle's age in whole model years at the accident date,
// or at asOf when no accident date was given. Never negative.
func AgeYears(p VehicleProfile, asOf time.Time) int {
	ref := asOf
	if p.AccidentDate != nil {
		ref = *p.AccidentDate
	}
	age := ref.Year() - p.Year
	if age < 0 {
		return 0
	}
	return age
}

// CalculateDiminishedValue runs the multiplier chain against a known
// pre-accident value and returns every intermediate step
func CalculateDiminishedValue(value float64, p VehicleProfile, r Rules, asOf time.Time) Breakdown {
	b := Breakdown{
		PreAccidentValue:  roundCents(value),
		DamageSeverity:    DamageSeverity(p),
		PriorAccidentMult: 1,
		StateMultiplier:   r.StateMultiplier(p.State),
	}
	if value <= 0 {
		b.PreAccidentValue = 0
		return b
	}

	repair := math.Max(p.RepairCost, 0)
	miles := math.Max(float64(p.Mileage), 0)

	b.DamageModifier = r.DamageModifiers[b.DamageSeverity]
	b.MileageMultiplier = r.Mileage.Lookup(miles)
	b.AgeYears = AgeYears(p, asOf)
	b.AgeMultiplier = r.Age.Lookup(float64(b.AgeYears))

	// 17c: base loss x damage x mileage
	b.BaseLoss = value * r.BaseLossCap
	b.Formula17cAmount = b.BaseLoss * b.DamageModifier * b.MileageMultiplier

	// Stigma: repair ratio band plus premiums, scaled by mileage and age.
	// A vehicle with no damage and no repair has no stigma.
	b.RepairRatio = repair / value
	if repair > 0 || b.DamageSeverity != SeverityNone {
		b.StigmaPercent = r.Stigma.Lookup(b.RepairRatio)
		if p.Airbag {
			b.StigmaPercent += r.AirbagPremium
		}
		if b.DamageSeverity == SeverityStructural {
			b.StigmaPercent += r.StructuralPremium
		}
	}
	stigmaMileage := math.Max(b.MileageMultiplier, r.StigmaMileageFloor)
	b.StigmaAmount = value * b.StigmaPercent * stigmaMileage * b.AgeMultiplier

	w17c, wStigma := r.MethodWeights.Formula17c, r.MethodWeights.Stigma
	b.BlendedAmount = (w17c*b.Formula17cAmount + wStigma*b.StigmaAmount) / (w17c + wStigma)

	if p.PriorAccidents > 0 {
		b.PriorAccidentMult = math.Max(math.Pow(r.PriorAccidentFactor, float64(p.PriorAccidents)), r.PriorAccidentFloor)
	}

	amount := math.Round(b.BlendedAmount * b.PriorAccidentMult * b.StateMultiplier)
	// whole dollars never exceed the cap
	if maxLoss := math.Floor(value * r.MaxLossFraction); amount > maxLoss {
		amount = maxLoss
		b.Clamped = true
	}
	if amount < 0 {
		amount = 0
	}

	b.BaseLoss = roundCents(b.BaseLoss)
	b.RepairRatio = math.Round(b.RepairRatio*10000) / 10000
	b.StigmaPercent = math.Round(b.StigmaPercent*10000) / 10000
	b.Formula17cAmount = roundCents(b.Formula17cAmount)
	b.StigmaAmount = roundCents(b.StigmaAmount)
	b.BlendedAmount = roundCents(b.BlendedAmount)
	b.Amount = amount
	return b
}

// ComputeDVAmount produces the free preview estimate. It never touches the
// network: the pre-accident value is the owner's declared value when given,
// otherwise the depreciation heuristic.
func ComputeDVAmount(p VehicleProfile, r Rules, asOf time.Time) Estimate {
	value, source := p.DeclaredValue, SourceOwner
	if value <= 0 {
		value, source = HeuristicValue(p, r, asOf), SourceHeuristic
	}
	return newEstimate(value, source, CalculateDiminishedValue(value, p, r, asOf), r)
}

// HeuristicValue estimates the pre-accident retail value from age and
// mileage alone
func HeuristicValue(p VehicleProfile, r Rules, asOf time.Time) float64 {
	h := r.Heuristic
	base := h.BaseNewPrice
	if r.IsLuxury(p.Make) {
		base = h.LuxuryBaseNewPrice
	}

	age := AgeYears(p, asOf)
	value := base
	if age >= 1 {
		value = base * (1 - h.FirstYearDepreciation) * math.Pow(1-h.AnnualDepreciation, float64(age-1))
	}

	expected := h.AnnualMiles * float64(max(age, 1))
	adjust := (expected - float64(p.Mileage)) * h.ExcessMileRate
	if limit := value * h.LowMileageCreditCap; adjust > limit {
		adjust = limit
	}
	value += adjust

	if floor := base * h.ResidualFloor; value < floor {
		value = floor
	}
	return math.Round(value)
}

func newEstimate(value float64, source string, b Breakdown, r Rules) Estimate {
	high := math.Round(b.Amount * (1 + r.RangeSpread))
	if limit := math.Floor(value * r.MaxLossFraction); high > limit {
		high = math.Max(limit, b.Amount)
	}
	return Estimate{
		Amount:           b.Amount,
		Low:              math.Round(b.Amount * (1 - r.RangeSpread)),
		High:             high,
		PreAccidentValue: b.PreAccidentValue,
		ValueSource:      source,
		Breakdown:        b,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
