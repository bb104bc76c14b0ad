// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func accordProfile() VehicleProfile {
	return VehicleProfile{
		Year:          2021,
		Make:          "Honda",
		Model:         "Accord",
		Mileage:       30000,
		State:         "TX",
		DeclaredValue: 25000,
		RepairCost:    5000,
		DamageAreas: []DamageArea{
			{Area: "rear bumper", Severity: SeverityMinor},
			{Area: "trunk", Severity: SeverityModerate},
		},
	}
}

func TestCalculateDiminishedValue_ModerateDamage(t *testing.T) {
	b := CalculateDiminishedValue(25000, accordProfile(), DefaultRules(), asOf)

	assert.Equal(t, SeverityModerate, b.DamageSeverity)
	assert.Equal(t, 0.5, b.DamageModifier)
	assert.Equal(t, 0.8, b.MileageMultiplier)
	assert.Equal(t, 3, b.AgeYears)
	assert.Equal(t, 0.9, b.AgeMultiplier)
	assert.Equal(t, 2500.0, b.BaseLoss)
	assert.Equal(t, 1000.0, b.Formula17cAmount)
	assert.Equal(t, 0.2, b.RepairRatio)
	assert.Equal(t, 0.12, b.StigmaPercent)
	assert.Equal(t, 2160.0, b.StigmaAmount)
	assert.Equal(t, 1696.0, b.BlendedAmount)
	assert.Equal(t, 1.0, b.StateMultiplier)
	assert.False(t, b.Clamped)
	assert.Equal(t, 1696.0, b.Amount)
}

func TestCalculateDiminishedValue_StructuralAirbagGeorgia(t *testing.T) {
	p := VehicleProfile{
		Year:       2023,
		Make:       "BMW",
		Model:      "X5",
		Mileage:    10000,
		State:      "ga",
		RepairCost: 30000,
		Structural: true,
		Airbag:     true,
	}

	b := CalculateDiminishedValue(60000, p, DefaultRules(), asOf)

	assert.Equal(t, SeverityStructural, b.DamageSeverity)
	assert.Equal(t, 6000.0, b.Formula17cAmount)
	assert.Equal(t, 0.33, b.StigmaPercent)
	assert.Equal(t, 19800.0, b.StigmaAmount)
	assert.Equal(t, 14280.0, b.BlendedAmount)
	assert.Equal(t, 1.1, b.StateMultiplier)
	assert.Equal(t, 15708.0, b.Amount)
}

func TestCalculateDiminishedValue_PriorAccidents(t *testing.T) {
	tests := []struct {
		name  string
		prior int
		want  float64
	}{
		{"none", 0, 1},
		{"one", 1, 0.75},
		{"two", 2, 0.5625},
		{"three hits floor", 3, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := accordProfile()
			p.PriorAccidents = tt.prior
			b := CalculateDiminishedValue(25000, p, DefaultRules(), asOf)
			assert.InDelta(t, tt.want, b.PriorAccidentMult, 1e-9)
			assert.InDelta(t, 1696.0*tt.want, b.Amount, 0.5)
		})
	}
}

func TestCalculateDiminishedValue_Clamp(t *testing.T) {
	r := DefaultRules()
	r.MaxLossFraction = 0.05

	b := CalculateDiminishedValue(25000, accordProfile(), r, asOf)

	assert.True(t, b.Clamped)
	assert.Equal(t, 1250.0, b.Amount)
}

func TestCalculateDiminishedValue_FractionalCapRoundsDown(t *testing.T) {
	r := DefaultRules()
	r.MaxLossFraction = 0.05

	// cap is 1250.5
	b := CalculateDiminishedValue(25010, accordProfile(), r, asOf)

	assert.True(t, b.Clamped)
	assert.Equal(t, 1250.0, b.Amount)
	assert.LessOrEqual(t, b.Amount, 25010*r.MaxLossFraction)
}

func TestCalculateDiminishedValue_HighMileageKeepsStigma(t *testing.T) {
	p := accordProfile()
	p.Mileage = 120000

	b := CalculateDiminishedValue(25000, p, DefaultRules(), asOf)

	assert.Equal(t, 0.0, b.MileageMultiplier)
	assert.Equal(t, 0.0, b.Formula17cAmount)
	// 25000 * 0.12 * 0.10 floor * 0.9 age
	assert.Equal(t, 270.0, b.StigmaAmount)
	assert.Equal(t, 162.0, b.Amount)
}

func TestCalculateDiminishedValue_NoDamage(t *testing.T) {
	p := accordProfile()
	p.DamageAreas = nil
	p.RepairCost = 0

	b := CalculateDiminishedValue(25000, p, DefaultRules(), asOf)

	assert.Equal(t, SeverityNone, b.DamageSeverity)
	assert.Equal(t, 0.0, b.StigmaPercent)
	assert.Equal(t, 0.0, b.Amount)
}

func TestCalculateDiminishedValue_NonPositiveValue(t *testing.T) {
	for _, v := range []float64{0, -100} {
		b := CalculateDiminishedValue(v, accordProfile(), DefaultRules(), asOf)
		assert.Equal(t, 0.0, b.Amount)
		assert.Equal(t, 0.0, b.PreAccidentValue)
	}
}

func TestCalculateDiminishedValue_NegativeRepairCostIgnored(t *testing.T) {
	p := accordProfile()
	p.RepairCost = -500

	b := CalculateDiminishedValue(25000, p, DefaultRules(), asOf)

	assert.Equal(t, 0.0, b.RepairRatio)
	assert.Equal(t, 0.08, b.StigmaPercent)
}

func TestAgeYears_UsesAccidentDate(t *testing.T) {
	p := accordProfile()
	accident := time.Date(2022, time.March, 3, 0, 0, 0, 0, time.UTC)
	p.AccidentDate = &accident

	assert.Equal(t, 1, AgeYears(p, asOf))

	p.Year = 2025
	assert.Equal(t, 0, AgeYears(p, asOf), "next model year is never negative")
}

func TestComputeDVAmount_DeclaredValue(t *testing.T) {
	est := ComputeDVAmount(accordProfile(), DefaultRules(), asOf)

	assert.Equal(t, SourceOwner, est.ValueSource)
	assert.Equal(t, 25000.0, est.PreAccidentValue)
	assert.Equal(t, 1696.0, est.Amount)
	assert.Equal(t, 1442.0, est.Low)
	assert.Equal(t, 1950.0, est.High)
}

func TestComputeDVAmount_HeuristicValue(t *testing.T) {
	p := accordProfile()
	p.DeclaredValue = 0

	est := ComputeDVAmount(p, DefaultRules(), asOf)

	assert.Equal(t, SourceHeuristic, est.ValueSource)
	assert.Equal(t, 24698.0, est.PreAccidentValue)
	assert.LessOrEqual(t, est.Low, est.Amount)
	assert.GreaterOrEqual(t, est.High, est.Amount)
}

func TestComputeDVAmount_RangeNeverExceedsCap(t *testing.T) {
	r := DefaultRules()
	r.MaxLossFraction = 0.05

	est := ComputeDVAmount(accordProfile(), r, asOf)

	assert.Equal(t, 1250.0, est.Amount)
	assert.Equal(t, 1250.0, est.High)
}

func TestHeuristicValue(t *testing.T) {
	r := DefaultRules()

	tests := []struct {
		name string
		p    VehicleProfile
		want float64
	}{
		{
			name: "three year old economy car under expected miles",
			p:    VehicleProfile{Year: 2021, Make: "Honda", Mileage: 30000},
			want: 24698,
		},
		{
			name: "new luxury car",
			p:    VehicleProfile{Year: 2024, Make: "lexus", Mileage: 12000},
			want: 55000,
		},
		{
			name: "old high mileage car hits residual floor",
			p:    VehicleProfile{Year: 1995, Make: "Ford", Mileage: 400000},
			want: 3500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicValue(tt.p, r, asOf))
		})
	}
}

func TestDamageSeverity(t *testing.T) {
	p := VehicleProfile{DamageAreas: []DamageArea{
		{Area: "hood", Severity: SeveritySevere},
		{Area: "fender", Severity: SeverityMinor},
	}}
	assert.Equal(t, SeveritySevere, DamageSeverity(p))

	p.Structural = true
	assert.Equal(t, SeverityStructural, DamageSeverity(p))

	require.Equal(t, SeverityNone, DamageSeverity(VehicleProfile{}))
}

func TestCalculateDiminishedValue_Deterministic(t *testing.T) {
	r := DefaultRules()
	first := CalculateDiminishedValue(31000, accordProfile(), r, asOf)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CalculateDiminishedValue(31000, accordProfile(), r, asOf))
	}
}
