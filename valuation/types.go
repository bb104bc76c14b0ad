// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"context"
	"time"
)

// Damage severities, ordered from least to most severe
const (
	SeverityNone       = "none"
	SeverityMinor      = "minor"
	SeverityModerate   = "moderate"
	SeveritySevere     = "severe"
	SeverityStructural = "structural"
)

// Pre-accident value sources
const (
	SourceOwner       = "owner"
	SourceMarket      = "market"
	SourceComparables = "comparables"
	SourceHeuristic   = "heuristic"
	SourceBlended     = "blended"
)

// DamageArea is one damaged region of the vehicle as reported in the wizard
type DamageArea struct {
	Area     string `json:"area"`
	Severity string `json:"severity"`
}

// VehicleProfile is everything the calculations know about the vehicle and the accident
type VehicleProfile struct {
	VIN            string       `json:"vin,omitempty"`
	Year           int          `json:"year"`
	Make           string       `json:"make"`
	Model          string       `json:"model"`
	Trim           string       `json:"trim,omitempty"`
	Mileage        int          `json:"mileage"`
	State          string       `json:"state"`
	ZIP            string       `json:"zip,omitempty"`
	DeclaredValue  float64      `json:"declared_value,omitempty"`
	RepairCost     float64      `json:"repair_cost"`
	DamageAreas    []DamageArea `json:"damage_areas,omitempty"`
	Airbag         bool         `json:"airbag_deployed"`
	Structural     bool         `json:"structural_damage"`
	PriorAccidents int          `json:"prior_accidents"`
	AccidentDate   *time.Time   `json:"accident_date,omitempty"`
}

// Breakdown records each step of the diminished value multiplier chain
type Breakdown struct {
	PreAccidentValue  float64 `json:"pre_accident_value"`
	BaseLoss          float64 `json:"base_loss"`
	DamageSeverity    string  `json:"damage_severity"`
	DamageModifier    float64 `json:"damage_modifier"`
	MileageMultiplier float64 `json:"mileage_multiplier"`
	AgeYears          int     `json:"age_years"`
	AgeMultiplier     float64 `json:"age_multiplier"`
	RepairRatio       float64 `json:"repair_ratio"`
	StigmaPercent     float64 `json:"stigma_percent"`
	Formula17cAmount  float64 `json:"formula_17c_amount"`
	StigmaAmount      float64 `json:"stigma_amount"`
	BlendedAmount     float64 `json:"blended_amount"`
	PriorAccidentMult float64 `json:"prior_accident_multiplier"`
	StateMultiplier   float64 `json:"state_multiplier"`
	Clamped           bool    `json:"clamped"`
	Amount            float64 `json:"amount"`
}

// Estimate is a diminished value figure with a range around it
type Estimate struct {
	Amount           float64   `json:"amount"`
	Low              float64   `json:"low"`
	High             float64   `json:"high"`
	PreAccidentValue float64   `json:"pre_accident_value"`
	ValueSource      string    `json:"value_source"`
	Breakdown        Breakdown `json:"breakdown"`
}

// Listing is a vehicle for sale used as a comparable
type Listing struct {
	ID          string  `json:"id"`
	VIN         string  `json:"vin,omitempty"`
	Year        int     `json:"year"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Trim        string  `json:"trim,omitempty"`
	Price       float64 `json:"price"`
	Miles       int     `json:"miles"`
	Distance    float64 `json:"distance"`
	DealerCity  string  `json:"dealer_city,omitempty"`
	DealerState string  `json:"dealer_state,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// ComparableSet is the outcome of comparable selection
type ComparableSet struct {
	Listings     []Listing `json:"listings"`
	AveragePrice float64   `json:"average_price"`
	Considered   int       `json:"considered"`
}

// SourceValue is one candidate pre-accident value and the weight it received
type SourceValue struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Weight    float64 `json:"weight"`
	Available bool    `json:"available"`
	Error     string  `json:"error,omitempty"`
}

// DecodedVehicle is the subset of a VIN decode kept with a valuation
type DecodedVehicle struct {
	Year      int    `json:"year"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Trim      string `json:"trim,omitempty"`
	BodyClass string `json:"body_class,omitempty"`
}

// FullValuation is the paid valuation blending market data with the heuristics
type FullValuation struct {
	Estimate    Estimate        `json:"estimate"`
	Market      *MarketPrice    `json:"market,omitempty"`
	Comparables ComparableSet   `json:"comparables"`
	Sources     []SourceValue   `json:"sources"`
	Decoded     *DecodedVehicle `json:"decoded,omitempty"`
	ComputedAt  time.Time       `json:"computed_at"`
}

// PriceQuery describes the subject vehicle to a pricing provider
type PriceQuery struct {
	VIN     string
	Year    int
	Make    string
	Model   string
	Trim    string
	Mileage int
	ZIP     string
	Radius  int
	Rows    int
	// YearDelta widens the comparable search to Year±YearDelta
	YearDelta int
}

// MarketPrice is a provider's predicted retail price
type MarketPrice struct {
	Price float64 `json:"price"`
	MSRP  float64 `json:"msrp,omitempty"`
}

// PriceSource supplies market pricing for the full valuation
type PriceSource interface {
	PredictPrice(ctx context.Context, q PriceQuery) (MarketPrice, error)
	SearchComparables(ctx context.Context, q PriceQuery) ([]Listing, error)
}
