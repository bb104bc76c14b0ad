// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Band maps values strictly below Upper to Multiplier
type Band struct {
	Upper      float64 `yaml:"upper"`
	Multiplier float64 `yaml:"multiplier"`
}

// BandTable is an ordered set of bands with a fallback for values past the last band
type BandTable struct {
	Bands  []Band  `yaml:"bands"`
	Beyond float64 `yaml:"beyond"`
}

// Lookup returns the multiplier for v
func (t BandTable) Lookup(v float64) float64 {
	for _, b := range t.Bands {
		if v < b.Upper {
			return b.Multiplier
		}
	}
	return t.Beyond
}

type MethodWeights struct {
	Formula17c float64 `yaml:"formula_17c"`
	Stigma     float64 `yaml:"stigma"`
}

type HeuristicRules struct {
	BaseNewPrice          float64  `yaml:"base_new_price"`
	LuxuryBaseNewPrice    float64  `yaml:"luxury_base_new_price"`
	LuxuryMakes           []string `yaml:"luxury_makes"`
	FirstYearDepreciation float64  `yaml:"first_year_depreciation"`
	AnnualDepreciation    float64  `yaml:"annual_depreciation"`
	ResidualFloor         float64  `yaml:"residual_floor"`
	AnnualMiles           float64  `yaml:"annual_miles"`
	ExcessMileRate        float64  `yaml:"excess_mile_rate"`
	LowMileageCreditCap   float64  `yaml:"low_mileage_credit_cap"`
}

type SourceWeights struct {
	Owner       float64 `yaml:"owner"`
	Market      float64 `yaml:"market"`
	Comparables float64 `yaml:"comparables"`
}

type ComparableRules struct {
	Count        int     `yaml:"count"`
	MaxYearDelta int     `yaml:"max_year_delta"`
	MileageUnit  float64 `yaml:"mileage_unit"`
	YearWeight   float64 `yaml:"year_weight"`
	DistanceUnit float64 `yaml:"distance_unit"`
	SearchRadius int     `yaml:"search_radius"`
	SearchRows   int     `yaml:"search_rows"`
}

// Rules holds every tunable table used by the calculations
type Rules struct {
	BaseLossCap         float64            `yaml:"base_loss_cap"`
	MaxLossFraction     float64            `yaml:"max_loss_fraction"`
	RangeSpread         float64            `yaml:"range_spread"`
	DamageModifiers     map[string]float64 `yaml:"damage_modifiers"`
	Mileage             BandTable          `yaml:"mileage"`
	Age                 BandTable          `yaml:"age"`
	Stigma              BandTable          `yaml:"stigma"`
	StigmaMileageFloor  float64            `yaml:"stigma_mileage_floor"`
	AirbagPremium       float64            `yaml:"airbag_premium"`
	StructuralPremium   float64            `yaml:"structural_premium"`
	PriorAccidentFactor float64            `yaml:"prior_accident_factor"`
	PriorAccidentFloor  float64            `yaml:"prior_accident_floor"`
	MethodWeights       MethodWeights      `yaml:"method_weights"`
	StateAdjustments    map[string]float64 `yaml:"state_adjustments"`
	Heuristic           HeuristicRules     `yaml:"heuristic"`
	SourceWeights       SourceWeights      `yaml:"source_weights"`
	Comparables         ComparableRules    `yaml:"comparables"`
}

var ErrInvalidRules = errors.New("invalid valuation rules")

// DefaultRules returns the embedded rule set
func DefaultRules() Rules {
	r, err := parseRules(defaultRulesYAML, Rules{})
	if err != nil {
		// the embedded file is covered by tests
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return r
}

// LoadRules reads an override file on top of the defaults.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return parseRules(data, DefaultRules())
}

func parseRules(data []byte, base Rules) (Rules, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil {
		return Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := base.Validate(); err != nil {
		return Rules{}, err
	}
	return base, nil
}

// Validate checks band ordering and weight sanity
func (r Rules) Validate() error {
	for name, t := range map[string]BandTable{"mileage": r.Mileage, "age": r.Age, "stigma": r.Stigma} {
		for i := 1; i < len(t.Bands); i++ {
			if t.Bands[i].Upper <= t.Bands[i-1].Upper {
				return fmt.Errorf("%w: %s bands must be strictly increasing", ErrInvalidRules, name)
			}
		}
	}
	for _, sev := range []string{SeverityNone, SeverityMinor, SeverityModerate, SeveritySevere, SeverityStructural} {
		if _, ok := r.DamageModifiers[sev]; !ok {
			return fmt.Errorf("%w: missing damage modifier %q", ErrInvalidRules, sev)
		}
	}
	if r.MethodWeights.Formula17c < 0 || r.MethodWeights.Stigma < 0 ||
		r.MethodWeights.Formula17c+r.MethodWeights.Stigma == 0 {
		return fmt.Errorf("%w: method weights must be non-negative and not both zero", ErrInvalidRules)
	}
	if r.SourceWeights.Owner < 0 || r.SourceWeights.Market < 0 || r.SourceWeights.Comparables < 0 {
		return fmt.Errorf("%w: source weights must be non-negative", ErrInvalidRules)
	}
	if r.Comparables.Count <= 0 {
		return fmt.Errorf("%w: comparables.count must be positive", ErrInvalidRules)
	}
	if r.MaxLossFraction <= 0 || r.MaxLossFraction > 1 {
		return fmt.Errorf("%w: max_loss_fraction must be in (0, 1]", ErrInvalidRules)
	}
	if r.RangeSpread < 0 || r.RangeSpread >= 1 {
		return fmt.Errorf("%w: range_spread must be in [0, 1)", ErrInvalidRules)
	}
	return nil
}

// StateMultiplier returns the adjustment for a two-letter state code, 1.0 when unlisted
func (r Rules) StateMultiplier(state string) float64 {
	if m, ok := r.StateAdjustments[strings.ToUpper(state)]; ok {
		return m
	}
	return 1.0
}

// IsLuxury reports whether mk uses the luxury base price
func (r Rules) IsLuxury(mk string) bool {
	for _, m := range r.Heuristic.LuxuryMakes {
		if strings.EqualFold(m, mk) {
			return true
		}
	}
	return false
}
