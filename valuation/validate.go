// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MinModelYear is the earliest model year we appraise
const MinModelYear = 1981

var stateCodePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// ValidationError collects per-field problems with a profile
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "invalid vehicle profile: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// KnownSeverity reports whether s is one of the damage severities
func KnownSeverity(s string) bool {
	switch s {
	case SeverityNone, SeverityMinor, SeverityModerate, SeveritySevere, SeverityStructural:
		return true
	}
	return false
}

// ValidateProfile checks the fields every calculation depends on.
// Returns nil or a *ValidationError.
func ValidateProfile(p VehicleProfile, asOf time.Time) error {
	var verr ValidationError

	maxYear := asOf.Year() + 1
	if p.Year < MinModelYear || p.Year > maxYear {
		verr.add("year", fmt.Sprintf("must be between %d and %d", MinModelYear, maxYear))
	}
	if strings.TrimSpace(p.Make) == "" {
		verr.add("make", "is required")
	}
	if strings.TrimSpace(p.Model) == "" {
		verr.add("model", "is required")
	}
	if p.Mileage < 0 {
		verr.add("mileage", "must not be negative")
	}
	if p.RepairCost < 0 {
		verr.add("repair_cost", "must not be negative")
	}
	if p.DeclaredValue < 0 {
		verr.add("declared_value", "must not be negative")
	}
	if p.PriorAccidents < 0 {
		verr.add("prior_accidents", "must not be negative")
	}
	if !stateCodePattern.MatchString(p.State) {
		verr.add("state", "must be a two-letter state code")
	}
	if p.AccidentDate != nil && p.AccidentDate.After(asOf) {
		verr.add("accident_date", "must not be in the future")
	}
	for i, d := range p.DamageAreas {
		if strings.TrimSpace(d.Area) == "" {
			verr.add(fmt.Sprintf("damage_areas[%d].area", i), "is required")
		}
		if !KnownSeverity(d.Severity) {
			verr.add(fmt.Sprintf("damage_areas[%d].severity", i), "must be one of none, minor, moderate, severe, structural")
		}
	}

	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
