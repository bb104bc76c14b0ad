// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"math"
	"sort"
	"strings"
)

type scoredListing struct {
	listing Listing
	score   float64
}

// SelectComparables picks the listings closest to the subject vehicle and
// averages their asking price
func SelectComparables(subject VehicleProfile, listings []Listing, r Rules) ComparableSet {
	cr := r.Comparables
	seenVIN := make(map[string]bool)
	candidates := make([]scoredListing, 0, len(listings))

	for _, l := range listings {
		if l.Price <= 0 || l.Miles <= 0 {
			continue
		}
		yearDelta := l.Year - subject.Year
		if yearDelta < 0 {
			yearDelta = -yearDelta
		}
		if yearDelta > cr.MaxYearDelta {
			continue
		}
		if subject.Make != "" && !strings.EqualFold(strings.TrimSpace(l.Make), strings.TrimSpace(subject.Make)) {
			continue
		}
		if subject.Model != "" && !strings.EqualFold(strings.TrimSpace(l.Model), strings.TrimSpace(subject.Model)) {
			continue
		}
		if l.VIN != "" {
			vin := strings.ToUpper(l.VIN)
			if seenVIN[vin] {
				continue
			}
			seenVIN[vin] = true
		}

		score := math.Abs(float64(l.Miles-subject.Mileage))/unit(cr.MileageUnit) +
			cr.YearWeight*float64(yearDelta) +
			math.Max(l.Distance, 0)/unit(cr.DistanceUnit)
		candidates = append(candidates, scoredListing{listing: l, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score < b.score
		}
		if a.listing.Price != b.listing.Price {
			return a.listing.Price < b.listing.Price
		}
		return a.listing.ID < b.listing.ID
	})

	n := min(cr.Count, len(candidates))
	set := ComparableSet{
		Listings:   make([]Listing, 0, n),
		Considered: len(candidates),
	}
	var total float64
	for _, c := range candidates[:n] {
		set.Listings = append(set.Listings, c.listing)
		total += c.listing.Price
	}
	if n > 0 {
		set.AveragePrice = math.Round(total / float64(n))
	}
	return set
}

func unit(u float64) float64 {
	if u <= 0 {
		return 1
	}
	return u
}
