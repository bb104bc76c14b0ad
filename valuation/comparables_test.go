// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectComparables(t *testing.T) {
	subject := accordProfile()
	listings := []Listing{
		{ID: "far-miles", Year: 2021, Make: "Honda", Model: "Accord", Price: 21000, Miles: 90000},
		{ID: "close-a", VIN: "1HGCV1F13MA000001", Year: 2021, Make: "Honda", Model: "Accord", Price: 26000, Miles: 31000, Distance: 10},
		{ID: "close-b", Year: 2021, Make: "HONDA", Model: "accord", Price: 25500, Miles: 28000, Distance: 20},
		{ID: "dup-vin", VIN: "1hgcv1f13ma000001", Year: 2021, Make: "Honda", Model: "Accord", Price: 1000, Miles: 30000},
		{ID: "year-off", Year: 2022, Make: "Honda", Model: "Accord", Price: 27000, Miles: 30000, Distance: 5},
		{ID: "too-old", Year: 2017, Make: "Honda", Model: "Accord", Price: 15000, Miles: 30000},
		{ID: "other-model", Year: 2021, Make: "Honda", Model: "Civic", Price: 20000, Miles: 30000},
		{ID: "no-price", Year: 2021, Make: "Honda", Model: "Accord", Price: 0, Miles: 30000},
		{ID: "no-miles", Year: 2021, Make: "Honda", Model: "Accord", Price: 24000},
	}

	set := SelectComparables(subject, listings, DefaultRules())

	require.Len(t, set.Listings, 3)
	assert.Equal(t, 4, set.Considered)

	ids := []string{set.Listings[0].ID, set.Listings[1].ID, set.Listings[2].ID}
	// close-a: 0.1 + 0.1 = 0.2, close-b: 0.2 + 0.2 = 0.4, year-off: 1.5 + 0.05
	assert.Equal(t, []string{"close-a", "close-b", "year-off"}, ids)
	assert.Equal(t, 26167.0, set.AveragePrice)
}

func TestSelectComparables_TieBreaks(t *testing.T) {
	subject := accordProfile()
	listings := []Listing{
		{ID: "b", Year: 2021, Make: "Honda", Model: "Accord", Price: 25000, Miles: 30000},
		{ID: "a", Year: 2021, Make: "Honda", Model: "Accord", Price: 25000, Miles: 30000},
		{ID: "c", Year: 2021, Make: "Honda", Model: "Accord", Price: 24000, Miles: 30000},
	}

	set := SelectComparables(subject, listings, DefaultRules())

	require.Len(t, set.Listings, 3)
	assert.Equal(t, "c", set.Listings[0].ID)
	assert.Equal(t, "a", set.Listings[1].ID)
	assert.Equal(t, "b", set.Listings[2].ID)
}

func TestSelectComparables_Empty(t *testing.T) {
	set := SelectComparables(accordProfile(), nil, DefaultRules())

	assert.Empty(t, set.Listings)
	assert.Equal(t, 0.0, set.AveragePrice)
	assert.Equal(t, 0, set.Considered)
}

func TestSelectComparables_FewerThanCount(t *testing.T) {
	listings := []Listing{
		{ID: "only", Year: 2020, Make: "Honda", Model: "Accord", Price: 23000, Miles: 41000},
	}

	set := SelectComparables(accordProfile(), listings, DefaultRules())

	require.Len(t, set.Listings, 1)
	assert.Equal(t, 23000.0, set.AveragePrice)
}
