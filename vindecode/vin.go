// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vindecode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVIN is wrapped by every ValidateVIN failure
var ErrInvalidVIN = errors.New("invalid vin")

var vinWeights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// transliterate maps a VIN character to its ISO 3779 value. I, O and Q are never valid.
func transliterate(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'H':
		return int(c-'A') + 1, true
	case c >= 'J' && c <= 'N':
		return int(c-'J') + 1, true
	case c == 'P':
		return 7, true
	case c == 'R':
		return 9, true
	case c >= 'S' && c <= 'Z':
		return int(c-'S') + 2, true
	}
	return 0, false
}

// Normalize trims and upper-cases a VIN
func Normalize(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// ValidateVIN checks length, alphabet and the position 9 check digit of a normalized VIN
func ValidateVIN(vin string) error {
	if len(vin) != 17 {
		return fmt.Errorf("%w: must be 17 characters, got %d", ErrInvalidVIN, len(vin))
	}

	sum := 0
	for i := 0; i < len(vin); i++ {
		v, ok := transliterate(vin[i])
		if !ok {
			return fmt.Errorf("%w: illegal character %q at position %d", ErrInvalidVIN, vin[i], i+1)
		}
		sum += v * vinWeights[i]
	}

	want := byte('0' + sum%11)
	if sum%11 == 10 {
		want = 'X'
	}
	if vin[8] != want {
		return fmt.Errorf("%w: check digit is %q, expected %q", ErrInvalidVIN, vin[8], want)
	}
	return nil
}
