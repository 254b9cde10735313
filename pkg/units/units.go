// Package units converts human-readable size strings such as "100G" or
// "1.5T" into gigabytes, the unit all quota arithmetic is performed in.
package units

import (
	"strconv"

	"github.com/dustin/go-humanize"
)

// gigabytesPerUnit maps a unit suffix to its value in gigabytes.
var gigabytesPerUnit = map[byte]float64{
	'K': 1e-6,
	'M': 1e-3,
	'G': 1,
	'T': 1e3,
	'P': 1e6,
}

// InvalidUnitError is returned when a size string does not end in a
// recognized unit letter. Callers treat this as fatal: no quota arithmetic
// can be performed from a bad unit.
type InvalidUnitError struct {
	Input string
}

func (e InvalidUnitError) Error() string {
	return "invalid size unit in " + strconv.Quote(e.Input)
}

// ParseSize converts a size string consisting of a (possibly fractional)
// number followed by exactly one unit letter in {K, M, G, T, P} into
// gigabytes. A missing or unrecognized unit yields InvalidUnitError.
func ParseSize(s string) (float64, error) {
	if len(s) < 2 {
		return 0, InvalidUnitError{Input: s}
	}

	unit := s[len(s)-1]
	factor, ok := gigabytesPerUnit[unit]
	if !ok {
		return 0, InvalidUnitError{Input: s}
	}

	value, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil || value < 0 {
		return 0, InvalidUnitError{Input: s}
	}

	return value * factor, nil
}

// FormatGB renders a gigabyte value for diagnostics, e.g. 0.5 -> "500 MB".
func FormatGB(gb float64) string {
	if gb < 0 {
		gb = 0
	}
	return humanize.Bytes(uint64(gb * 1e9))
}
