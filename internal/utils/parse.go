// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseFloat converts a string to a float64. The second return value reports
// whether the input was a parsable, finite number.
func ParseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FloatDefault converts a string to a float64, falling back to def when the
// input is empty or not a number.
func FloatDefault(s string, def float64) float64 {
	if f, ok := ParseFloat(s); ok {
		return f
	}
	return def
}
