package utils

import "math"

// Round2 rounds x to 2 decimal places (half away from zero).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// SameCents reports whether a and b are equal once rounded to 2 decimal places.
func SameCents(a, b float64) bool {
	return Round2(a) == Round2(b)
}
