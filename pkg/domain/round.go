package domain

import "math"

// Round rounds v to dp decimal places, halves away from zero.
func Round(v float64, dp int) float64 {
	p := math.Pow(10, float64(dp))
	return math.Round(v*p) / p
}
