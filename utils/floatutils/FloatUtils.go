// Package floatutils provides scalar float helpers for reward shaping
// and geometry
package floatutils

import "math"

// Clip returns value limited to [min, max]
func Clip(value, min, max float64) float64 {
	return math.Max(min, math.Min(value, max))
}

// SumPositive sums values after clipping negatives to zero
func SumPositive(values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += math.Max(v, 0)
	}
	return sum
}
