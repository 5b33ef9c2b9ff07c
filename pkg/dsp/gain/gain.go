// Package gain converts between linear amplitude and decibels.
package gain

import "math"

// MinDB stands in for negative infinity on the dB scale.
const MinDB = -200.0

// LinearToDb converts a linear amplitude to decibels. Non-positive values
// return MinDB.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return 20.0 * math.Log10(linear)
}

// DbToLinear converts decibels to linear amplitude. Values at or below
// MinDB return 0.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}
