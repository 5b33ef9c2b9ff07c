// Package pan provides stereo placement for mono sources.
package pan

import "math"

// ConstantPower returns left/right gains for a mono source placed at
// position -1 (hard left) .. 1 (hard right) using the sine/cosine
// equal-power law, so perceived loudness holds steady across the arc.
func ConstantPower(position float32) (left, right float32) {
	if position < -1 {
		position = -1
	}
	if position > 1 {
		position = 1
	}
	angle := float64(position+1) * math.Pi / 4
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}
