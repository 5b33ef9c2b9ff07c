package pan

import (
	"math"
	"testing"
)

func TestConstantPower(t *testing.T) {
	t.Run("HoldsPowerAcrossArc", func(t *testing.T) {
		for p := float32(-1.0); p <= 1.0; p += 0.125 {
			l, r := ConstantPower(p)
			power := float64(l*l + r*r)
			if math.Abs(power-1.0) > 1e-6 {
				t.Errorf("position %g: l²+r² = %f, want 1", p, power)
			}
		}
	})

	t.Run("Extremes", func(t *testing.T) {
		l, r := ConstantPower(-1)
		if l < 0.999 || r > 0.001 {
			t.Errorf("hard left: l=%f r=%f", l, r)
		}
		l, r = ConstantPower(1)
		if r < 0.999 || l > 0.001 {
			t.Errorf("hard right: l=%f r=%f", l, r)
		}
	})

	t.Run("CenterIsBalanced", func(t *testing.T) {
		l, r := ConstantPower(0)
		if math.Abs(float64(l-r)) > 1e-6 {
			t.Errorf("center: l=%f r=%f, want equal", l, r)
		}
		if math.Abs(float64(l)-math.Sqrt2/2) > 1e-6 {
			t.Errorf("center gain = %f, want -3dB", l)
		}
	})

	t.Run("ClampsOutOfRangePositions", func(t *testing.T) {
		l1, r1 := ConstantPower(-5)
		l2, r2 := ConstantPower(-1)
		if l1 != l2 || r1 != r2 {
			t.Errorf("position -5 gave (%f,%f), want same as -1 (%f,%f)", l1, r1, l2, r2)
		}
	})
}
