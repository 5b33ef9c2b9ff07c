package shaper

import (
	"math"
	"testing"
)

func TestBypassedShaperPassesThrough(t *testing.T) {
	s := New(44100)
	s.SetDrive(1.0)
	s.Reset()

	for _, v := range []float32{-0.9, -0.3, 0.0, 0.3, 0.9} {
		if out := s.Process(v); out != v {
			t.Errorf("bypassed shaper altered %f -> %f", v, out)
		}
	}
}

func TestShaperSaturatesPeaks(t *testing.T) {
	s := New(44100)
	s.SetDrive(0.8)
	s.SetMix(1.0)
	s.SetEnabled(true)
	s.Reset()

	// A hot input should compress toward the rails, a quiet one should
	// gain relative to it (the essence of saturation).
	loud := s.Process(0.95)
	quietIn := float32(0.05)
	quiet := s.Process(quietIn)

	if loud > 1.0 || loud < -1.0 {
		t.Errorf("output must stay in range, got %f", loud)
	}
	loudRatio := float64(loud) / 0.95
	quietRatio := float64(quiet) / float64(quietIn)
	if quietRatio <= loudRatio {
		t.Errorf("saturation should gain quiet signals relative to loud: %f vs %f", quietRatio, loudRatio)
	}
}

func TestShaperCurveIsAsymmetric(t *testing.T) {
	s := New(44100)
	s.SetDrive(0.7)
	s.SetMix(1.0)
	s.SetEnabled(true)
	s.Reset()

	pos := s.Process(0.5)
	neg := s.Process(-0.5)
	if math.Abs(float64(pos)+float64(neg)) < 1e-4 {
		t.Error("transfer should be asymmetric under drive (even harmonics)")
	}
}

func TestShaperOutputBounded(t *testing.T) {
	s := New(44100)
	s.SetDrive(1.0)
	s.SetMix(1.0)
	s.SetEnabled(true)
	s.Reset()

	for i := -200; i <= 200; i++ {
		x := float32(i) / 100.0 // -2..2, beyond the nominal range
		out := s.Process(x)
		if out < -1.0 || out > 1.0 || math.IsNaN(float64(out)) {
			t.Fatalf("input %f produced out-of-range output %f", x, out)
		}
	}
}

func TestShaperEnableFadesIn(t *testing.T) {
	s := New(44100)
	s.SetDrive(1.0)
	s.SetMix(1.0)
	s.Reset() // wet rests at 0

	s.SetEnabled(true)
	first := s.Process(0.9)
	var last float32
	for i := 0; i < 44100; i++ {
		last = s.Process(0.9)
	}
	// The first sample after enabling is nearly dry; the settled one is
	// fully shaped.
	if math.Abs(float64(first)-0.9) > 0.05 {
		t.Errorf("enable should fade in, first sample jumped to %f", first)
	}
	settled := s.shape(0.9)
	if math.Abs(float64(last)-float64(settled)) > 0.01 {
		t.Errorf("expected settled output near %f, got %f", settled, last)
	}
}

func TestShaperZeroStaysNearZero(t *testing.T) {
	s := New(44100)
	s.SetDrive(0.9)
	s.SetMix(1.0)
	s.SetEnabled(true)
	s.Reset()

	out := s.Process(0.0)
	if math.Abs(float64(out)) > 0.01 {
		t.Errorf("silence should stay near silence, got %f", out)
	}
}
