package reverb

import (
	"math"
	"testing"
)

func TestCombFeedbackClamp(t *testing.T) {
	c := NewComb(100)

	c.SetFeedback(1.0)
	if c.Feedback() >= 1.0 {
		t.Errorf("feedback must stay below unity, got %f", c.Feedback())
	}
	c.SetFeedback(10.0)
	if c.Feedback() >= 1.0 {
		t.Errorf("feedback must stay below unity, got %f", c.Feedback())
	}
	c.SetFeedback(-1.0)
	if c.Feedback() != 0.0 {
		t.Errorf("negative feedback should clamp to zero, got %f", c.Feedback())
	}
}

func TestCombEchoDecaysByLoopGain(t *testing.T) {
	c := NewComb(50)
	c.SetFeedback(0.9)

	c.Process(1.0)
	var echoes []float32
	for i := 0; i < 150; i++ {
		if out := c.Process(0.0); out != 0 {
			echoes = append(echoes, out)
		}
	}
	if len(echoes) != 3 {
		t.Fatalf("expected 3 echoes in 150 samples, got %d", len(echoes))
	}
	for i := 1; i < len(echoes); i++ {
		ratio := float64(echoes[i] / echoes[i-1])
		if math.Abs(ratio-0.9) > 1e-6 {
			t.Errorf("echo %d decayed by %f, want the loop gain 0.9", i, ratio)
		}
	}
}

func TestBankSizeRaisesLineFeedback(t *testing.T) {
	small := NewBank(44100)
	big := NewBank(44100)
	small.SetSize(0.0)
	big.SetSize(1.0)

	for i := 0; i < numLines; i++ {
		fbSmall := small.LineFeedback(i)
		fbBig := big.LineFeedback(i)
		if fbBig <= fbSmall {
			t.Errorf("line %d: size 1.0 should raise feedback (%f vs %f)", i, fbBig, fbSmall)
		}
		if fbBig >= 1.0 {
			t.Errorf("line %d: feedback must stay below unity, got %f", i, fbBig)
		}
	}
}

func TestBankProducesDecayingTail(t *testing.T) {
	b := NewBank(44100)
	b.SetSize(0.8)
	b.SetDamp(0.5)

	outL, outR := b.Process(0.0)
	if outL != 0.0 || outR != 0.0 {
		t.Error("bank should be silent before input")
	}

	b.Process(1.0)
	tail := false
	var peakEarly, peakLate float64
	for i := 0; i < 44100; i++ {
		l, r := b.Process(0.0)
		if math.IsNaN(float64(l)) || math.IsNaN(float64(r)) {
			t.Fatalf("NaN in tail at sample %d", i)
		}
		mag := math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
		if mag > 0 {
			tail = true
		}
		if i < 4410 && mag > peakEarly {
			peakEarly = mag
		}
		if i >= 39690 && mag > peakLate {
			peakLate = mag
		}
	}
	if !tail {
		t.Fatal("bank should produce a tail after an impulse")
	}
	if peakLate >= peakEarly {
		t.Errorf("tail must decay: early %f late %f", peakEarly, peakLate)
	}
}

func TestBankWidthCollapsesToMono(t *testing.T) {
	b := NewBank(44100)
	b.SetWidth(0.0)
	b.SetSize(0.7)

	b.Process(1.0)
	for i := 0; i < 10000; i++ {
		l, r := b.Process(0.0)
		if math.Abs(float64(l)-float64(r)) > 1e-6 {
			t.Fatalf("zero width should be mono, got %f vs %f at sample %d", l, r, i)
		}
	}
}

func TestBankWidthSpreadsChannels(t *testing.T) {
	b := NewBank(44100)
	b.SetWidth(1.0)

	b.Process(1.0)
	differ := false
	for i := 0; i < 10000; i++ {
		l, r := b.Process(0.0)
		if math.Abs(float64(l)-float64(r)) > 1e-6 {
			differ = true
			break
		}
	}
	if !differ {
		t.Error("channels never differ at width 1, want the comb groups spread apart")
	}
}

func TestBankResetSilences(t *testing.T) {
	b := NewBank(44100)
	b.Process(1.0)
	for i := 0; i < 100; i++ {
		b.Process(0.0)
	}
	b.Reset()
	l, r := b.Process(0.0)
	if l != 0.0 || r != 0.0 {
		t.Errorf("bank should be silent after reset, got %f %f", l, r)
	}
}
