package reverb

import (
	"math"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/filter"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/pan"
)

// Bank tuning. Line lengths are the classic mutually-prime comb delays at
// 44.1kHz, scaled to the running sample rate. Size maps onto per-line
// feedback between offsetSize and offsetSize+scaleSize, which tops out at
// 0.98 so the loop gain can never reach unity.
const (
	numLines   = 8
	fixedGain  = 0.015
	scaleSize  = 0.28
	offsetSize = 0.7

	// damp 0..1 sweeps the shared lowpass from dampFloorHz up to
	// dampFloorHz*dampSpan (1k..12k); higher damp = brighter tail.
	dampFloorHz = 1000.0
	dampSpan    = 12.0
)

var lineTuning = [numLines]int{
	1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
}

// Bank is the full reverb: a color highpass on the input, eight parallel
// pure combs summed into two groups (even lines and odd lines), one shared
// damping lowpass over the group pair, and a constant-power panner that
// spreads the groups apart by the width amount.
type Bank struct {
	lines [numLines]*Comb
	color *filter.OnePole

	// the shared damping stage: one cutoff, one filter per group leg
	dampA *filter.OnePole
	dampB *filter.OnePole

	size  float64
	width float64

	gainAL, gainAR float32
	gainBL, gainBR float32
}

// NewBank creates the bank at the given sample rate with a medium room.
func NewBank(sampleRate float64) *Bank {
	b := &Bank{
		size:  0.5,
		width: 1.0,
		color: filter.NewOnePoleHighpass(sampleRate, 20.0),
		dampA: filter.NewOnePole(sampleRate, dampFloorHz*math.Sqrt(dampSpan)),
		dampB: filter.NewOnePole(sampleRate, dampFloorHz*math.Sqrt(dampSpan)),
	}
	scale := sampleRate / 44100.0
	for i := range b.lines {
		b.lines[i] = NewComb(int(float64(lineTuning[i]) * scale))
	}
	b.updateFeedback()
	b.updateWidth()
	return b
}

// SetSize sets the apparent room size (0..1). Larger rooms run every line
// at higher feedback for a longer tail.
func (b *Bank) SetSize(size float64) {
	b.size = math.Max(0.0, math.Min(1.0, size))
	b.updateFeedback()
}

// SetDamp sets the tail brightness (0..1): the shared lowpass opens with
// higher values.
func (b *Bank) SetDamp(damp float64) {
	damp = math.Max(0.0, math.Min(1.0, damp))
	cutoff := dampFloorHz * math.Pow(dampSpan, damp)
	b.dampA.SetCutoff(cutoff)
	b.dampB.SetCutoff(cutoff)
}

// SetWidth sets the stereo spread of the tail (0 = mono, 1 = the two comb
// groups panned hard apart).
func (b *Bank) SetWidth(width float64) {
	b.width = math.Max(0.0, math.Min(1.0, width))
	b.updateWidth()
}

// SetColor maps 0..1 onto a 20..800Hz input highpass, thinning the low end
// feeding the tail.
func (b *Bank) SetColor(color float64) {
	color = math.Max(0.0, math.Min(1.0, color))
	b.color.SetCutoff(20.0 * math.Pow(40.0, color)) // 20*40^1 = 800
}

// LineFeedback returns the applied loop gain of one line.
func (b *Bank) LineFeedback(i int) float64 {
	return b.lines[i].Feedback()
}

func (b *Bank) updateFeedback() {
	feedback := b.size*scaleSize + offsetSize
	for _, line := range b.lines {
		line.SetFeedback(feedback)
	}
}

func (b *Bank) updateWidth() {
	w := float32(b.width)
	b.gainAL, b.gainAR = pan.ConstantPower(-w)
	b.gainBL, b.gainBR = pan.ConstantPower(w)
}

// Process runs one mono input sample through the bank and returns the
// stereo wet signal.
func (b *Bank) Process(input float32) (float32, float32) {
	in := b.color.Process(input) * fixedGain

	var sumA, sumB float32
	for i, line := range b.lines {
		out := line.Process(in)
		if i%2 == 0 {
			sumA += out
		} else {
			sumB += out
		}
	}

	sumA = b.dampA.Process(sumA)
	sumB = b.dampB.Process(sumB)

	outL := sumA*b.gainAL + sumB*b.gainBL
	outR := sumA*b.gainAR + sumB*b.gainBR
	return outL, outR
}

// Reset clears every line and all filter state, keeping parameters.
func (b *Bank) Reset() {
	for _, line := range b.lines {
		line.Reset()
	}
	b.color.Reset()
	b.dampA.Reset()
	b.dampB.Reset()
}
