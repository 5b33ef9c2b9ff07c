// Package dynamics provides the master-bus compressor that keeps the
// summed instrument from clipping when chords, harp and drums stack up.
package dynamics

import (
	"math"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/envelope"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/gain"
)

// Compressor is a feed-forward, stereo-linked peak compressor with a fixed
// soft knee. Both channels are driven by one gain computer so the stereo
// image never shifts under compression.
type Compressor struct {
	sampleRate float64

	threshold  float64 // dB
	ratio      float64
	kneeWidth  float64 // dB
	makeupGain float64 // dB

	detector *envelope.Follower

	lastReduction float64
}

// New creates a compressor with gentle master-bus settings: -18dB
// threshold, 3:1, 5ms attack, 80ms release.
func New(sampleRate float64) *Compressor {
	c := &Compressor{
		sampleRate: sampleRate,
		threshold:  -18.0,
		ratio:      3.0,
		kneeWidth:  4.0,
		detector:   envelope.NewFollower(sampleRate),
	}
	c.detector.SetAttack(0.005)
	c.detector.SetRelease(0.080)
	return c
}

// SetThreshold sets the threshold in dB.
func (c *Compressor) SetThreshold(dB float64) {
	c.threshold = dB
}

// SetRatio sets the compression ratio, minimum 1:1.
func (c *Compressor) SetRatio(ratio float64) {
	c.ratio = math.Max(1.0, ratio)
}

// SetAttack sets the detector attack in seconds.
func (c *Compressor) SetAttack(seconds float64) {
	c.detector.SetAttack(math.Max(0.0001, seconds))
}

// SetRelease sets the detector release in seconds.
func (c *Compressor) SetRelease(seconds float64) {
	c.detector.SetRelease(math.Max(0.001, seconds))
}

// SetMakeupGain sets the output makeup gain in dB.
func (c *Compressor) SetMakeupGain(dB float64) {
	c.makeupGain = dB
}

// GainReduction returns the current reduction in dB, for metering.
func (c *Compressor) GainReduction() float64 {
	return c.lastReduction
}

// computeReduction returns the gain reduction in dB for an input level.
func (c *Compressor) computeReduction(inputDB float64) float64 {
	lower := c.threshold - c.kneeWidth/2
	upper := c.threshold + c.kneeWidth/2

	if inputDB < lower {
		return 0.0
	}
	slope := 1.0 - 1.0/c.ratio
	if inputDB > upper {
		return (inputDB - c.threshold) * slope
	}
	// Inside the knee: quadratic blend into full compression.
	kneePos := (inputDB - lower) / c.kneeWidth
	return kneePos * kneePos * (inputDB - c.threshold + c.kneeWidth/2) * slope * 0.5
}

// ProcessStereo compresses one stereo sample pair, detecting from the
// louder channel and applying identical gain to both.
func (c *Compressor) ProcessStereo(inL, inR float32) (float32, float32) {
	peak := inL
	if peak < 0 {
		peak = -peak
	}
	if r := inR; r >= 0 && r > peak {
		peak = r
	} else if r < 0 && -r > peak {
		peak = -r
	}

	env := c.detector.Follow(peak)
	inputDB := gain.LinearToDb(float64(env))

	reduction := c.computeReduction(inputDB)
	c.lastReduction = reduction

	amp := float32(gain.DbToLinear(c.makeupGain - reduction))
	return inL * amp, inR * amp
}

// Reset clears the detector state.
func (c *Compressor) Reset() {
	c.detector.Reset()
	c.lastReduction = 0.0
}
