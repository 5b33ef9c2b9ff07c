package filter

import "math"

// OnePole is a first-order IIR filter used for damping inside feedback
// loops (delay tone, reverb damping) and for the reverb's input color
// highpass, where a full second-order section would be overkill.
type OnePole struct {
	sampleRate float64
	highpass   bool

	a float32 // feedback coefficient
	z float32 // state
}

// NewOnePole creates a lowpass one-pole at the given cutoff.
func NewOnePole(sampleRate, cutoff float64) *OnePole {
	f := &OnePole{sampleRate: sampleRate}
	f.SetCutoff(cutoff)
	return f
}

// NewOnePoleHighpass creates a highpass one-pole at the given cutoff.
func NewOnePoleHighpass(sampleRate, cutoff float64) *OnePole {
	f := &OnePole{sampleRate: sampleRate, highpass: true}
	f.SetCutoff(cutoff)
	return f
}

// SetCutoff sets the -3dB point in Hz, clamped to 10Hz..45% of the
// sample rate.
func (f *OnePole) SetCutoff(cutoff float64) {
	cutoff = math.Max(10.0, math.Min(0.45*f.sampleRate, cutoff))
	f.a = float32(math.Exp(-2.0 * math.Pi * cutoff / f.sampleRate))
}

// Process filters one sample.
func (f *OnePole) Process(input float32) float32 {
	f.z = input*(1.0-f.a) + f.z*f.a
	if f.highpass {
		return input - f.z
	}
	return f.z
}

// Reset clears the filter state.
func (f *OnePole) Reset() {
	f.z = 0
}
