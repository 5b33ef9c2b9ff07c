package osc

import "math"

// LFO is the sine low-frequency oscillator that drives vibrato. Depth is
// expressed in semitones of pitch deviation so the caller can apply it as
// freq * 2^(lfo/12).
type LFO struct {
	sampleRate float64
	frequency  float64
	depth      float64
	phase      float64
	phaseInc   float64
}

// NewLFO creates an LFO at 5 Hz with zero depth.
func NewLFO(sampleRate float64) *LFO {
	l := &LFO{
		sampleRate: sampleRate,
		frequency:  5.0,
	}
	l.phaseInc = l.frequency / sampleRate
	return l
}

// SetRate sets the LFO frequency in Hz, clamped to 0.05..20.
func (l *LFO) SetRate(hz float64) {
	l.frequency = math.Max(0.05, math.Min(20.0, hz))
	l.phaseInc = l.frequency / l.sampleRate
}

// SetDepth sets the pitch deviation in semitones, clamped to 0..2.
func (l *LFO) SetDepth(semitones float64) {
	l.depth = math.Max(0.0, math.Min(2.0, semitones))
}

// Depth returns the current pitch deviation in semitones.
func (l *LFO) Depth() float64 {
	return l.depth
}

// Next returns the next modulation value in semitones (±depth).
func (l *LFO) Next() float64 {
	out := math.Sin(2.0*math.Pi*l.phase) * l.depth
	l.phase += l.phaseInc
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return out
}

// Reset rewinds the phase to zero.
func (l *LFO) Reset() {
	l.phase = 0.0
}
