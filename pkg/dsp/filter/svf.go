// Package filter provides the state-variable filter used on voices and in
// drum synthesis. Zero-delay feedback topology, mono per instance.
package filter

import "math"

// Mode selects which filter output Process returns.
type Mode int

const (
	Lowpass Mode = iota
	Bandpass
	Highpass
)

// SVF is a single-channel state variable filter.
type SVF struct {
	sampleRate float64
	mode       Mode

	g float32 // frequency coefficient (pre-warped)
	k float32 // damping (1/Q)

	ic1eq float32
	ic2eq float32
}

// New creates a filter at 1kHz lowpass with Q 0.707.
func New(sampleRate float64, mode Mode) *SVF {
	s := &SVF{sampleRate: sampleRate, mode: mode}
	s.SetFrequency(1000.0)
	s.SetQ(0.707)
	return s
}

// SetMode switches the filter output without clearing state.
func (s *SVF) SetMode(mode Mode) {
	s.mode = mode
}

// SetFrequency sets the cutoff/center frequency in Hz, clamped to
// 20Hz..45% of the sample rate.
func (s *SVF) SetFrequency(frequency float64) {
	frequency = math.Max(20.0, math.Min(0.45*s.sampleRate, frequency))
	s.g = float32(math.Tan(math.Pi * frequency / s.sampleRate))
}

// SetQ sets the resonance, clamped to 0.5..20.
func (s *SVF) SetQ(q float64) {
	q = math.Max(0.5, math.Min(20.0, q))
	s.k = float32(1.0 / q)
}

// Reset clears the integrator state.
func (s *SVF) Reset() {
	s.ic1eq = 0
	s.ic2eq = 0
}

// Process filters one sample and returns the configured mode's output.
func (s *SVF) Process(input float32) float32 {
	g := s.g
	k := s.k
	a1 := 1.0 / (1.0 + g*(g+k))
	a2 := g * a1
	a3 := g * a2

	v3 := input - s.ic2eq
	v1 := a1*s.ic1eq + a2*v3
	v2 := s.ic2eq + a2*s.ic1eq + a3*v3

	s.ic1eq = 2.0*v1 - s.ic1eq
	s.ic2eq = 2.0*v2 - s.ic2eq

	switch s.mode {
	case Bandpass:
		return v1
	case Highpass:
		return input - k*v1 - v2
	default:
		return v2
	}
}

// ProcessBuffer filters a buffer in place.
func (s *SVF) ProcessBuffer(buffer []float32) {
	for i := range buffer {
		buffer[i] = s.Process(buffer[i])
	}
}
