// Package param provides click-free parameter ramps. Every audible engine
// parameter is driven through a Smoother so a control change glides to its
// target instead of stepping.
package param

import "math"

// Mode selects the ramp shape.
type Mode int

const (
	// Linear ramps in equal per-sample steps over a fixed sample count.
	Linear Mode = iota
	// Exponential approaches the target with a one-pole filter.
	Exponential
	// Logarithmic ramps linearly in log space, suited to frequencies.
	Logarithmic
)

// settleThreshold is how close to the target a ramp must get before it is
// considered finished and snapped.
const settleThreshold = 0.0001

// Smoother glides a single parameter toward its target. SetTarget always
// supersedes any ramp still in flight; there is never more than one pending
// ramp per parameter.
type Smoother struct {
	mode    Mode
	rate    float64 // coefficient for Exponential, sample count otherwise
	current float64
	target  float64
	ramping bool

	step                    float64 // Linear
	logPos, logEnd, logStep float64 // Logarithmic
}

// NewSmoother creates a smoother resting at zero. For Exponential mode rate
// is the one-pole coefficient (see ExpRate); for Linear and Logarithmic it
// is the ramp length in samples.
func NewSmoother(mode Mode, rate float64) *Smoother {
	return &Smoother{mode: mode, rate: rate}
}

// ExpRate converts a settle time to a one-pole coefficient: the ramp reaches
// -60dB of its remaining distance within the given time.
func ExpRate(sampleRate, seconds float64) float64 {
	if sampleRate <= 0 || seconds <= 0 {
		return 0
	}
	return math.Exp(-6.908 / (sampleRate * seconds))
}

// RampSamples converts a ramp time to a sample count for Linear and
// Logarithmic smoothers.
func RampSamples(sampleRate, seconds float64) float64 {
	return sampleRate * seconds
}

// SetTarget starts a ramp to the given value, replacing any pending ramp.
// Targets within the settle threshold of the current one are ignored.
func (s *Smoother) SetTarget(target float64) {
	if math.Abs(target-s.target) < settleThreshold && s.ramping {
		return
	}
	if math.Abs(target-s.current) < settleThreshold {
		s.current = target
		s.target = target
		s.ramping = false
		return
	}

	s.target = target
	s.ramping = true

	switch s.mode {
	case Linear:
		if s.rate > 0 {
			s.step = (target - s.current) / s.rate
		} else {
			s.current = target
			s.ramping = false
		}
	case Logarithmic:
		const floor = 0.001
		from := math.Max(s.current, floor)
		to := math.Max(target, floor)
		s.logPos = math.Log(from)
		s.logEnd = math.Log(to)
		if s.rate > 0 {
			s.logStep = (s.logEnd - s.logPos) / s.rate
		} else {
			s.current = target
			s.ramping = false
		}
	}
}

// Next advances the ramp one sample and returns the new value.
func (s *Smoother) Next() float64 {
	if !s.ramping {
		return s.current
	}

	switch s.mode {
	case Exponential:
		s.current += (s.target - s.current) * (1.0 - s.rate)
		if math.Abs(s.current-s.target) < settleThreshold {
			s.current = s.target
			s.ramping = false
		}

	case Linear:
		s.current += s.step
		if (s.step > 0 && s.current >= s.target) || (s.step < 0 && s.current <= s.target) {
			s.current = s.target
			s.ramping = false
		}

	case Logarithmic:
		s.logPos += s.logStep
		if (s.logStep > 0 && s.logPos >= s.logEnd) || (s.logStep < 0 && s.logPos <= s.logEnd) {
			s.current = s.target
			s.ramping = false
		} else {
			s.current = math.Exp(s.logPos)
		}
	}

	return s.current
}

// Value returns the current value without advancing the ramp.
func (s *Smoother) Value() float64 {
	return s.current
}

// Target returns the value the smoother is heading toward.
func (s *Smoother) Target() float64 {
	return s.target
}

// IsSmoothing reports whether a ramp is still in flight.
func (s *Smoother) IsSmoothing() bool {
	return s.ramping
}

// Reset jumps directly to a value, cancelling any ramp.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.ramping = false
}

// SetRate replaces the smoothing rate. Takes effect on the next SetTarget
// for ramp modes and immediately for Exponential.
func (s *Smoother) SetRate(rate float64) {
	s.rate = rate
}
