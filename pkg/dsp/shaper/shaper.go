// Package shaper implements the tube saturation stage: a precomputed
// transfer-curve table looked up per sample, crossfaded against the dry
// signal. The curve is an asymmetric tanh, so drive adds both odd and even
// harmonics the way a single-ended tube stage does.
package shaper

import (
	"math"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/interpolation"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/param"
)

const tableSize = 1024

// Shaper saturates a signal through its drive curve. Enabling, disabling
// and wet changes glide through a smoother so toggling never clicks; drive
// changes rebuild the table.
type Shaper struct {
	enabled bool
	drive   float64
	wetAmt  float64

	wet   *param.Smoother
	curve [tableSize]float32
}

// New creates a bypassed shaper with moderate drive.
func New(sampleRate float64) *Shaper {
	s := &Shaper{
		drive:  0.4,
		wetAmt: 0.5,
		wet:    param.NewSmoother(param.Exponential, param.ExpRate(sampleRate, 0.02)),
	}
	s.rebuild()
	return s
}

// SetDrive sets the saturation amount (0..1) and rebuilds the curve.
func (s *Shaper) SetDrive(drive float64) {
	s.drive = math.Max(0.0, math.Min(1.0, drive))
	s.rebuild()
}

// SetMix sets the wet amount (0..1).
func (s *Shaper) SetMix(wet float64) {
	s.wetAmt = math.Max(0.0, math.Min(1.0, wet))
	s.retarget()
}

// SetEnabled bypasses or engages the stage. The wet level fades rather
// than switching.
func (s *Shaper) SetEnabled(enabled bool) {
	s.enabled = enabled
	s.retarget()
}

// Enabled reports whether the stage is engaged.
func (s *Shaper) Enabled() bool {
	return s.enabled
}

func (s *Shaper) retarget() {
	if s.enabled {
		s.wet.SetTarget(s.wetAmt)
	} else {
		s.wet.SetTarget(0.0)
	}
}

// rebuild regenerates the transfer curve for the current drive. The two
// half-waves are driven at different gains, which is what puts the even
// harmonics in; each half is normalized so the rails map to exactly ±1.
func (s *Shaper) rebuild() {
	k := 1.0 + s.drive*9.0
	asym := 0.3 * s.drive
	kPos := k * (1.0 + asym)
	kNeg := k * (1.0 - asym)
	normPos := math.Tanh(kPos)
	normNeg := math.Tanh(kNeg)
	for i := range s.curve {
		x := float64(i)/float64(tableSize-1)*2.0 - 1.0
		if x >= 0 {
			s.curve[i] = float32(math.Tanh(kPos*x) / normPos)
		} else {
			s.curve[i] = float32(math.Tanh(kNeg*x) / normNeg)
		}
	}
}

// shape looks a sample up in the curve with linear interpolation.
func (s *Shaper) shape(x float32) float32 {
	if x < -1.0 {
		x = -1.0
	}
	if x > 1.0 {
		x = 1.0
	}
	pos := (float64(x) + 1.0) / 2.0 * float64(tableSize-1)
	i := int(pos)
	if i >= tableSize-1 {
		return s.curve[tableSize-1]
	}
	frac := float32(pos - float64(i))
	return interpolation.Linear(s.curve[i], s.curve[i+1], frac)
}

// Process saturates one sample.
func (s *Shaper) Process(input float32) float32 {
	wet := float32(s.wet.Next())
	if wet <= 0.0 {
		return input
	}
	out := interpolation.Linear(input, s.shape(input), wet)
	if out > 1.0 {
		out = 1.0
	}
	if out < -1.0 {
		out = -1.0
	}
	return out
}

// ProcessStereo saturates one stereo pair with a single wet step.
func (s *Shaper) ProcessStereo(inL, inR float32) (float32, float32) {
	wet := float32(s.wet.Next())
	if wet <= 0.0 {
		return inL, inR
	}
	clip := func(v float32) float32 {
		if v > 1.0 {
			return 1.0
		}
		if v < -1.0 {
			return -1.0
		}
		return v
	}
	outL := clip(interpolation.Linear(inL, s.shape(inL), wet))
	outR := clip(interpolation.Linear(inR, s.shape(inR), wet))
	return outL, outR
}

// Reset snaps the wet fade to its resting point.
func (s *Shaper) Reset() {
	if s.enabled {
		s.wet.Reset(s.wetAmt)
	} else {
		s.wet.Reset(0.0)
	}
}
