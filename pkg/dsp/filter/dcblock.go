package filter

import "math"

// dcCutoffHz sits far below the audible band; the trap only has to
// drain the offset, not shape the low end.
const dcCutoffHz = 10.0

// DCBlocker is the classic one-zero/one-pole DC trap
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// The engine runs one between the saturator and the compressor: an
// asymmetric transfer curve shifts the signal mean, and a standing
// offset would sit on the compressor's peak detector.
type DCBlocker struct {
	r float32

	xL, yL float32
	xR, yR float32
}

// NewDCBlocker creates a stereo DC trap for the given sample rate.
func NewDCBlocker(sampleRate float64) *DCBlocker {
	r := 1.0 - 2.0*math.Pi*dcCutoffHz/sampleRate
	r = math.Max(0.9, math.Min(0.999, r))
	return &DCBlocker{r: float32(r)}
}

// ProcessStereo filters one frame.
func (d *DCBlocker) ProcessStereo(inL, inR float32) (outL, outR float32) {
	outL = inL - d.xL + d.r*d.yL
	d.xL, d.yL = inL, outL
	outR = inR - d.xR + d.r*d.yR
	d.xR, d.yR = inR, outR
	return outL, outR
}

// Reset clears the filter state.
func (d *DCBlocker) Reset() {
	d.xL, d.yL = 0, 0
	d.xR, d.yR = 0, 0
}
