package delay

import (
	"math"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/filter"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/param"
)

// Feedback can never reach unity or the echo tail would grow without bound.
const maxFeedback = 0.85

// Network is the tempo-synced stereo echo: two delay lines cross-fed
// (left reads into right's loop and vice versa, the ping-pong topology)
// with a damping filter inside each loop. Delay time and feedback changes
// glide through smoothers so retuning the tempo never tears the tail.
type Network struct {
	left  *Line
	right *Line

	timeL    *param.Smoother // samples
	timeR    *param.Smoother
	feedback *param.Smoother

	dampL *filter.OnePole
	dampR *filter.OnePole
}

// NewNetwork creates an echo network able to hold maxDelaySeconds per side.
func NewNetwork(sampleRate, maxDelaySeconds float64) *Network {
	// 50ms glide keeps time changes pitch-artifact free without feeling laggy.
	glide := param.ExpRate(sampleRate, 0.05)
	n := &Network{
		left:     NewLine(sampleRate, maxDelaySeconds),
		right:    NewLine(sampleRate, maxDelaySeconds),
		timeL:    param.NewSmoother(param.Exponential, glide),
		timeR:    param.NewSmoother(param.Exponential, glide),
		feedback: param.NewSmoother(param.Exponential, glide),
		dampL:    filter.NewOnePole(sampleRate, 4000.0),
		dampR:    filter.NewOnePole(sampleRate, 4000.0),
	}
	n.timeL.Reset(0.25 * sampleRate)
	n.timeR.Reset(0.25 * sampleRate)
	n.feedback.Reset(0.35)
	return n
}

// SetTime retunes both lines to the given delay in seconds. Spread detunes
// the sides against each other by up to ±5%, widening the ping-pong.
func (n *Network) SetTime(seconds, spread float64) {
	spread = math.Max(0.0, math.Min(1.0, spread))
	samples := seconds * n.left.sampleRate
	detune := 0.05 * spread * samples

	clamp := func(s float64) float64 {
		return math.Max(1.0, math.Min(n.left.MaxDelay(), s))
	}
	n.timeL.SetTarget(clamp(samples - detune))
	n.timeR.SetTarget(clamp(samples + detune))
}

// SetFeedback sets the regeneration amount, clamped below unity.
func (n *Network) SetFeedback(fb float64) {
	n.feedback.SetTarget(math.Max(0.0, math.Min(maxFeedback, fb)))
}

// Feedback returns the feedback target currently in effect.
func (n *Network) Feedback() float64 {
	return n.feedback.Target()
}

// SetTone maps 0..1 onto a 400Hz..8kHz damping cutoff inside the loop;
// low values darken each repeat.
func (n *Network) SetTone(tone float64) {
	tone = math.Max(0.0, math.Min(1.0, tone))
	cutoff := 400.0 * math.Pow(20.0, tone) // 400*20^1 = 8000
	n.dampL.SetCutoff(cutoff)
	n.dampR.SetCutoff(cutoff)
}

// Process runs one stereo sample through the network and returns the wet
// signal only.
func (n *Network) Process(inL, inR float32) (float32, float32) {
	tL := n.timeL.Next()
	tR := n.timeR.Next()
	fb := float32(n.feedback.Next())

	outL := n.left.Read(tL)
	outR := n.right.Read(tR)

	// Cross-feed: each side regenerates from the other's output.
	n.left.Write(inL + n.dampL.Process(outR)*fb)
	n.right.Write(inR + n.dampR.Process(outL)*fb)

	return outL, outR
}

// Reset clears both lines and the loop filters, keeping parameters.
func (n *Network) Reset() {
	n.left.Reset()
	n.right.Reset()
	n.dampL.Reset()
	n.dampR.Reset()
}
