// Package reverb implements the instrument's diffuse tail: a fixed bank of
// parallel feedback comb lines summed into a shared damping filter and
// spread to stereo by a width panner.
package reverb

import "math"

// Comb is one pure feedback delay line of the bank: the delayed output is
// scaled by the loop gain and fed straight back in. Damping happens
// downstream in the bank's shared filter, not inside the loop.
type Comb struct {
	buffer   []float32
	index    int
	feedback float32
}

// NewComb creates a comb line delaying by the given number of samples.
func NewComb(delaySamples int) *Comb {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return &Comb{
		buffer: make([]float32, delaySamples),
	}
}

// SetFeedback sets the loop gain. Values at or above unity are clamped
// just below it so the tail always decays.
func (c *Comb) SetFeedback(feedback float64) {
	c.feedback = float32(math.Max(0.0, math.Min(0.999, feedback)))
}

// Feedback returns the applied loop gain.
func (c *Comb) Feedback() float64 {
	return float64(c.feedback)
}

// Process pushes one sample through the line.
func (c *Comb) Process(input float32) float32 {
	output := c.buffer[c.index]
	c.buffer[c.index] = input + output*c.feedback

	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

// Reset clears the line, keeping its loop gain.
func (c *Comb) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.index = 0
}
