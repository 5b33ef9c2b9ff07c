// Package delay provides the interpolated delay line and the tempo-synced
// stereo echo network built on it.
package delay

import "github.com/MagicStino/harpichord-midi/pkg/dsp/interpolation"

// Line is a ring-buffer delay line with linear-interpolated fractional
// reads, sized once at construction.
type Line struct {
	buffer     []float32
	size       int
	writePos   int
	sampleRate float64
}

// NewLine creates a delay line holding up to maxDelaySeconds of audio.
func NewLine(sampleRate, maxDelaySeconds float64) *Line {
	size := int(maxDelaySeconds*sampleRate) + 2
	return &Line{
		buffer:     make([]float32, size),
		size:       size,
		sampleRate: sampleRate,
	}
}

// MaxDelay returns the largest readable delay in samples.
func (l *Line) MaxDelay() float64 {
	return float64(l.size - 2)
}

// Write pushes a sample into the line.
func (l *Line) Write(sample float32) {
	l.buffer[l.writePos] = sample
	l.writePos++
	if l.writePos >= l.size {
		l.writePos = 0
	}
}

// Read returns the sample delaySamples behind the write head, linearly
// interpolating between neighbors for fractional delays.
func (l *Line) Read(delaySamples float64) float32 {
	if delaySamples < 0 {
		delaySamples = 0
	}
	if max := l.MaxDelay(); delaySamples > max {
		delaySamples = max
	}

	readPos := float64(l.writePos) - delaySamples
	if readPos < 0 {
		readPos += float64(l.size)
	}

	i := int(readPos)
	frac := float32(readPos - float64(i))
	return interpolation.Linear(l.buffer[i], l.buffer[(i+1)%l.size], frac)
}

// Process reads the delayed sample then writes the input.
func (l *Line) Process(input float32, delaySamples float64) float32 {
	out := l.Read(delaySamples)
	l.Write(input)
	return out
}

// SampleRate returns the line's sample rate.
func (l *Line) SampleRate() float64 {
	return l.sampleRate
}

// Reset clears the buffer.
func (l *Line) Reset() {
	for i := range l.buffer {
		l.buffer[i] = 0
	}
	l.writePos = 0
}
