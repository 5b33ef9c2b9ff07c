// Package osc provides the phase-accumulator oscillators the voices are
// built from, plus the low-frequency oscillator used for vibrato.
package osc

import "math"

// Shape selects the waveform an Oscillator produces.
type Shape int

const (
	Sine Shape = iota
	Triangle
	Saw
	Square
)

// String returns the shape's selector name.
func (s Shape) String() string {
	switch s {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	case Square:
		return "square"
	}
	return "?"
}

// Oscillator generates one periodic waveform. Phase runs 0..1.
type Oscillator struct {
	sampleRate float64
	frequency  float64
	phase      float64
	phaseInc   float64
	shape      Shape
}

// New creates an oscillator at 440 Hz.
func New(sampleRate float64, shape Shape) *Oscillator {
	return &Oscillator{
		sampleRate: sampleRate,
		frequency:  440.0,
		phaseInc:   440.0 / sampleRate,
		shape:      shape,
	}
}

// SetFrequency sets the oscillator frequency in Hz.
func (o *Oscillator) SetFrequency(freq float64) {
	o.frequency = freq
	o.phaseInc = freq / o.sampleRate
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

// SetShape switches the waveform without resetting phase.
func (o *Oscillator) SetShape(shape Shape) {
	o.shape = shape
}

// Reset rewinds the phase to zero.
func (o *Oscillator) Reset() {
	o.phase = 0.0
}

// Next generates one sample and advances the phase.
func (o *Oscillator) Next() float32 {
	var sample float32
	switch o.shape {
	case Sine:
		sample = float32(math.Sin(2.0 * math.Pi * o.phase))
	case Triangle:
		if o.phase < 0.5 {
			sample = float32(4.0*o.phase - 1.0)
		} else {
			sample = float32(3.0 - 4.0*o.phase)
		}
	case Saw:
		sample = float32(2.0*o.phase - 1.0)
	case Square:
		if o.phase < 0.5 {
			sample = 1.0
		} else {
			sample = -1.0
		}
	}

	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
	return sample
}

// Process fills a buffer with oscillator output.
func (o *Oscillator) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = o.Next()
	}
}
