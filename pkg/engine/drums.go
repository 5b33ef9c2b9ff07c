package engine

import (
	"math"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/envelope"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/filter"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/noise"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/osc"
)

// Drum tunings. Kick is a sine swept from 150 Hz down to 40 Hz with a fast
// amplitude decay and a tanh stage for punch; snare is a 200 Hz body plus a
// noise burst band-passed around 2 kHz; hat is high-passed noise with a very
// fast decay. Time constants are each hit's nominal length divided by the
// sharpness of its decay curve.
const (
	kickLength  = 0.35
	kickEndHz   = 40.0
	kickSpanHz  = 110.0
	snareLength = 0.22
	snareToneHz = 200.0
	snareBandHz = 2000.0
	snareBandQ  = 1.5
	hatLength   = 0.09
	hatCutoffHz = 7000.0
	drumLevel   = 0.9
)

type drumKind int

const (
	drumKick drumKind = iota
	drumSnare
	drumHat
)

// drumVoice is a self-terminating one-shot on the rhythm bus.
type drumVoice struct {
	kind      drumKind
	tone      *osc.Oscillator
	nz        *noise.White
	flt       *filter.SVF
	amp       *envelope.Decay
	nzAmp     *envelope.Decay
	sweep     float64
	sweepCoef float64
}

func newKick(sampleRate float64) *drumVoice {
	o := osc.New(sampleRate, osc.Sine)
	o.SetFrequency(kickEndHz + kickSpanHz)
	amp := envelope.NewDecay(sampleRate)
	amp.SetTime(kickLength / 5)
	amp.Trigger(1)
	return &drumVoice{
		kind:      drumKick,
		tone:      o,
		amp:       amp,
		sweep:     1,
		sweepCoef: math.Exp(-1 / (kickLength / 8 * sampleRate)),
	}
}

func newSnare(sampleRate float64, nz *noise.White) *drumVoice {
	o := osc.New(sampleRate, osc.Sine)
	o.SetFrequency(snareToneHz)
	f := filter.New(sampleRate, filter.Bandpass)
	f.SetFrequency(snareBandHz)
	f.SetQ(snareBandQ)
	amp := envelope.NewDecay(sampleRate)
	amp.SetTime(snareLength / 10)
	amp.Trigger(1)
	nzAmp := envelope.NewDecay(sampleRate)
	nzAmp.SetTime(snareLength / 8)
	nzAmp.Trigger(1)
	return &drumVoice{
		kind:  drumSnare,
		tone:  o,
		nz:    nz,
		flt:   f,
		amp:   amp,
		nzAmp: nzAmp,
	}
}

func newHat(sampleRate float64, nz *noise.White) *drumVoice {
	f := filter.New(sampleRate, filter.Highpass)
	f.SetFrequency(hatCutoffHz)
	amp := envelope.NewDecay(sampleRate)
	amp.SetTime(hatLength / 15)
	amp.Trigger(1)
	return &drumVoice{
		kind: drumHat,
		nz:   nz,
		flt:  f,
		amp:  amp,
	}
}

func (d *drumVoice) next() float32 {
	switch d.kind {
	case drumKick:
		d.sweep *= d.sweepCoef
		d.tone.SetFrequency(kickEndHz + kickSpanHz*d.sweep)
		x := float64(d.tone.Next()) * float64(d.amp.Next())
		return float32(math.Tanh(2 * x))
	case drumSnare:
		body := d.tone.Next() * d.amp.Next() * 0.5
		wires := d.nz.Next() * d.nzAmp.Next() * 0.5
		return d.flt.Process(body+wires) * drumLevel
	default:
		return d.flt.Process(d.nz.Next()*d.amp.Next()) * drumLevel
	}
}

func (d *drumVoice) sounding() bool {
	if d.nzAmp != nil {
		return d.amp.IsActive() || d.nzAmp.IsActive()
	}
	return d.amp.IsActive()
}
