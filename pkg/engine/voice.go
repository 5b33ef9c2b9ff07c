package engine

import (
	"math"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/envelope"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/filter"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/osc"
)

// busID identifies one of the four source buses in the graph.
type busID int

const (
	busChord busID = iota
	busHarp
	busRhythm
	busBass
	numBuses
)

// Per-voice mix levels. Chord voices stack one per interval, so each sits
// low enough that a five-note chord stays under unity before the bus gain.
const (
	chordVoiceLevel = 0.2
	bassVoiceLevel  = 0.4
	harpVoiceLevel  = 0.5

	// bass voices sit behind a fixed lowpass instead of tracking the
	// chord cutoff
	bassCutoffHz = 600.0
)

// voice is a single tonal voice: oscillator through a state-variable
// filter into an envelope. Chord and bass voices hold a gate envelope
// (attack, sustain, release); harp plucks hold a one-shot decay. Chord
// voices additionally carry a vibrato LFO on the carrier.
type voice struct {
	bus      busID
	osc      *osc.Oscillator
	osc2     *osc.Oscillator // bass only: saw layered under the sine
	oscMix   float64         // bass only: 0 = pure sine, 1 = pure saw
	vib      *osc.LFO        // chord only
	flt      *filter.SVF
	gate     *envelope.Gate  // chord and bass
	decay    *envelope.Decay // harp
	baseFreq float64
	level    float64
	seq      uint64
}

func newChordVoice(sampleRate float64, shape osc.Shape, freq, attack, release, cutoff, vibSemis, vibRate float64) *voice {
	o := osc.New(sampleRate, shape)
	o.SetFrequency(freq)
	f := filter.New(sampleRate, filter.Lowpass)
	f.SetFrequency(cutoff)
	g := envelope.NewGate(sampleRate)
	g.SetAttack(attack)
	g.SetRelease(release)
	g.Trigger()
	lfo := osc.NewLFO(sampleRate)
	lfo.SetDepth(vibSemis)
	lfo.SetRate(vibRate)
	return &voice{
		bus:      busChord,
		osc:      o,
		vib:      lfo,
		flt:      f,
		gate:     g,
		baseFreq: freq,
		level:    chordVoiceLevel,
	}
}

func newBassVoice(sampleRate, freq, mix, attack, release float64) *voice {
	sine := osc.New(sampleRate, osc.Sine)
	sine.SetFrequency(freq)
	saw := osc.New(sampleRate, osc.Saw)
	saw.SetFrequency(freq)
	f := filter.New(sampleRate, filter.Lowpass)
	f.SetFrequency(bassCutoffHz)
	g := envelope.NewGate(sampleRate)
	g.SetAttack(attack)
	g.SetRelease(release)
	g.Trigger()
	return &voice{
		bus:      busBass,
		osc:      sine,
		osc2:     saw,
		oscMix:   mix,
		flt:      f,
		gate:     g,
		baseFreq: freq,
		level:    bassVoiceLevel,
	}
}

func newHarpVoice(sampleRate float64, shape osc.Shape, freq, decayTime, cutoff float64) *voice {
	o := osc.New(sampleRate, shape)
	o.SetFrequency(freq)
	f := filter.New(sampleRate, filter.Lowpass)
	f.SetFrequency(cutoff)
	d := envelope.NewDecay(sampleRate)
	d.SetTime(decayTime)
	d.Trigger(1)
	return &voice{
		bus:      busHarp,
		osc:      o,
		flt:      f,
		decay:    d,
		baseFreq: freq,
		level:    harpVoiceLevel,
	}
}

// next renders one sample. cutoff carries the bus cutoff in Hz; retune is
// set only while that cutoff is gliding, so the filter coefficient update
// is skipped on the steady-state hot path.
func (v *voice) next(cutoff float64, retune bool) float32 {
	if retune {
		v.flt.SetFrequency(cutoff)
	}
	if v.vib != nil {
		if semis := v.vib.Next(); semis != 0 {
			v.osc.SetFrequency(v.baseFreq * math.Pow(2, semis/12.0))
		}
	}
	s := float64(v.osc.Next())
	if v.osc2 != nil {
		s = s*(1-v.oscMix) + float64(v.osc2.Next())*v.oscMix
	}
	var env float32
	if v.gate != nil {
		env = v.gate.Next()
	} else {
		env = v.decay.Next()
	}
	return v.flt.Process(float32(s)) * env * float32(v.level)
}

// sounding reports whether the voice still produces audio. Voices that go
// quiet are reaped by the render loop.
func (v *voice) sounding() bool {
	if v.gate != nil {
		return v.gate.IsActive()
	}
	return v.decay.IsActive()
}

// release starts the voice's fade-out. seconds <= 0 uses the release time
// the voice was created with.
func (v *voice) release(seconds float64) {
	if v.gate == nil {
		return
	}
	if seconds > 0 {
		v.gate.ReleaseIn(seconds)
		return
	}
	v.gate.Release()
}
