package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/MagicStino/harpichord-midi/pkg/dsp/osc"
	"github.com/MagicStino/harpichord-midi/pkg/music"
)

// Sends carries the six effect-send levels, each normalized 0..1. The dry
// level per source is derived, not set: max(0, 1 - delay - reverb).
type Sends struct {
	ChordDelay, ChordReverb   float64
	HarpDelay, HarpReverb     float64
	RhythmDelay, RhythmReverb float64
}

// Parameter curves. Volumes square the normalized value so the low end of
// the knob is usable; cutoffs run exponential from 40 Hz to 12 kHz; the
// envelope times square toward their ceiling for finer control when short.
func gainCurve(v float64) float64     { return v * v }
func cutoffHz(v float64) float64      { return 40 * math.Pow(300, v) }
func attackSeconds(v float64) float64 { return 0.002 + v*v*1.498 }
func releaseSeconds(v float64) float64 {
	return 0.03 + v*v*2.97
}
func harpDecaySeconds(v float64) float64 {
	return 0.15 + v*v*3.85
}

// maxVibratoSemis is the carrier modulation depth at full vibrato amount.
const maxVibratoSemis = 0.5

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// setOK filters setter calls by lifecycle state: a failed engine drops them
// until a successful re-initialization. Must be called with the lock held.
func (e *Engine) setOK(name string) bool {
	if e.state == StateFailed {
		e.log.Debug("parameter dropped, engine failed", zap.String("param", name))
		return false
	}
	return true
}

// SetChordVolume sets the chord bus gain from a normalized value.
func (e *Engine) SetChordVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("chord_volume") {
		return
	}
	e.busGain[busChord].SetTarget(gainCurve(clamp01(v)))
}

// SetHarpVolume sets the harp bus gain from a normalized value.
func (e *Engine) SetHarpVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("harp_volume") {
		return
	}
	e.busGain[busHarp].SetTarget(gainCurve(clamp01(v)))
}

// SetRhythmVolume sets the rhythm bus gain from a normalized value.
func (e *Engine) SetRhythmVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("rhythm_volume") {
		return
	}
	e.busGain[busRhythm].SetTarget(gainCurve(clamp01(v)))
}

// SetBassVolume sets the bass bus gain from a normalized value.
func (e *Engine) SetBassVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("bass_volume") {
		return
	}
	e.busGain[busBass].SetTarget(gainCurve(clamp01(v)))
}

// SetMasterVolume sets the final output gain from a normalized value.
func (e *Engine) SetMasterVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("master_volume") {
		return
	}
	e.masterGain.SetTarget(gainCurve(clamp01(v)))
}

// SetChordCutoff glides the chord voices' lowpass cutoff.
func (e *Engine) SetChordCutoff(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("chord_cutoff") {
		return
	}
	e.chordCutoff.SetTarget(cutoffHz(clamp01(v)))
}

// SetHarpCutoff glides the harp voices' lowpass cutoff.
func (e *Engine) SetHarpCutoff(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("harp_cutoff") {
		return
	}
	e.harpCutoff.SetTarget(cutoffHz(clamp01(v)))
}

// SetRhythmCutoff glides the rhythm bus lowpass cutoff.
func (e *Engine) SetRhythmCutoff(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("rhythm_cutoff") {
		return
	}
	e.rhythmCutoff.SetTarget(cutoffHz(clamp01(v)))
}

// SetAttack sets the gain ramp time new chord and bass voices use.
func (e *Engine) SetAttack(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("attack") {
		return
	}
	e.attack = attackSeconds(clamp01(v))
}

// SetRelease sets the fade-out time for chord and bass voices. Sounding
// voices pick up the new time too, so the next StopChord honors it.
func (e *Engine) SetRelease(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("release") {
		return
	}
	e.release = releaseSeconds(clamp01(v))
	for _, vc := range e.voices {
		if vc.gate != nil {
			vc.gate.SetRelease(e.release)
		}
	}
}

// SetSustain sets the harp pluck decay time constant, retroactively for
// plucks still ringing.
func (e *Engine) SetSustain(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("sustain") {
		return
	}
	e.harpDecay = harpDecaySeconds(clamp01(v))
	for _, vc := range e.voices {
		if vc.bus == busHarp && vc.decay != nil {
			vc.decay.SetTime(e.harpDecay)
		}
	}
}

// SetTempo clamps to the playable 30..300 BPM range, retunes the delay to
// the current division, and reshapes the rhythm timer on its next tick.
func (e *Engine) SetTempo(bpm int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("tempo") {
		return
	}
	if bpm < 30 {
		bpm = 30
	}
	if bpm > 300 {
		bpm = 300
	}
	e.tempo = float64(bpm)
	e.delay.SetTime(music.DelayTime(e.tempo, e.delayDiv), e.delaySpread)
}

// Tempo returns the current tempo in BPM.
func (e *Engine) Tempo() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.tempo)
}

// SetOctave shifts future chord and harp voices by whole octaves.
func (e *Engine) SetOctave(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("octave") {
		return
	}
	e.octave = clampOctave(n)
}

// SetHarpOctave shifts future harp plucks relative to the chord octave.
func (e *Engine) SetHarpOctave(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("harp_octave") {
		return
	}
	e.harpOctave = clampOctave(n)
}

func clampOctave(n int) int {
	if n < -3 {
		return -3
	}
	if n > 3 {
		return 3
	}
	return n
}

// SetBassEnabled toggles the bass voice on future chords.
func (e *Engine) SetBassEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("bass_enabled") {
		return
	}
	e.bassOn = on
}

// SetBassWaveformMix crossfades the bass between sine (0) and saw (1),
// including voices already sounding.
func (e *Engine) SetBassWaveformMix(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("bass_waveform_mix") {
		return
	}
	e.bassMix = clamp01(v)
	for _, vc := range e.voices {
		if vc.bus == busBass {
			vc.oscMix = e.bassMix
		}
	}
}

// SetChordWaveform sets the oscillator shape new chord voices use.
func (e *Engine) SetChordWaveform(shape osc.Shape) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("chord_waveform") {
		return
	}
	e.chordShape = shape
}

// SetHarpWaveform sets the oscillator shape new harp plucks use.
func (e *Engine) SetHarpWaveform(shape osc.Shape) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("harp_waveform") {
		return
	}
	e.harpShape = shape
}

// SetVibrato sets modulation depth (normalized, scaled to half a semitone
// at full) and rate in Hz. Applies to sounding chord voices as well as
// future ones; disabling snaps carriers back to their base pitch.
func (e *Engine) SetVibrato(amount, rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("vibrato") {
		return
	}
	e.vibSemis = clamp01(amount) * maxVibratoSemis
	e.vibRate = math.Max(0.05, math.Min(20, rate))
	for _, vc := range e.voices {
		if vc.vib == nil {
			continue
		}
		vc.vib.SetDepth(e.vibSemis)
		vc.vib.SetRate(e.vibRate)
		if e.vibSemis == 0 {
			vc.osc.SetFrequency(vc.baseFreq)
		}
	}
}

// SetTubeAmp configures the saturation stage. Drive reshapes the transfer
// curve; wet crossfades it against the dry path; disabling fades the wet
// path out rather than hard-switching.
func (e *Engine) SetTubeAmp(enabled bool, drive, wet float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("tube_amp") {
		return
	}
	e.drive.SetDrive(clamp01(drive))
	e.drive.SetMix(clamp01(wet))
	e.drive.SetEnabled(enabled)
}

// UpdateDelay reconfigures the delay network: note division against the
// current tempo, feedback (capped inside the network), tone of the
// feedback path, and stereo spread detune.
func (e *Engine) UpdateDelay(div music.Division, feedback, tone, spread float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("delay") {
		return
	}
	e.delayDiv = div
	e.delaySpread = clamp01(spread)
	e.delay.SetTime(music.DelayTime(e.tempo, div), e.delaySpread)
	e.delay.SetFeedback(clamp01(feedback))
	e.delay.SetTone(clamp01(tone))
}

// UpdateReverb reconfigures the comb bank: size scales per-line feedback,
// damp opens the shared damping filter (higher = brighter tail), width
// spreads the stereo image, color high-passes the input.
func (e *Engine) UpdateReverb(size, damp, width, color float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("reverb") {
		return
	}
	e.reverb.SetSize(clamp01(size))
	e.reverb.SetDamp(clamp01(damp))
	e.reverb.SetWidth(clamp01(width))
	e.reverb.SetColor(clamp01(color))
}

// SetSends moves all six effect-send gains.
func (e *Engine) SetSends(s Sends) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.setOK("sends") {
		return
	}
	e.delaySend[busChord].SetTarget(clamp01(s.ChordDelay))
	e.reverbSend[busChord].SetTarget(clamp01(s.ChordReverb))
	e.delaySend[busHarp].SetTarget(clamp01(s.HarpDelay))
	e.reverbSend[busHarp].SetTarget(clamp01(s.HarpReverb))
	e.delaySend[busRhythm].SetTarget(clamp01(s.RhythmDelay))
	e.reverbSend[busRhythm].SetTarget(clamp01(s.RhythmReverb))
}
