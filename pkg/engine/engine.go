// Package engine owns the audio graph: four source buses (chord, harp,
// rhythm, bass) feeding tempo-synced delay and comb reverb sends, a
// saturation stage, and a stereo compressor. All state is guarded by one
// mutex; parameter setters only move smoother targets, so the audio-rate
// work stays in Render.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/MagicStino/harpichord-midi/pkg/audio"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/delay"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/dynamics"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/filter"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/noise"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/osc"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/param"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/reverb"
	"github.com/MagicStino/harpichord-midi/pkg/dsp/shaper"
	"github.com/MagicStino/harpichord-midi/pkg/music"
)

// State tracks the engine lifecycle. Triggers only fire in StateReady;
// after StateFailed every setter and trigger is a logged no-op until a
// retried Initialize succeeds.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	// maxVoices bounds the tonal voice pool; past it the oldest harp
	// pluck is dropped first.
	maxVoices = 64
	maxDrums  = 32

	// stealRelease fades the previous chord when a new one arrives;
	// immediateRelease is the "stop now" fade. Both are short enough to
	// read as instant and long enough not to click.
	stealReleaseSeconds     = 0.03
	immediateReleaseSeconds = 0.01

	// longest delay the network must hold: a half note at 30 BPM is 4 s
	maxDelaySeconds = 4.5
)

// Config carries the engine's construction dependencies. Zero values fall
// back to 44.1 kHz, a Null output, and a nop logger.
type Config struct {
	SampleRate int
	Output     audio.Output
	Logger     *zap.Logger
}

// Engine is the process-wide signal graph and voice manager.
type Engine struct {
	mu  sync.Mutex
	log *zap.Logger

	sampleRate float64
	output     audio.Output

	state    State
	initDone chan struct{}
	initErr  error

	voices  []*voice
	drums   []*drumVoice
	nextSeq uint64
	nz      *noise.White

	// settings captured by voices at trigger time
	chordShape osc.Shape
	harpShape  osc.Shape
	octave     int
	harpOctave int
	attack     float64
	release    float64
	harpDecay  float64
	bassOn     bool
	bassMix    float64
	vibSemis   float64
	vibRate    float64

	tempo       float64
	delayDiv    music.Division
	delaySpread float64

	busGain      [numBuses]*param.Smoother
	chordCutoff  *param.Smoother
	harpCutoff   *param.Smoother
	rhythmCutoff *param.Smoother
	delaySend    [3]*param.Smoother // indexed by busChord..busRhythm
	reverbSend   [3]*param.Smoother
	masterGain   *param.Smoother

	rhythmFilter *filter.SVF

	delay  *delay.Network
	reverb *reverb.Bank
	drive  *shaper.Shaper
	dcTrap *filter.DCBlocker
	comp   *dynamics.Compressor

	seqPattern music.Pattern
	seqSteps   []music.Step
	seqStep    int
	seqQuit    chan struct{}
}

// New builds the full graph up front; Initialize only has to open the
// output device.
func New(cfg Config) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Output == nil {
		cfg.Output = audio.NewNull()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	sr := float64(cfg.SampleRate)

	e := &Engine{
		log:          cfg.Logger,
		sampleRate:   sr,
		output:       cfg.Output,
		nz:           noise.NewWhite(1),
		chordShape:   osc.Saw,
		harpShape:    osc.Triangle,
		tempo:        120,
		delayDiv:     music.DivEighth,
		rhythmFilter: filter.New(sr, filter.Lowpass),
		delay:        delay.NewNetwork(sr, maxDelaySeconds),
		reverb:       reverb.NewBank(sr),
		drive:        shaper.New(sr),
		dcTrap:       filter.NewDCBlocker(sr),
		comp:         dynamics.New(sr),
	}

	gainRate := param.ExpRate(sr, 0.02)
	cutoffRate := param.ExpRate(sr, 0.03)
	for b := range e.busGain {
		e.busGain[b] = param.NewSmoother(param.Exponential, gainRate)
	}
	e.chordCutoff = param.NewSmoother(param.Exponential, cutoffRate)
	e.harpCutoff = param.NewSmoother(param.Exponential, cutoffRate)
	e.rhythmCutoff = param.NewSmoother(param.Exponential, cutoffRate)
	for i := range e.delaySend {
		e.delaySend[i] = param.NewSmoother(param.Exponential, gainRate)
		e.reverbSend[i] = param.NewSmoother(param.Exponential, gainRate)
	}
	e.masterGain = param.NewSmoother(param.Exponential, gainRate)

	e.applyDefaults()
	e.snapSmoothers()
	return e
}

// applyDefaults runs the public setters once so every parameter starts on
// its documented curve.
func (e *Engine) applyDefaults() {
	e.SetChordVolume(0.7)
	e.SetHarpVolume(0.7)
	e.SetRhythmVolume(0.7)
	e.SetBassVolume(0.7)
	e.SetMasterVolume(0.8)
	e.SetChordCutoff(0.6)
	e.SetHarpCutoff(0.8)
	e.SetRhythmCutoff(0.7)
	e.SetAttack(0.25)
	e.SetRelease(0.4)
	e.SetSustain(0.5)
	e.SetBassWaveformMix(0.5)
	e.SetVibrato(0, 5)
	e.UpdateDelay(music.DivEighth, 0.4, 0.5, 0.3)
	e.UpdateReverb(0.5, 0.5, 1.0, 0.3)
	e.SetSends(Sends{
		ChordDelay: 0.2, ChordReverb: 0.25,
		HarpDelay: 0.25, HarpReverb: 0.3,
		RhythmDelay: 0.1, RhythmReverb: 0.15,
	})
}

// snapSmoothers jumps every smoother to its target so the first rendered
// buffer does not ramp up from zero.
func (e *Engine) snapSmoothers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := []*param.Smoother{
		e.chordCutoff, e.harpCutoff, e.rhythmCutoff, e.masterGain,
	}
	for _, s := range e.busGain {
		all = append(all, s)
	}
	for i := range e.delaySend {
		all = append(all, e.delaySend[i], e.reverbSend[i])
	}
	for _, s := range all {
		s.Reset(s.Target())
	}
}

// Initialize opens the audio output. It is safe to call concurrently:
// exactly one caller performs the work, everyone else waits for the same
// outcome. A failed engine may retry.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateInitializing:
		done := e.initDone
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.mu.Lock()
		err := e.initErr
		e.mu.Unlock()
		return err
	}
	e.state = StateInitializing
	done := make(chan struct{})
	e.initDone = done
	e.mu.Unlock()

	e.log.Info("initializing audio graph", zap.Float64("sample_rate", e.sampleRate))
	startErr := e.output.Start(e)

	e.mu.Lock()
	var retErr error
	if startErr != nil {
		retErr = fmt.Errorf("start audio output: %w", startErr)
	}
	if e.state == StateInitializing {
		if retErr != nil {
			e.state = StateFailed
			e.log.Error("audio output unavailable", zap.Error(startErr))
		} else {
			e.state = StateReady
			e.log.Info("audio graph ready")
		}
		e.initErr = retErr
	}
	close(done)
	e.mu.Unlock()
	return retErr
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SampleRate implements audio.Source.
func (e *Engine) SampleRate() int { return int(e.sampleRate) }

// Channels implements audio.Source.
func (e *Engine) Channels() int { return 2 }

// Render fills out with interleaved stereo. Anything but StateReady
// renders silence; the output device may start pulling before
// initialization settles.
func (e *Engine) Render(out []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		for i := range out {
			out[i] = 0
		}
		return
	}
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = e.renderFrame()
	}
	if len(out)%2 == 1 {
		out[len(out)-1] = 0
	}
	e.reapLocked()
}

func (e *Engine) renderFrame() (float32, float32) {
	// bus cutoffs glide; per-voice filters retune only while a glide is live
	retuneChord := e.chordCutoff.IsSmoothing()
	chordCut := e.chordCutoff.Next()
	retuneHarp := e.harpCutoff.IsSmoothing()
	harpCut := e.harpCutoff.Next()
	if e.rhythmCutoff.IsSmoothing() {
		e.rhythmFilter.SetFrequency(e.rhythmCutoff.Next())
	} else {
		e.rhythmCutoff.Next()
	}

	var sum [numBuses]float64
	for _, v := range e.voices {
		if !v.sounding() {
			continue
		}
		switch v.bus {
		case busChord:
			sum[busChord] += float64(v.next(chordCut, retuneChord))
		case busHarp:
			sum[busHarp] += float64(v.next(harpCut, retuneHarp))
		default:
			sum[v.bus] += float64(v.next(0, false))
		}
	}
	for _, d := range e.drums {
		if d.sounding() {
			sum[busRhythm] += float64(d.next())
		}
	}

	chord := sum[busChord] * e.busGain[busChord].Next()
	harp := sum[busHarp] * e.busGain[busHarp].Next()
	rhythm := float64(e.rhythmFilter.Process(float32(sum[busRhythm]))) * e.busGain[busRhythm].Next()
	bass := sum[busBass] * e.busGain[busBass].Next()

	cd := e.delaySend[busChord].Next()
	cr := e.reverbSend[busChord].Next()
	hd := e.delaySend[busHarp].Next()
	hr := e.reverbSend[busHarp].Next()
	rd := e.delaySend[busRhythm].Next()
	rr := e.reverbSend[busRhythm].Next()

	// dry gain is derived from the sends; the bass bus is dry-only
	dry := chord*dryGain(cd, cr) + harp*dryGain(hd, hr) + rhythm*dryGain(rd, rr) + bass
	delayIn := float32(chord*cd + harp*hd + rhythm*rd)
	reverbIn := float32(chord*cr + harp*hr + rhythm*rr)

	wetDL, wetDR := e.delay.Process(delayIn, delayIn)
	wetRL, wetRR := e.reverb.Process(reverbIn)

	l := float32(dry) + wetDL + wetRL
	r := float32(dry) + wetDR + wetRR
	l, r = e.drive.ProcessStereo(l, r)
	l, r = e.dcTrap.ProcessStereo(l, r) // the saturator's asymmetry leaves a standing offset
	l, r = e.comp.ProcessStereo(l, r)

	m := float32(e.masterGain.Next())
	return l * m, r * m
}

func dryGain(delaySend, reverbSend float64) float64 {
	g := 1 - delaySend - reverbSend
	if g < 0 {
		return 0
	}
	return g
}

// reapLocked drops voices whose envelopes have gone idle.
func (e *Engine) reapLocked() {
	live := e.voices[:0]
	for _, v := range e.voices {
		if v.sounding() {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(e.voices); i++ {
		e.voices[i] = nil
	}
	e.voices = live

	liveDrums := e.drums[:0]
	for _, d := range e.drums {
		if d.sounding() {
			liveDrums = append(liveDrums, d)
		}
	}
	for i := len(liveDrums); i < len(e.drums); i++ {
		e.drums[i] = nil
	}
	e.drums = liveDrums
}

// PlayChord retires the sounding chord with a fast fade, then starts one
// voice per interval plus the optional bass voice on the root.
func (e *Engine) PlayChord(c music.Chord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		e.log.Debug("chord dropped, graph not ready",
			zap.String("state", e.state.String()), zap.String("chord", c.Label))
		return
	}
	if len(c.Intervals) == 0 {
		e.log.Warn("chord with empty interval list", zap.String("chord", c.Label))
		return
	}
	pc, ok := music.PitchClass(c.Root)
	if !ok {
		e.log.Warn("unknown chord root", zap.String("root", c.Root))
		return
	}
	e.releaseChordLocked(stealReleaseSeconds)
	base := music.NoteFrequency(music.MiddleCNote + pc)
	for _, iv := range c.Intervals {
		freq := music.IntervalFrequency(base, iv, e.octave)
		v := newChordVoice(e.sampleRate, e.chordShape, freq,
			e.attack, e.release, e.chordCutoff.Value(), e.vibSemis, e.vibRate)
		e.addVoiceLocked(v)
	}
	if e.bassOn {
		freq := music.IntervalFrequency(base, c.Intervals[0], e.octave-1)
		e.addVoiceLocked(newBassVoice(e.sampleRate, freq, e.bassMix, e.attack, e.release))
	}
}

// StopChord fades all chord and bass voices: a short fixed fade when
// immediate, otherwise each voice's configured release. Always safe to
// call, including before any chord started.
func (e *Engine) StopChord(immediate bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if immediate {
		e.releaseChordLocked(immediateReleaseSeconds)
		return
	}
	e.releaseChordLocked(0)
}

// StopChordIn fades all chord and bass voices over the given duration,
// overriding their configured release.
func (e *Engine) StopChordIn(seconds float64) {
	if seconds < 0.001 {
		seconds = 0.001
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseChordLocked(seconds)
}

func (e *Engine) releaseChordLocked(seconds float64) {
	for _, v := range e.voices {
		if v.bus == busChord || v.bus == busBass {
			v.release(seconds)
		}
	}
}

// PlayHarpNote starts one fire-and-forget pluck; the string index walks the
// chord's intervals and climbs an octave on each wrap.
func (e *Engine) PlayHarpNote(c music.Chord, stringIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		e.log.Debug("harp note dropped, graph not ready",
			zap.String("state", e.state.String()))
		return
	}
	if len(c.Intervals) == 0 {
		e.log.Warn("chord with empty interval list", zap.String("chord", c.Label))
		return
	}
	pc, ok := music.PitchClass(c.Root)
	if !ok {
		e.log.Warn("unknown chord root", zap.String("root", c.Root))
		return
	}
	base := music.NoteFrequency(music.MiddleCNote + pc)
	iv, oct := music.HarpString(c, stringIndex)
	freq := music.IntervalFrequency(base, iv, oct+e.octave+e.harpOctave)
	e.addVoiceLocked(newHarpVoice(e.sampleRate, e.harpShape, freq, e.harpDecay, e.harpCutoff.Value()))
}

// TriggerKick starts a kick drum hit.
func (e *Engine) TriggerKick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return
	}
	e.addDrumLocked(newKick(e.sampleRate))
}

// TriggerSnare starts a snare hit.
func (e *Engine) TriggerSnare() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return
	}
	e.addDrumLocked(newSnare(e.sampleRate, e.nz))
}

// TriggerHat starts a hihat hit.
func (e *Engine) TriggerHat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return
	}
	e.addDrumLocked(newHat(e.sampleRate, e.nz))
}

func (e *Engine) addVoiceLocked(v *voice) {
	v.seq = e.nextSeq
	e.nextSeq++
	if len(e.voices) >= maxVoices {
		e.cullOldestLocked()
	}
	e.voices = append(e.voices, v)
}

// cullOldestLocked drops the oldest harp voice, or the oldest voice of any
// kind when no harp voice is live. Only reached when a trigger storm beats
// the reaper to the cap.
func (e *Engine) cullOldestLocked() {
	victim := -1
	oldest := uint64(math.MaxUint64)
	for i, v := range e.voices {
		if v.bus == busHarp && v.seq < oldest {
			oldest, victim = v.seq, i
		}
	}
	if victim == -1 {
		for i, v := range e.voices {
			if v.seq < oldest {
				oldest, victim = v.seq, i
			}
		}
	}
	if victim >= 0 {
		e.voices = append(e.voices[:victim], e.voices[victim+1:]...)
	}
}

func (e *Engine) addDrumLocked(d *drumVoice) {
	if len(e.drums) >= maxDrums {
		copy(e.drums, e.drums[1:])
		e.drums[len(e.drums)-1] = d
		return
	}
	e.drums = append(e.drums, d)
}

// ActiveVoices counts the tonal voices still sounding.
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, v := range e.voices {
		if v.sounding() {
			n++
		}
	}
	return n
}

// ActiveDrums counts the drum hits still sounding.
func (e *Engine) ActiveDrums() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, d := range e.drums {
		if d.sounding() {
			n++
		}
	}
	return n
}

// Close stops the rhythm, drops all voices, and closes the output device.
func (e *Engine) Close() error {
	e.StopRhythm()
	e.mu.Lock()
	e.voices = nil
	e.drums = nil
	e.state = StateUninitialized
	e.mu.Unlock()
	return e.output.Close()
}
