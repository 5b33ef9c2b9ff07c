// Package envelope provides the amplitude envelopes that shape voices: a
// gate envelope for held chord notes, a one-shot decay for plucks and drum
// hits, and a follower for dynamics detection.
package envelope

import "math"

// Stage identifies where a gate envelope is in its lifecycle.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageSustain
	StageRelease
)

// calcCoef returns the one-pole coefficient for an exponential segment of
// the given length: exp(-1 / (time * sampleRate)).
func calcCoef(timeSeconds, sampleRate float64) float64 {
	if timeSeconds <= 0.0 {
		return 0.0
	}
	return math.Exp(-1.0 / (timeSeconds * sampleRate))
}

// Gate is an attack-sustain-release envelope. Trigger ramps to full level
// over the attack time and holds; Release ramps back to silence and the
// envelope goes idle, which is how voices signal they can be reaped.
type Gate struct {
	sampleRate float64
	attack     float64
	release    float64

	attackCoef  float64
	releaseCoef float64

	stage  Stage
	value  float64
	target float64
}

// NewGate creates a gate envelope with a 10ms attack and 300ms release.
func NewGate(sampleRate float64) *Gate {
	g := &Gate{
		sampleRate: sampleRate,
		attack:     0.01,
		release:    0.3,
	}
	g.updateCoefficients()
	return g
}

// SetAttack sets the attack time in seconds, minimum 1ms.
func (g *Gate) SetAttack(seconds float64) {
	g.attack = math.Max(0.001, seconds)
	g.updateCoefficients()
}

// SetRelease sets the release time in seconds, minimum 1ms.
func (g *Gate) SetRelease(seconds float64) {
	g.release = math.Max(0.001, seconds)
	g.updateCoefficients()
}

func (g *Gate) updateCoefficients() {
	g.attackCoef = calcCoef(g.attack, g.sampleRate)
	g.releaseCoef = calcCoef(g.release, g.sampleRate)
}

// Trigger starts the attack phase.
func (g *Gate) Trigger() {
	g.stage = StageAttack
	g.target = 1.0
}

// Release starts the release phase using the configured release time.
func (g *Gate) Release() {
	if g.stage != StageIdle {
		g.stage = StageRelease
		g.target = 0.0
	}
}

// ReleaseIn overrides the release time for this release only, then starts
// the release phase. Used for fast voice stealing and immediate stops.
func (g *Gate) ReleaseIn(seconds float64) {
	g.releaseCoef = calcCoef(math.Max(0.001, seconds), g.sampleRate)
	if g.stage != StageIdle {
		g.stage = StageRelease
		g.target = 0.0
	}
}

// Next generates the next envelope value.
func (g *Gate) Next() float32 {
	switch g.stage {
	case StageAttack:
		g.value = g.target + (g.value-g.target)*g.attackCoef
		if g.value >= 0.999 {
			g.value = 1.0
			g.stage = StageSustain
		}

	case StageSustain:
		g.value = 1.0

	case StageRelease:
		g.value = g.target + (g.value-g.target)*g.releaseCoef
		if g.value <= 0.001 {
			g.value = 0.0
			g.stage = StageIdle
		}

	case StageIdle:
		g.value = 0.0
	}
	return float32(g.value)
}

// IsActive returns true until the release completes.
func (g *Gate) IsActive() bool {
	return g.stage != StageIdle
}

// GetStage returns the current stage.
func (g *Gate) GetStage() Stage {
	return g.stage
}

// Reset silences the envelope immediately.
func (g *Gate) Reset() {
	g.stage = StageIdle
	g.value = 0.0
	g.target = 0.0
}

// Decay is a one-shot exponential decay envelope for plucks and drum hits:
// it jumps to a start level on Trigger and decays toward silence with a
// settable time constant, going idle below -72dB.
type Decay struct {
	sampleRate float64
	time       float64
	coef       float64

	active bool
	value  float64
}

// silenceFloor is -72dB, the level below which a decay self-terminates.
const silenceFloor = 0.00025

// NewDecay creates a decay envelope with a 500ms time constant.
func NewDecay(sampleRate float64) *Decay {
	d := &Decay{sampleRate: sampleRate}
	d.SetTime(0.5)
	return d
}

// SetTime sets the decay time constant in seconds, clamped to 10ms..10s.
func (d *Decay) SetTime(seconds float64) {
	d.time = math.Max(0.01, math.Min(10.0, seconds))
	d.coef = calcCoef(d.time, d.sampleRate)
}

// Trigger restarts the decay from the given level.
func (d *Decay) Trigger(level float64) {
	d.value = math.Max(0.0, math.Min(1.0, level))
	d.active = d.value > silenceFloor
}

// Next generates the next envelope value.
func (d *Decay) Next() float32 {
	if !d.active {
		return 0.0
	}
	d.value *= d.coef
	if d.value <= silenceFloor {
		d.value = 0.0
		d.active = false
	}
	return float32(d.value)
}

// IsActive returns true while the decay is audible.
func (d *Decay) IsActive() bool {
	return d.active
}

// Reset silences the envelope immediately.
func (d *Decay) Reset() {
	d.active = false
	d.value = 0.0
}

// Follower tracks a signal's amplitude envelope with separate attack and
// release smoothing. The compressor's detector.
type Follower struct {
	sampleRate  float64
	attack      float64
	release     float64
	attackCoef  float64
	releaseCoef float64
	envelope    float64
}

// NewFollower creates a follower with 10ms attack and 100ms release.
func NewFollower(sampleRate float64) *Follower {
	f := &Follower{
		sampleRate: sampleRate,
		attack:     0.01,
		release:    0.1,
	}
	f.updateCoefficients()
	return f
}

// SetAttack sets the attack time in seconds.
func (f *Follower) SetAttack(seconds float64) {
	f.attack = math.Max(0.0001, seconds)
	f.updateCoefficients()
}

// SetRelease sets the release time in seconds.
func (f *Follower) SetRelease(seconds float64) {
	f.release = math.Max(0.0001, seconds)
	f.updateCoefficients()
}

func (f *Follower) updateCoefficients() {
	f.attackCoef = calcCoef(f.attack, f.sampleRate)
	f.releaseCoef = calcCoef(f.release, f.sampleRate)
}

// Follow processes one sample and returns the tracked envelope.
func (f *Follower) Follow(input float32) float32 {
	abs := float64(input)
	if abs < 0 {
		abs = -abs
	}
	if abs > f.envelope {
		f.envelope = abs + (f.envelope-abs)*f.attackCoef
	} else {
		f.envelope = abs + (f.envelope-abs)*f.releaseCoef
	}
	return float32(f.envelope)
}

// Reset clears the tracked envelope.
func (f *Follower) Reset() {
	f.envelope = 0.0
}
