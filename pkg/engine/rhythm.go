package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MagicStino/harpichord-midi/pkg/music"
)

// StartRhythm starts (or re-patterns) the 16th-note sequencer. The graph is
// initialized first if needed so a tick can never fire against an unready
// engine. Starting the running pattern again is a no-op; a different pattern
// swaps the table and restarts from step zero without spawning a second
// timer. PatternNone stops.
func (e *Engine) StartRhythm(ctx context.Context, p music.Pattern) error {
	if p == music.PatternNone {
		e.StopRhythm()
		return nil
	}
	if err := e.Initialize(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	steps := p.Steps()
	if len(steps) == 0 {
		e.log.Warn("pattern has no steps", zap.String("pattern", p.String()))
		return nil
	}
	if e.seqQuit != nil {
		if p == e.seqPattern {
			return nil
		}
		e.seqPattern = p
		e.seqSteps = steps
		e.seqStep = 0
		e.log.Info("rhythm pattern changed", zap.String("pattern", p.String()))
		return nil
	}
	e.seqPattern = p
	e.seqSteps = steps
	e.seqStep = 0
	e.seqQuit = make(chan struct{})
	e.log.Info("rhythm started",
		zap.String("pattern", p.String()), zap.Int("tempo", int(e.tempo)))
	go e.runRhythm(e.seqQuit)
	return nil
}

// StopRhythm halts the sequencer. Safe to call at any time, running or not.
func (e *Engine) StopRhythm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seqQuit == nil {
		return
	}
	close(e.seqQuit)
	e.seqQuit = nil
	e.seqPattern = music.PatternNone
	e.seqSteps = nil
	e.seqStep = 0
	e.log.Info("rhythm stopped")
}

// RhythmRunning reports whether the sequencer timer is live.
func (e *Engine) RhythmRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seqQuit != nil
}

// runRhythm is the sequencer goroutine: a single timer rearmed after every
// tick, so a tempo change is picked up on the very next step.
func (e *Engine) runRhythm(quit chan struct{}) {
	timer := time.NewTimer(e.stepInterval())
	defer timer.Stop()
	for {
		select {
		case <-quit:
			return
		case <-timer.C:
			e.tick()
			timer.Reset(e.stepInterval())
		}
	}
}

func (e *Engine) stepInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return music.StepDuration(e.tempo)
}

// tick fires the drum hits for the current step and advances the counter
// modulo the pattern's cycle length.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seqQuit == nil || e.state != StateReady || len(e.seqSteps) == 0 {
		return
	}
	st := e.seqSteps[e.seqStep%len(e.seqSteps)]
	e.seqStep++
	if st.Kick {
		e.addDrumLocked(newKick(e.sampleRate))
	}
	if st.Snare {
		e.addDrumLocked(newSnare(e.sampleRate, e.nz))
	}
	if st.Hat {
		e.addDrumLocked(newHat(e.sampleRate, e.nz))
	}
}
