package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MagicStino/harpichord-midi/pkg/audio"
	"github.com/MagicStino/harpichord-midi/pkg/engine"
	"github.com/MagicStino/harpichord-midi/pkg/music"
)

var renderFlags struct {
	out          string
	progression  string
	tempo        int
	pattern      string
	barsPerChord int
	tail         float64
	bass         bool
}

func init() {
	rootCmd.AddCommand(renderCmd)
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.out, "out", "harpichord.wav", "output WAV path")
	f.StringVar(&renderFlags.progression, "progression", "C,Am,F,G", "comma-separated chords (root + family suffix)")
	f.IntVar(&renderFlags.tempo, "tempo", 96, "tempo in BPM")
	f.StringVar(&renderFlags.pattern, "pattern", "backbeat", "rhythm pattern: none, four-on-floor, backbeat, waltz, shuffle")
	f.IntVar(&renderFlags.barsPerChord, "bars-per-chord", 1, "bars each chord is held")
	f.Float64Var(&renderFlags.tail, "tail", 2.5, "seconds of effect tail after the last bar")
	f.BoolVar(&renderFlags.bass, "bass", true, "add a bass voice an octave below each chord")
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Bounce a chord progression to a WAV file",
	Long: `Render plays a progression through the full signal graph offline, with
harp plucks climbing through every bar and the rhythm pattern underneath,
and writes the result as 16-bit stereo WAV. No audio or MIDI device is
opened.`,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pattern, err := music.ParsePattern(renderFlags.pattern)
	if err != nil {
		return err
	}
	prog, err := parseProgression(renderFlags.progression)
	if err != nil {
		return err
	}
	if renderFlags.barsPerChord < 1 {
		renderFlags.barsPerChord = 1
	}
	if renderFlags.tail < 0 {
		renderFlags.tail = 0
	}

	eng := engine.New(engine.Config{SampleRate: sampleRate, Output: audio.NewNull(), Logger: log})
	defer eng.Close()
	if err := eng.Initialize(cmd.Context()); err != nil {
		return err
	}
	eng.SetTempo(renderFlags.tempo)
	eng.SetBassEnabled(renderFlags.bass)

	score, seconds := buildScore(eng, prog, pattern, renderFlags.barsPerChord, sampleRate, eng.Tempo())

	f, err := os.Create(renderFlags.out)
	if err != nil {
		return err
	}
	if err := audio.BounceWAV(f, score, seconds+renderFlags.tail); err != nil {
		f.Close()
		return fmt.Errorf("bounce: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("bounce written",
		zap.String("path", renderFlags.out),
		zap.Float64("seconds", seconds+renderFlags.tail),
		zap.Int("chords", len(prog)))
	return nil
}

func parseProgression(s string) ([]music.Chord, error) {
	parts := strings.Split(s, ",")
	chords := make([]music.Chord, 0, len(parts))
	for _, part := range parts {
		c, err := parseChordName(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		chords = append(chords, c)
	}
	if len(chords) == 0 {
		return nil, fmt.Errorf("empty progression")
	}
	return chords, nil
}

// parseChordName resolves names like "C", "F#", "Am", "Bbmaj7": one root
// (with optional accidental) followed by a family suffix.
func parseChordName(s string) (music.Chord, error) {
	if s == "" {
		return music.Chord{}, fmt.Errorf("empty chord name")
	}
	rootLen := 1
	if len(s) > 1 && (s[1] == '#' || s[1] == 'b') {
		rootLen = 2
	}
	fam, err := music.ParseFamily(s[rootLen:])
	if err != nil {
		return music.Chord{}, fmt.Errorf("chord %q: %w", s, err)
	}
	c, ok := music.Lookup(s[:rootLen], fam)
	if !ok {
		return music.Chord{}, fmt.Errorf("chord %q: unknown root %q", s, s[:rootLen])
	}
	return c, nil
}

const stepsPerBar = 16

type scoreEvent struct {
	frame int
	fire  func()
}

// scoreSource pulls audio from the engine while firing scheduled triggers at
// exact frame offsets, so an offline bounce lands on the same grid a live
// performance would regardless of render speed.
type scoreSource struct {
	eng    *engine.Engine
	events []scoreEvent
	frame  int
	next   int
}

func (s *scoreSource) Render(out []float32) {
	frames := len(out) / 2
	done := 0
	for done < frames {
		for s.next < len(s.events) && s.events[s.next].frame <= s.frame {
			s.events[s.next].fire()
			s.next++
		}
		chunk := frames - done
		if s.next < len(s.events) {
			if until := s.events[s.next].frame - s.frame; until < chunk {
				chunk = until
			}
		}
		s.eng.Render(out[2*done : 2*(done+chunk)])
		s.frame += chunk
		done += chunk
	}
}

func (s *scoreSource) SampleRate() int { return s.eng.SampleRate() }
func (s *scoreSource) Channels() int   { return s.eng.Channels() }

// buildScore lays the progression, its harp plucks and the drum pattern
// onto the sixteenth-note grid. Returns the source and the scored length
// in seconds, excluding any effect tail.
func buildScore(eng *engine.Engine, prog []music.Chord, p music.Pattern, barsPerChord, rate, tempo int) (*scoreSource, float64) {
	stepSec := music.StepDuration(float64(tempo)).Seconds()
	frameAt := func(step int) int {
		return int(float64(step) * stepSec * float64(rate))
	}

	totalSteps := len(prog) * barsPerChord * stepsPerBar
	drums := p.Steps()
	var events []scoreEvent

	for step := 0; step < totalSteps; step++ {
		frame := frameAt(step)
		bar := step / stepsPerBar
		chord := prog[bar/barsPerChord]

		if step%stepsPerBar == 0 && bar%barsPerChord == 0 {
			c := chord
			events = append(events, scoreEvent{frame, func() { eng.PlayChord(c) }})
		}
		if len(drums) > 0 {
			st := drums[step%len(drums)]
			if st.Kick {
				events = append(events, scoreEvent{frame, eng.TriggerKick})
			}
			if st.Snare {
				events = append(events, scoreEvent{frame, eng.TriggerSnare})
			}
			if st.Hat {
				events = append(events, scoreEvent{frame, eng.TriggerHat})
			}
		}
		if idx := pluckIndex(step % stepsPerBar); idx >= 0 {
			c := chord
			i := idx
			events = append(events, scoreEvent{frame, func() { eng.PlayHarpNote(c, i) }})
		}
	}
	events = append(events, scoreEvent{frameAt(totalSteps), func() { eng.StopChord(false) }})

	return &scoreSource{eng: eng, events: events}, float64(totalSteps) * stepSec
}

// pluckIndex returns the harp string plucked on a bar step, -1 for none.
// Strings climb through the back three beats of every bar.
func pluckIndex(barStep int) int {
	if barStep < 4 || barStep%2 != 0 {
		return -1
	}
	return (barStep - 4) / 2
}
