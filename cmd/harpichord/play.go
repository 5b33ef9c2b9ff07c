package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MagicStino/harpichord-midi/pkg/audio"
	"github.com/MagicStino/harpichord-midi/pkg/engine"
	"github.com/MagicStino/harpichord-midi/pkg/midibridge"
	"github.com/MagicStino/harpichord-midi/pkg/music"
)

var playFlags struct {
	input      string
	output     string
	inChannel  uint8
	outChannel uint8
	thru       bool
	tempo      int
	pattern    string
	bass       bool
}

func init() {
	rootCmd.AddCommand(playCmd)
	f := playCmd.Flags()
	f.StringVar(&playFlags.input, "input", midibridge.DeviceAll, `input device id, "all" or "none"`)
	f.StringVar(&playFlags.output, "output", midibridge.DeviceNone, `output device id for chord/harp sends, "none" disables`)
	f.Uint8Var(&playFlags.inChannel, "channel", 0, "input channel filter 1-16, 0 listens on all")
	f.Uint8Var(&playFlags.outChannel, "out-channel", 1, "channel for outgoing sends")
	f.BoolVar(&playFlags.thru, "thru", false, "forward matched input to the output device")
	f.IntVar(&playFlags.tempo, "tempo", 120, "tempo in BPM")
	f.StringVar(&playFlags.pattern, "pattern", "none", "rhythm pattern: none, four-on-floor, backbeat, waltz, shuffle")
	f.BoolVar(&playFlags.bass, "bass", false, "add a bass voice an octave below each chord")
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run the live instrument",
	Long: `Play opens the audio device, requests MIDI access and maps the keyboard
into chord rows: a key's pitch class picks the chord root and its octave
picks the family (C2 row = major, C3 = minor, C4 = dominant 7th,
C5 = major 7th, C6 = sus4). Releasing the key releases the chord.
Keys from C7 upward pluck harp strings over the chord currently held.`,
	RunE: runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pattern, err := music.ParsePattern(playFlags.pattern)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := audio.NewDefault(sampleRate, 2)
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	eng := engine.New(engine.Config{SampleRate: sampleRate, Output: out, Logger: log})
	defer eng.Close()
	if err := eng.Initialize(ctx); err != nil {
		return err
	}
	eng.SetTempo(playFlags.tempo)
	eng.SetBassEnabled(playFlags.bass)

	bridge := midibridge.New(midibridge.Config{Logger: log})
	defer bridge.Close()
	if st := bridge.RequestAccess(); st != midibridge.StatusReady {
		// not fatal: the hot-plug loop picks up devices that appear later
		log.Warn("midi not ready, waiting for devices", zap.String("status", st.String()))
	}
	go bridge.Run(ctx)

	player := newChordPlayer(eng, log)
	inst := midibridge.NewInstrument(bridge, midibridge.InstrumentConfig{
		InputID:       playFlags.input,
		OutputID:      playFlags.output,
		InputChannel:  playFlags.inChannel,
		OutputChannel: playFlags.outChannel,
		Thru:          playFlags.thru,
	}, player.handle)
	defer inst.Close()
	player.attach(inst)

	if pattern != music.PatternNone {
		if err := eng.StartRhythm(ctx, pattern); err != nil {
			return err
		}
	}

	log.Info("instrument running",
		zap.Int("sampleRate", sampleRate),
		zap.Int("tempo", playFlags.tempo),
		zap.String("pattern", pattern.String()),
		zap.String("input", playFlags.input))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// Keyboard layout for the live instrument: chord family rows stacked an
// octave apart starting at C2, harp strings from C7 upward.
var familyRows = []music.Family{music.Major, music.Minor, music.Seventh, music.Major7, music.Sus4}

const (
	chordRowBase = 36 // C2
	harpBase     = 96 // C7
)

// chordPlayer turns filtered MIDI input into engine triggers and mirrors
// them to the configured output device.
type chordPlayer struct {
	eng *engine.Engine
	log *zap.Logger

	mu       sync.Mutex
	inst     *midibridge.Instrument
	held     music.Chord
	heldNote uint8
	sounding bool
}

func newChordPlayer(eng *engine.Engine, log *zap.Logger) *chordPlayer {
	return &chordPlayer{eng: eng, log: log}
}

// attach hands the player its send target; the instrument cannot exist
// before the handler does.
func (p *chordPlayer) attach(inst *midibridge.Instrument) {
	p.mu.Lock()
	p.inst = inst
	p.mu.Unlock()
}

func (p *chordPlayer) handle(deviceID string, m midibridge.Message) {
	switch {
	case m.IsNoteOn():
		p.noteOn(m.Data1(), m.Data2())
	case m.IsNoteOff():
		p.noteOff(m.Data1())
	}
}

func (p *chordPlayer) noteOn(note, velocity uint8) {
	if int(note) >= harpBase {
		p.mu.Lock()
		held, sounding, inst := p.held, p.sounding, p.inst
		p.mu.Unlock()
		if !sounding {
			return
		}
		stringIndex := int(note) - harpBase
		p.eng.PlayHarpNote(held, stringIndex)
		if inst != nil {
			inst.SendHarpNote(held, stringIndex, 0, 0, velocity)
		}
		return
	}

	row := (int(note) - chordRowBase) / 12
	if row < 0 {
		row = 0
	}
	if row >= len(familyRows) {
		row = len(familyRows) - 1
	}
	chord, ok := music.Lookup(rootName(note), familyRows[row])
	if !ok {
		return
	}
	p.mu.Lock()
	p.held, p.heldNote, p.sounding = chord, note, true
	inst := p.inst
	p.mu.Unlock()

	p.log.Debug("chord", zap.String("label", chord.Label))
	p.eng.PlayChord(chord)
	if inst != nil {
		inst.SendChord(&chord, velocity)
	}
}

func (p *chordPlayer) noteOff(note uint8) {
	p.mu.Lock()
	match := p.sounding && p.heldNote == note
	if match {
		p.sounding = false
	}
	inst := p.inst
	p.mu.Unlock()
	if !match {
		return
	}
	p.eng.StopChord(false)
	if inst != nil {
		inst.SendChord(nil, 0)
	}
}

// rootName maps a MIDI note to its pitch-class name.
func rootName(note uint8) string {
	return music.Roots[int(note)%12]
}
