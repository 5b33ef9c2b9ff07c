package midibridge

import (
	"sync"

	"github.com/google/uuid"

	"github.com/MagicStino/harpichord-midi/pkg/music"
)

// Device selector values for InstrumentConfig. Any other string is taken
// as a device id.
const (
	DeviceAll  = "all"
	DeviceNone = "none"
)

// InstrumentConfig selects which devices and channels the instrument
// listens and speaks on. InputChannel 0 means omni. The instrument holds a
// copy; the owner replaces it wholesale through SetConfig.
type InstrumentConfig struct {
	InputID       string
	OutputID      string
	InputChannel  uint8 // 0 = omni, otherwise 1..16
	OutputChannel uint8 // 1..16
	Thru          bool  // forward matched input to the configured output
}

// Instrument is the bridge's per-instrument filter layer: it narrows the
// firehose of inbound messages down to the configured device and channel
// before they reach the instrument's handler, and routes sends to the
// configured output.
type Instrument struct {
	bridge  *Bridge
	mu      sync.Mutex
	cfg     InstrumentConfig
	handler func(deviceID string, msg Message)
	token   uuid.UUID
}

// NewInstrument attaches a filtered listener to the bridge. The handler
// may be nil when the instrument only sends.
func NewInstrument(b *Bridge, cfg InstrumentConfig, handler func(deviceID string, msg Message)) *Instrument {
	i := &Instrument{bridge: b, cfg: cfg, handler: handler}
	i.token = b.AddListener(i.onMessage)
	return i
}

// SetConfig replaces the instrument's routing configuration.
func (i *Instrument) SetConfig(cfg InstrumentConfig) {
	i.mu.Lock()
	i.cfg = cfg
	i.mu.Unlock()
}

// Config returns a copy of the current routing configuration.
func (i *Instrument) Config() InstrumentConfig {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg
}

func (i *Instrument) onMessage(deviceID string, m Message) {
	i.mu.Lock()
	cfg := i.cfg
	h := i.handler
	i.mu.Unlock()

	if cfg.InputID == DeviceNone || cfg.InputID == "" {
		return
	}
	if cfg.InputID != DeviceAll && cfg.InputID != deviceID {
		return
	}
	if cfg.InputChannel != 0 && m.Channel() != cfg.InputChannel {
		return
	}
	if h != nil {
		h(deviceID, m)
	}
	if cfg.Thru && cfg.OutputID != "" && cfg.OutputID != DeviceNone {
		out := NewMessage(m.Command(), cfg.OutputChannel, m.Data1(), m.Data2())
		i.bridge.SendMidi(cfg.OutputID, out)
	}
}

// SendChord sends a chord to the configured output; nil releases the notes
// held there. No-op when no output is configured.
func (i *Instrument) SendChord(c *music.Chord, velocity uint8) {
	cfg := i.Config()
	if cfg.OutputID == "" || cfg.OutputID == DeviceNone {
		return
	}
	i.bridge.SendChord(c, cfg.OutputID, cfg.OutputChannel, velocity)
}

// SendHarpNote sends a pluck to the configured output with its scheduled
// note-off.
func (i *Instrument) SendHarpNote(c music.Chord, stringIndex, octave, harpOctave int, velocity uint8) {
	cfg := i.Config()
	if cfg.OutputID == "" || cfg.OutputID == DeviceNone {
		return
	}
	i.bridge.SendHarpNote(c, stringIndex, octave, harpOctave, cfg.OutputID, cfg.OutputChannel, velocity)
}

// Close detaches the instrument's listener from the bridge.
func (i *Instrument) Close() {
	i.bridge.RemoveListener(i.token)
}
