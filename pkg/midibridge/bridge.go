package midibridge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MagicStino/harpichord-midi/pkg/music"
)

// Status tracks the bridge lifecycle. Ready transitions back through
// Requesting on a manual rescan; hot-plug rebuilds stay in Ready.
type Status int

const (
	StatusUninitialized Status = iota
	StatusRequesting
	StatusReady
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRequesting:
		return "requesting"
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Direction distinguishes input from output endpoints.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionInput {
		return "input"
	}
	return "output"
}

// DeviceDescriptor is a read-only snapshot of one MIDI endpoint.
type DeviceDescriptor struct {
	ID           string
	Name         string
	Manufacturer string
	Direction    Direction
}

// Listener receives every non-suppressed inbound message with the id of
// the device it arrived on.
type Listener func(deviceID string, msg Message)

const (
	// echoLockout drops inbound messages arriving within this window after
	// any outgoing send. Long enough to cover the round trip through an
	// external device patched output-to-input, short enough to keep
	// genuine playing.
	echoLockout = 35 * time.Millisecond

	// stormLimit caps note-ons per source within stormWindow; a runaway
	// controller cannot flood the synthesis layer.
	stormLimit  = 12
	stormWindow = 100 * time.Millisecond

	// harpNoteDuration is how long a sent harp note rings before its
	// scheduled note-off.
	harpNoteDuration = 300 * time.Millisecond

	rescanDebounce = 250 * time.Millisecond
)

// portInfo describes one endpoint as reported by the platform layer.
type portInfo struct {
	id   string
	name string
	man  string
	dir  Direction
}

// platform abstracts the MIDI driver so the bridge can be exercised
// without hardware. Implementations must never panic outward.
type platform interface {
	ports() (ins, outs []portInfo, err error)
	listen(portID string, sysex bool, recv func(data []byte)) (stop func(), err error)
	sender(portID string) (func(data []byte) error, error)
}

type inputPort struct {
	info portInfo
	stop func()
}

type sentNote struct {
	note    uint8
	channel uint8
}

// Config carries bridge construction options.
type Config struct {
	Logger *zap.Logger
	// PollInterval overrides the 1s hot-plug poll. Zero keeps the default.
	PollInterval time.Duration
}

// Bridge is the process-wide MIDI subsystem.
type Bridge struct {
	mu   sync.Mutex
	log  *zap.Logger
	plat platform
	poll time.Duration

	status Status
	sysex  bool
	closed bool

	inputs  map[string]*inputPort
	outputs map[string]portInfo
	senders map[string]func(data []byte) error

	listeners map[uuid.UUID]Listener

	lockoutUntil time.Time
	recent       map[string][]time.Time

	chordNotes map[string][]sentNote
	harpOffs   map[uuid.UUID]*time.Timer

	debounced func(f func())
}

// New builds a bridge on the registered gomidi driver. The driver itself
// is registered by the composition root (a blank import of rtmididrv);
// without one, RequestAccess reports StatusUnavailable instead of failing.
func New(cfg Config) *Bridge {
	return newBridge(rtmidiPlatform{}, cfg)
}

func newBridge(plat platform, cfg Config) *Bridge {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Bridge{
		log:        cfg.Logger,
		plat:       plat,
		poll:       cfg.PollInterval,
		inputs:     make(map[string]*inputPort),
		outputs:    make(map[string]portInfo),
		senders:    make(map[string]func(data []byte) error),
		listeners:  make(map[uuid.UUID]Listener),
		recent:     make(map[string][]time.Time),
		chordNotes: make(map[string][]sentNote),
		harpOffs:   make(map[uuid.UUID]*time.Timer),
		debounced:  debounce.New(rescanDebounce),
	}
}

// RequestAccess probes the MIDI driver, attaching sysex-capable input
// handlers first and falling back to restricted listening if that is
// refused. It never panics; a dead driver yields StatusUnavailable.
func (b *Bridge) RequestAccess() Status {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return StatusUnavailable
	}
	b.status = StatusRequesting
	b.mu.Unlock()

	sysex := true
	err := b.rebuild(true)
	if err != nil {
		b.log.Info("sysex-capable access refused, retrying restricted", zap.Error(err))
		sysex = false
		err = b.rebuild(false)
	}

	b.mu.Lock()
	if err != nil {
		b.status = StatusUnavailable
		b.log.Warn("midi unavailable", zap.Error(err))
	} else {
		b.status = StatusReady
		b.sysex = sysex
		b.log.Info("midi ready",
			zap.Int("inputs", len(b.inputs)),
			zap.Int("outputs", len(b.outputs)),
			zap.Bool("sysex", sysex))
	}
	st := b.status
	b.mu.Unlock()
	return st
}

// Rescan rebuilds the device table on demand, keeping the capability that
// RequestAccess negotiated. Before RequestAccess it is a no-op.
func (b *Bridge) Rescan() Status {
	b.mu.Lock()
	if b.closed || b.status == StatusUninitialized {
		st := b.status
		b.mu.Unlock()
		return st
	}
	sysex := b.sysex
	b.status = StatusRequesting
	b.mu.Unlock()

	err := b.rebuild(sysex)

	b.mu.Lock()
	if err != nil {
		b.status = StatusUnavailable
		b.log.Warn("midi rescan failed", zap.Error(err))
	} else {
		b.status = StatusReady
	}
	st := b.status
	b.mu.Unlock()
	return st
}

// rebuild clears and repopulates the device maps and re-attaches one raw
// handler per input port.
func (b *Bridge) rebuild(sysex bool) error {
	ins, outs, err := b.plat.ports()
	if err != nil {
		return err
	}

	b.mu.Lock()
	for _, in := range b.inputs {
		if in.stop != nil {
			in.stop()
		}
	}
	b.inputs = make(map[string]*inputPort, len(ins))
	b.senders = make(map[string]func(data []byte) error)
	b.outputs = make(map[string]portInfo, len(outs))
	for _, p := range outs {
		b.outputs[p.id] = p
	}
	for id := range b.chordNotes {
		if _, ok := b.outputs[id]; !ok {
			delete(b.chordNotes, id)
		}
	}
	b.mu.Unlock()

	// attach handlers outside the lock; opening a port can touch the OS
	var attachErr error
	attached := make(map[string]*inputPort, len(ins))
	for _, p := range ins {
		p := p
		stop, err := b.plat.listen(p.id, sysex, func(data []byte) {
			b.dispatch(p.id, data)
		})
		if err != nil {
			if attachErr == nil {
				attachErr = err
			}
			b.log.Warn("failed to open midi input",
				zap.String("device", p.id), zap.Error(err))
			continue
		}
		attached[p.id] = &inputPort{info: p, stop: stop}
	}

	b.mu.Lock()
	b.inputs = attached
	for id := range b.recent {
		if _, ok := b.inputs[id]; !ok {
			delete(b.recent, id)
		}
	}
	b.mu.Unlock()
	return attachErr
}

// Run polls for hot-plug changes until the context ends. Rebuilds are
// debounced so a device that flaps during enumeration settles into a
// single rescan.
func (b *Bridge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.Status() != StatusReady {
				continue
			}
			if b.portsChanged() {
				b.debounced(func() { b.Rescan() })
			}
		}
	}
}

func (b *Bridge) portsChanged() bool {
	ins, outs, err := b.plat.ports()
	if err != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(ins) != len(b.inputs) || len(outs) != len(b.outputs) {
		return true
	}
	for _, p := range ins {
		if _, ok := b.inputs[p.id]; !ok {
			return true
		}
	}
	for _, p := range outs {
		if _, ok := b.outputs[p.id]; !ok {
			return true
		}
	}
	return false
}

// Status returns the current lifecycle status.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Devices returns a sorted snapshot of all known endpoints.
func (b *Bridge) Devices() []DeviceDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DeviceDescriptor, 0, len(b.inputs)+len(b.outputs))
	for _, in := range b.inputs {
		out = append(out, descriptor(in.info))
	}
	for _, p := range b.outputs {
		out = append(out, descriptor(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func descriptor(p portInfo) DeviceDescriptor {
	return DeviceDescriptor{
		ID:           p.id,
		Name:         p.name,
		Manufacturer: p.man,
		Direction:    p.dir,
	}
}

// AddListener registers a callback for inbound messages and returns the
// token that removes it.
func (b *Bridge) AddListener(l Listener) uuid.UUID {
	id := uuid.New()
	b.mu.Lock()
	b.listeners[id] = l
	b.mu.Unlock()
	return id
}

// RemoveListener drops the listener registered under the token.
func (b *Bridge) RemoveListener(id uuid.UUID) {
	b.mu.Lock()
	delete(b.listeners, id)
	b.mu.Unlock()
}

// dispatch routes one raw inbound message through the suppression layers
// and fans it out to every registered listener.
func (b *Bridge) dispatch(deviceID string, data []byte) {
	if len(data) == 0 || data[0] >= 0xF0 {
		// system messages (clock, sysex) never reach listeners
		return
	}
	var m Message
	copy(m[:], data)

	b.mu.Lock()
	if b.status != StatusReady || b.closed {
		b.mu.Unlock()
		return
	}
	now := time.Now()
	if now.Before(b.lockoutUntil) {
		b.mu.Unlock()
		b.log.Debug("inbound message dropped by echo lockout",
			zap.String("device", deviceID), zap.String("message", m.String()))
		return
	}
	if m.IsNoteOn() && b.stormedLocked(deviceID, now) {
		b.mu.Unlock()
		b.log.Debug("inbound note-on dropped by storm guard",
			zap.String("device", deviceID))
		return
	}
	ls := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.Unlock()

	for _, l := range ls {
		l(deviceID, m)
	}
}

// stormedLocked prunes the source's note-on window and reports whether the
// next note-on would exceed the limit.
func (b *Bridge) stormedLocked(source string, now time.Time) bool {
	window := b.recent[source]
	keep := window[:0]
	for _, t := range window {
		if now.Sub(t) < stormWindow {
			keep = append(keep, t)
		}
	}
	if len(keep) >= stormLimit {
		b.recent[source] = keep
		return true
	}
	b.recent[source] = append(keep, now)
	return false
}

// armLockout opens the echo suppression window. Called before every
// outgoing send so a fast echo cannot beat it.
func (b *Bridge) armLockout() {
	b.mu.Lock()
	b.lockoutUntil = time.Now().Add(echoLockout)
	b.mu.Unlock()
}

// senderFor lazily opens and caches the sender for an output device.
func (b *Bridge) senderFor(deviceID string) func(data []byte) error {
	b.mu.Lock()
	if s, ok := b.senders[deviceID]; ok {
		b.mu.Unlock()
		return s
	}
	if _, ok := b.outputs[deviceID]; !ok {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	s, err := b.plat.sender(deviceID)
	if err != nil {
		b.log.Warn("failed to open midi output",
			zap.String("device", deviceID), zap.Error(err))
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.senders[deviceID]; ok {
		return existing
	}
	b.senders[deviceID] = s
	return s
}

// SendMidi sends one message to an output device, fire and forget: any
// failure is logged and swallowed, never propagated to the trigger path.
func (b *Bridge) SendMidi(deviceID string, m Message) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	send := b.senderFor(deviceID)
	if send == nil {
		b.log.Debug("midi send dropped, no such output", zap.String("device", deviceID))
		return
	}
	b.armLockout()
	if err := send(m[:]); err != nil {
		b.log.Warn("midi send failed",
			zap.String("device", deviceID), zap.String("message", m.String()), zap.Error(err))
	}
}

// SendChord releases whatever notes this bridge previously turned on for
// the device, then sends one note-on per chord interval above middle C.
// A nil chord only releases, leaving nothing held on external hardware.
func (b *Bridge) SendChord(c *music.Chord, deviceID string, channel, velocity uint8) {
	b.mu.Lock()
	prev := b.chordNotes[deviceID]
	delete(b.chordNotes, deviceID)
	b.mu.Unlock()
	for _, n := range prev {
		b.SendMidi(deviceID, NoteOffMsg(n.channel, n.note, 0))
	}
	if c == nil {
		return
	}
	pc, ok := music.PitchClass(c.Root)
	if !ok {
		b.log.Warn("unknown chord root", zap.String("root", c.Root))
		return
	}
	sent := make([]sentNote, 0, len(c.Intervals))
	for _, iv := range c.Intervals {
		note := music.MIDINote(music.MiddleCNote+pc, iv, 0)
		b.SendMidi(deviceID, NoteOnMsg(channel, note, velocity))
		sent = append(sent, sentNote{note: note, channel: channel})
	}
	b.mu.Lock()
	b.chordNotes[deviceID] = sent
	b.mu.Unlock()
}

// SendHarpNote sends one pluck and schedules its own note-off; no tracking
// across calls is needed since every pluck releases itself.
func (b *Bridge) SendHarpNote(c music.Chord, stringIndex, octave, harpOctave int, deviceID string, channel, velocity uint8) {
	if len(c.Intervals) == 0 {
		return
	}
	pc, ok := music.PitchClass(c.Root)
	if !ok {
		b.log.Warn("unknown chord root", zap.String("root", c.Root))
		return
	}
	iv, oct := music.HarpString(c, stringIndex)
	note := music.MIDINote(music.MiddleCNote+pc, iv, oct+octave+harpOctave)
	b.SendMidi(deviceID, NoteOnMsg(channel, note, velocity))

	id := uuid.New()
	t := time.AfterFunc(harpNoteDuration, func() {
		b.mu.Lock()
		delete(b.harpOffs, id)
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return
		}
		b.SendMidi(deviceID, NoteOffMsg(channel, note, 0))
	})
	b.mu.Lock()
	if b.closed {
		t.Stop()
		b.mu.Unlock()
		return
	}
	b.harpOffs[id] = t
	b.mu.Unlock()
}

// AllNotesOff releases every note the bridge still has turned on anywhere.
func (b *Bridge) AllNotesOff() {
	b.mu.Lock()
	ids := make([]string, 0, len(b.chordNotes))
	for id := range b.chordNotes {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	for _, id := range ids {
		b.SendChord(nil, id, 1, 0)
	}
}

// Close releases held notes, cancels pending note-offs, detaches all input
// handlers, and leaves the bridge unusable.
func (b *Bridge) Close() {
	b.AllNotesOff()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.status = StatusUninitialized
	timers := make([]*time.Timer, 0, len(b.harpOffs))
	for _, t := range b.harpOffs {
		timers = append(timers, t)
	}
	b.harpOffs = make(map[uuid.UUID]*time.Timer)
	inputs := b.inputs
	b.inputs = make(map[string]*inputPort)
	b.outputs = make(map[string]portInfo)
	b.senders = make(map[string]func(data []byte) error)
	b.listeners = make(map[uuid.UUID]Listener)
	b.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, in := range inputs {
		if in.stop != nil {
			in.stop()
		}
	}
}
