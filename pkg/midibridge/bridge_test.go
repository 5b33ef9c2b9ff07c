package midibridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MagicStino/harpichord-midi/pkg/music"
)

// fakePlatform is an in-memory MIDI system: ports appear and vanish on
// demand, inbound bytes are injected by tests, outbound sends are recorded.
type fakePlatform struct {
	mu           sync.Mutex
	ins          []portInfo
	outs         []portInfo
	recv         map[string]func(data []byte)
	sent         map[string][][]byte
	portsErr     error
	senderErr    error
	sysexRefused bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		recv: make(map[string]func(data []byte)),
		sent: make(map[string][][]byte),
	}
}

func (f *fakePlatform) addInput(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ins = append(f.ins, portInfo{id: id, name: name, man: "fake", dir: DirectionInput})
}

func (f *fakePlatform) addOutput(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outs = append(f.outs, portInfo{id: id, name: name, man: "fake", dir: DirectionOutput})
}

func (f *fakePlatform) removeOutput(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keep := f.outs[:0]
	for _, p := range f.outs {
		if p.id != id {
			keep = append(keep, p)
		}
	}
	f.outs = keep
}

// inbound pushes a message into the handler the bridge attached.
func (f *fakePlatform) inbound(t *testing.T, portID string, m Message) {
	t.Helper()
	f.mu.Lock()
	recv := f.recv[portID]
	f.mu.Unlock()
	if recv == nil {
		t.Fatalf("no handler attached to %q", portID)
	}
	recv(m[:])
}

func (f *fakePlatform) sentTo(portID string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, 0, len(f.sent[portID]))
	for _, raw := range f.sent[portID] {
		var m Message
		copy(m[:], raw)
		out = append(out, m)
	}
	return out
}

func (f *fakePlatform) ports() ([]portInfo, []portInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.portsErr != nil {
		return nil, nil, f.portsErr
	}
	ins := append([]portInfo(nil), f.ins...)
	outs := append([]portInfo(nil), f.outs...)
	return ins, outs, nil
}

func (f *fakePlatform) listen(portID string, sysex bool, recv func(data []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sysex && f.sysexRefused {
		return nil, errors.New("sysex access refused")
	}
	found := false
	for _, p := range f.ins {
		if p.id == portID {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no input %q", portID)
	}
	f.recv[portID] = recv
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.recv, portID)
	}, nil
}

func (f *fakePlatform) sender(portID string) (func(data []byte) error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.senderErr != nil {
		return nil, f.senderErr
	}
	found := false
	for _, p := range f.outs {
		if p.id == portID {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no output %q", portID)
	}
	return func(data []byte) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sent[portID] = append(f.sent[portID], append([]byte(nil), data...))
		return nil
	}, nil
}

func newReadyBridge(t *testing.T, f *fakePlatform) *Bridge {
	t.Helper()
	b := newBridge(f, Config{})
	if st := b.RequestAccess(); st != StatusReady {
		t.Fatalf("RequestAccess() = %v, want %v", st, StatusReady)
	}
	t.Cleanup(b.Close)
	return b
}

func cMajorChord(t *testing.T) music.Chord {
	t.Helper()
	c, ok := music.Lookup("C", music.Major)
	if !ok {
		t.Fatal("C major missing from chord table")
	}
	return c
}

func TestMessageWireFormat(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want Message
	}{
		{"NoteOnChannel3", NoteOnMsg(3, 60, 100), Message{0x92, 60, 100}},
		{"NoteOffChannel1", NoteOffMsg(1, 60, 0), Message{0x80, 60, 0}},
		{"ControlChangeChannel16", ControlChangeMsg(16, 7, 127), Message{0xBF, 7, 127}},
		{"ChannelZeroClampsToOne", NewMessage(CmdNoteOn, 0, 1, 2), Message{0x90, 1, 2}},
		{"ChannelSeventeenClampsToSixteen", NewMessage(CmdNoteOn, 17, 1, 2), Message{0x9F, 1, 2}},
		{"DataBytesMaskedToSevenBits", NewMessage(CmdNoteOn, 1, 200, 255), Message{0x90, 72, 127}},
		{"PitchBendNibble", NewMessage(CmdPitchBend, 2, 0, 64), Message{0xE1, 0, 64}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.msg != tc.want {
				t.Errorf("got % X, want % X", tc.msg[:], tc.want[:])
			}
		})
	}

	t.Run("Accessors", func(t *testing.T) {
		m := NoteOnMsg(9, 72, 55)
		if got := m.Command(); got != CmdNoteOn {
			t.Errorf("Command() = %v, want %v", got, CmdNoteOn)
		}
		if got := m.Channel(); got != 9 {
			t.Errorf("Channel() = %d, want 9", got)
		}
		if got := m.Data1(); got != 72 {
			t.Errorf("Data1() = %d, want 72", got)
		}
		if got := m.Data2(); got != 55 {
			t.Errorf("Data2() = %d, want 55", got)
		}
	})

	t.Run("ZeroVelocityNoteOnIsNoteOff", func(t *testing.T) {
		m := NoteOnMsg(1, 60, 0)
		if m.IsNoteOn() {
			t.Error("IsNoteOn() = true for zero velocity")
		}
		if !m.IsNoteOff() {
			t.Error("IsNoteOff() = false for zero-velocity note-on")
		}
	})
}

func TestRequestAccess(t *testing.T) {
	t.Run("ReportsReady", func(t *testing.T) {
		f := newFakePlatform()
		f.addInput("in:0:kbd", "kbd")
		f.addOutput("out:0:synth", "synth")
		b := newReadyBridge(t, f)
		devs := b.Devices()
		if len(devs) != 2 {
			t.Fatalf("Devices() returned %d entries, want 2", len(devs))
		}
		if devs[0].Direction != DirectionInput || devs[1].Direction != DirectionOutput {
			t.Errorf("devices not sorted inputs first: %+v", devs)
		}
		if devs[0].Manufacturer != "fake" {
			t.Errorf("Manufacturer = %q, want fake", devs[0].Manufacturer)
		}
	})

	t.Run("DriverFailureYieldsUnavailable", func(t *testing.T) {
		f := newFakePlatform()
		f.portsErr = errors.New("driver exploded")
		b := newBridge(f, Config{})
		if st := b.RequestAccess(); st != StatusUnavailable {
			t.Errorf("RequestAccess() = %v, want %v", st, StatusUnavailable)
		}
	})

	t.Run("SysexRefusalFallsBackToRestricted", func(t *testing.T) {
		f := newFakePlatform()
		f.sysexRefused = true
		f.addInput("in:0:kbd", "kbd")
		b := newReadyBridge(t, f)

		var got []Message
		var mu sync.Mutex
		b.AddListener(func(deviceID string, m Message) {
			mu.Lock()
			got = append(got, m)
			mu.Unlock()
		})
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, 60, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(got) != 1 {
			t.Errorf("restricted listener received %d messages, want 1", len(got))
		}
	})
}

func TestListenerDelivery(t *testing.T) {
	f := newFakePlatform()
	f.addInput("in:0:kbd", "kbd")
	b := newReadyBridge(t, f)

	var mu sync.Mutex
	counts := map[string]int{}
	token1 := b.AddListener(func(string, Message) {
		mu.Lock()
		counts["one"]++
		mu.Unlock()
	})
	b.AddListener(func(string, Message) {
		mu.Lock()
		counts["two"]++
		mu.Unlock()
	})

	f.inbound(t, "in:0:kbd", NoteOnMsg(1, 60, 100))
	mu.Lock()
	if counts["one"] != 1 || counts["two"] != 1 {
		t.Fatalf("counts = %v, want exactly one delivery each", counts)
	}
	mu.Unlock()

	b.RemoveListener(token1)
	f.inbound(t, "in:0:kbd", NoteOnMsg(1, 62, 100))
	mu.Lock()
	defer mu.Unlock()
	if counts["one"] != 1 {
		t.Errorf("removed listener received %d messages, want 1", counts["one"])
	}
	if counts["two"] != 2 {
		t.Errorf("remaining listener received %d messages, want 2", counts["two"])
	}
}

func TestEchoLockout(t *testing.T) {
	f := newFakePlatform()
	f.addInput("in:0:kbd", "kbd")
	f.addOutput("out:0:synth", "synth")
	b := newReadyBridge(t, f)

	var mu sync.Mutex
	received := 0
	b.AddListener(func(string, Message) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	b.SendMidi("out:0:synth", NoteOnMsg(1, 60, 100))
	f.inbound(t, "in:0:kbd", NoteOnMsg(1, 60, 100)) // echo, inside the window
	mu.Lock()
	if received != 0 {
		t.Fatalf("received %d messages inside lockout window, want 0", received)
	}
	mu.Unlock()

	time.Sleep(echoLockout + 20*time.Millisecond)
	f.inbound(t, "in:0:kbd", NoteOnMsg(1, 60, 100))
	mu.Lock()
	defer mu.Unlock()
	if received != 1 {
		t.Errorf("received %d messages after lockout expired, want 1", received)
	}
}

func TestStormGuard(t *testing.T) {
	f := newFakePlatform()
	f.addInput("in:0:kbd", "kbd")
	b := newReadyBridge(t, f)

	var mu sync.Mutex
	noteOns, others := 0, 0
	b.AddListener(func(_ string, m Message) {
		mu.Lock()
		if m.IsNoteOn() {
			noteOns++
		} else {
			others++
		}
		mu.Unlock()
	})

	for i := 0; i < stormLimit+5; i++ {
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, uint8(40+i), 100))
	}
	mu.Lock()
	if noteOns != stormLimit {
		t.Errorf("delivered %d note-ons, want the %d-per-window cap", noteOns, stormLimit)
	}
	mu.Unlock()

	// non-note-on traffic is not rate limited
	f.inbound(t, "in:0:kbd", ControlChangeMsg(1, 7, 90))
	f.inbound(t, "in:0:kbd", NoteOffMsg(1, 40, 0))
	mu.Lock()
	defer mu.Unlock()
	if others != 2 {
		t.Errorf("delivered %d non-note-on messages, want 2", others)
	}
}

func TestSendChordTracking(t *testing.T) {
	f := newFakePlatform()
	f.addOutput("out:0:synth", "synth")
	b := newReadyBridge(t, f)
	out := "out:0:synth"

	c := cMajorChord(t)
	b.SendChord(&c, out, 2, 100)
	sent := f.sentTo(out)
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want 3 note-ons", len(sent))
	}
	wantOns := []Message{{0x91, 60, 100}, {0x91, 64, 100}, {0x91, 67, 100}}
	for i, w := range wantOns {
		if sent[i] != w {
			t.Errorf("message %d = % X, want % X", i, sent[i][:], w[:])
		}
	}

	// the next chord must release exactly the previous notes first
	d, ok := music.Lookup("D", music.Minor)
	if !ok {
		t.Fatal("D minor missing from chord table")
	}
	b.SendChord(&d, out, 2, 100)
	sent = f.sentTo(out)
	if len(sent) != 9 {
		t.Fatalf("sent %d messages total, want 9 (3 ons + 3 offs + 3 ons)", len(sent))
	}
	wantOffs := []Message{{0x81, 60, 0}, {0x81, 64, 0}, {0x81, 67, 0}}
	for i, w := range wantOffs {
		if sent[3+i] != w {
			t.Errorf("release %d = % X, want % X", i, sent[3+i][:], w[:])
		}
	}

	// nil chord releases without retriggering
	b.SendChord(nil, out, 2, 0)
	sent = f.sentTo(out)
	if len(sent) != 12 {
		t.Fatalf("sent %d messages total, want 12 after nil-chord release", len(sent))
	}
	for _, m := range sent[9:] {
		if m.Command() != CmdNoteOff {
			t.Errorf("nil chord sent %v, want only note-offs", m)
		}
	}

	// a second nil chord has nothing left to release
	b.SendChord(nil, out, 2, 0)
	if got := len(f.sentTo(out)); got != 12 {
		t.Errorf("sent %d messages after redundant release, want still 12", got)
	}
}

func TestSendHarpNote(t *testing.T) {
	t.Run("SchedulesOwnNoteOff", func(t *testing.T) {
		f := newFakePlatform()
		f.addOutput("out:0:synth", "synth")
		b := newReadyBridge(t, f)
		out := "out:0:synth"

		// string 3 over a triad wraps to the root one octave up
		b.SendHarpNote(cMajorChord(t), 3, 0, 0, out, 1, 90)
		sent := f.sentTo(out)
		if len(sent) != 1 {
			t.Fatalf("sent %d messages, want 1 note-on", len(sent))
		}
		if want := (Message{0x90, 72, 90}); sent[0] != want {
			t.Errorf("note-on = % X, want % X", sent[0][:], want[:])
		}

		time.Sleep(harpNoteDuration + 100*time.Millisecond)
		sent = f.sentTo(out)
		if len(sent) != 2 {
			t.Fatalf("sent %d messages after note duration, want note-off to follow", len(sent))
		}
		if want := (Message{0x80, 72, 0}); sent[1] != want {
			t.Errorf("note-off = % X, want % X", sent[1][:], want[:])
		}
	})

	t.Run("CloseCancelsPendingNoteOffs", func(t *testing.T) {
		f := newFakePlatform()
		f.addOutput("out:0:synth", "synth")
		b := newBridge(f, Config{})
		if st := b.RequestAccess(); st != StatusReady {
			t.Fatalf("RequestAccess() = %v", st)
		}
		out := "out:0:synth"
		b.SendHarpNote(cMajorChord(t), 0, 0, 0, out, 1, 90)
		b.Close()

		time.Sleep(harpNoteDuration + 100*time.Millisecond)
		sent := f.sentTo(out)
		if len(sent) != 1 {
			t.Errorf("sent %d messages, want only the note-on once closed", len(sent))
		}
	})
}

func TestRescan(t *testing.T) {
	t.Run("PicksUpNewDevices", func(t *testing.T) {
		f := newFakePlatform()
		f.addInput("in:0:kbd", "kbd")
		b := newReadyBridge(t, f)
		if got := len(b.Devices()); got != 1 {
			t.Fatalf("Devices() = %d entries, want 1", got)
		}

		f.addInput("in:1:pads", "pads")
		f.addOutput("out:0:synth", "synth")
		if st := b.Rescan(); st != StatusReady {
			t.Fatalf("Rescan() = %v, want %v", st, StatusReady)
		}
		if got := len(b.Devices()); got != 3 {
			t.Errorf("Devices() = %d entries after rescan, want 3", got)
		}

		// the new input is wired for delivery
		var mu sync.Mutex
		got := 0
		b.AddListener(func(string, Message) {
			mu.Lock()
			got++
			mu.Unlock()
		})
		f.inbound(t, "in:1:pads", NoteOnMsg(1, 36, 100))
		mu.Lock()
		defer mu.Unlock()
		if got != 1 {
			t.Errorf("new input delivered %d messages, want 1", got)
		}
	})

	t.Run("DropsTrackingForVanishedOutputs", func(t *testing.T) {
		f := newFakePlatform()
		f.addOutput("out:0:synth", "synth")
		b := newReadyBridge(t, f)
		out := "out:0:synth"

		c := cMajorChord(t)
		b.SendChord(&c, out, 1, 100)
		before := len(f.sentTo(out))

		f.removeOutput(out)
		if st := b.Rescan(); st != StatusReady {
			t.Fatalf("Rescan() = %v, want %v", st, StatusReady)
		}
		b.SendChord(nil, out, 1, 0)
		if got := len(f.sentTo(out)); got != before {
			t.Errorf("sent %d messages to a vanished output, want none past %d", got-before, before)
		}
	})
}

func TestHotplugPolling(t *testing.T) {
	f := newFakePlatform()
	f.addInput("in:0:kbd", "kbd")
	// poll must outlast the debounce window or every poll re-arms it
	b := newBridge(f, Config{PollInterval: rescanDebounce + 50*time.Millisecond})
	if st := b.RequestAccess(); st != StatusReady {
		t.Fatalf("RequestAccess() = %v", st)
	}
	t.Cleanup(b.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	f.addInput("in:1:pads", "pads")
	deadline := time.After(2 * time.Second)
	for {
		if len(b.Devices()) == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Devices() = %d entries, hot-plug poll never rebuilt", len(b.Devices()))
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func TestInstrumentFilter(t *testing.T) {
	setup := func(t *testing.T, cfg InstrumentConfig) (*fakePlatform, *Instrument, *[]Message, *sync.Mutex) {
		f := newFakePlatform()
		f.addInput("in:0:kbd", "kbd")
		f.addInput("in:1:pads", "pads")
		f.addOutput("out:0:synth", "synth")
		b := newReadyBridge(t, f)
		var mu sync.Mutex
		var got []Message
		inst := NewInstrument(b, cfg, func(_ string, m Message) {
			mu.Lock()
			got = append(got, m)
			mu.Unlock()
		})
		t.Cleanup(inst.Close)
		return f, inst, &got, &mu
	}

	t.Run("SpecificInputOnly", func(t *testing.T) {
		f, _, got, mu := setup(t, InstrumentConfig{InputID: "in:0:kbd"})
		f.inbound(t, "in:1:pads", NoteOnMsg(1, 60, 100))
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, 62, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(*got) != 1 || (*got)[0].Data1() != 62 {
			t.Errorf("handler saw %v, want only the kbd message", *got)
		}
	})

	t.Run("AllInputs", func(t *testing.T) {
		f, _, got, mu := setup(t, InstrumentConfig{InputID: DeviceAll})
		f.inbound(t, "in:1:pads", NoteOnMsg(1, 60, 100))
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, 62, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(*got) != 2 {
			t.Errorf("handler saw %d messages, want 2", len(*got))
		}
	})

	t.Run("NoneDisablesInput", func(t *testing.T) {
		f, _, got, mu := setup(t, InstrumentConfig{InputID: DeviceNone})
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, 60, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(*got) != 0 {
			t.Errorf("handler saw %d messages, want 0", len(*got))
		}
	})

	t.Run("ChannelFilter", func(t *testing.T) {
		f, _, got, mu := setup(t, InstrumentConfig{InputID: DeviceAll, InputChannel: 5})
		f.inbound(t, "in:0:kbd", NoteOnMsg(4, 60, 100))
		f.inbound(t, "in:0:kbd", NoteOnMsg(5, 62, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(*got) != 1 || (*got)[0].Channel() != 5 {
			t.Errorf("handler saw %v, want only channel 5", *got)
		}
	})

	t.Run("OmniChannel", func(t *testing.T) {
		f, _, got, mu := setup(t, InstrumentConfig{InputID: DeviceAll, InputChannel: 0})
		f.inbound(t, "in:0:kbd", NoteOnMsg(3, 60, 100))
		f.inbound(t, "in:0:kbd", NoteOnMsg(11, 62, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(*got) != 2 {
			t.Errorf("handler saw %d messages, want 2 in omni", len(*got))
		}
	})

	t.Run("ThruRewritesChannel", func(t *testing.T) {
		f, _, _, _ := setup(t, InstrumentConfig{
			InputID:       "in:0:kbd",
			OutputID:      "out:0:synth",
			OutputChannel: 7,
			Thru:          true,
		})
		f.inbound(t, "in:0:kbd", NoteOnMsg(3, 60, 100))
		sent := f.sentTo("out:0:synth")
		if len(sent) != 1 {
			t.Fatalf("thru sent %d messages, want 1", len(sent))
		}
		if want := (Message{0x96, 60, 100}); sent[0] != want {
			t.Errorf("thru message = % X, want % X on channel 7", sent[0][:], want[:])
		}
	})

	t.Run("SetConfigSwapsLive", func(t *testing.T) {
		f, inst, got, mu := setup(t, InstrumentConfig{InputID: DeviceNone})
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, 60, 100))
		inst.SetConfig(InstrumentConfig{InputID: DeviceAll})
		f.inbound(t, "in:0:kbd", NoteOnMsg(1, 62, 100))
		mu.Lock()
		defer mu.Unlock()
		if len(*got) != 1 || (*got)[0].Data1() != 62 {
			t.Errorf("handler saw %v, want only the post-config message", *got)
		}
	})
}
