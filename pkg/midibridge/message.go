// Package midibridge connects the instrument to MIDI hardware: it
// enumerates endpoints, fans incoming messages out to listeners, sends
// notes out, and structurally prevents the feedback loop that appears when
// the instrument's output is patched back into its own input.
package midibridge

import "fmt"

// Message is one MIDI channel message on the wire: status byte plus two
// data bytes. Shorter messages leave the unused data bytes zero.
type Message [3]byte

// Command is the high nibble of the status byte.
type Command byte

const (
	CmdNoteOff       Command = 0x8
	CmdNoteOn        Command = 0x9
	CmdControlChange Command = 0xB
	CmdProgramChange Command = 0xC
	CmdPitchBend     Command = 0xE
)

func (c Command) String() string {
	switch c {
	case CmdNoteOff:
		return "note-off"
	case CmdNoteOn:
		return "note-on"
	case CmdControlChange:
		return "control-change"
	case CmdProgramChange:
		return "program-change"
	case CmdPitchBend:
		return "pitch-bend"
	}
	return fmt.Sprintf("command-%X", byte(c))
}

// NewMessage packs a command and a 1-based channel into the status byte:
// status = command<<4 | (channel-1). Channels outside 1..16 are clamped;
// data bytes are masked to 7 bits.
func NewMessage(cmd Command, channel, d1, d2 uint8) Message {
	if channel < 1 {
		channel = 1
	}
	if channel > 16 {
		channel = 16
	}
	return Message{byte(cmd)<<4 | (channel - 1), d1 & 0x7F, d2 & 0x7F}
}

// NoteOnMsg builds a note-on for a 1-based channel.
func NoteOnMsg(channel, note, velocity uint8) Message {
	return NewMessage(CmdNoteOn, channel, note, velocity)
}

// NoteOffMsg builds a note-off for a 1-based channel.
func NoteOffMsg(channel, note, velocity uint8) Message {
	return NewMessage(CmdNoteOff, channel, note, velocity)
}

// ControlChangeMsg builds a controller change for a 1-based channel.
func ControlChangeMsg(channel, controller, value uint8) Message {
	return NewMessage(CmdControlChange, channel, controller, value)
}

// Command returns the message's command nibble.
func (m Message) Command() Command { return Command(m[0] >> 4) }

// Channel returns the 1-based channel.
func (m Message) Channel() uint8 { return m[0]&0x0F + 1 }

// Data1 returns the first data byte (note number, controller number).
func (m Message) Data1() uint8 { return m[1] }

// Data2 returns the second data byte (velocity, controller value).
func (m Message) Data2() uint8 { return m[2] }

// IsNoteOn reports a note-on with nonzero velocity. A zero-velocity
// note-on is a note-off by MIDI convention.
func (m Message) IsNoteOn() bool {
	return m.Command() == CmdNoteOn && m[2] > 0
}

// IsNoteOff reports a note-off, including the zero-velocity note-on form.
func (m Message) IsNoteOff() bool {
	return m.Command() == CmdNoteOff || (m.Command() == CmdNoteOn && m[2] == 0)
}

func (m Message) String() string {
	return fmt.Sprintf("%s ch%d %d %d", m.Command(), m.Channel(), m[1], m[2])
}
