package music

import "math"

// Reference tuning: MIDI note 60 is middle C at A4 = 440 Hz equal temperament.
const (
	MiddleCNote = 60
	MiddleCHz   = 261.6255653005986
)

// NoteFrequency converts a MIDI note number to a frequency in Hz.
func NoteFrequency(note int) float64 {
	return 440.0 * math.Pow(2, float64(note-69)/12.0)
}

// IntervalFrequency transposes a base frequency by a semitone interval plus
// whole octaves: base * 2^((interval + 12*octaves)/12).
func IntervalFrequency(base float64, interval, octaves int) float64 {
	return base * math.Pow(2, float64(interval+12*octaves)/12.0)
}

// MIDINote returns base + interval + 12*octaves clamped to the 0..127 range.
func MIDINote(base, interval, octaves int) uint8 {
	n := base + interval + 12*octaves
	if n < 0 {
		n = 0
	}
	if n > 127 {
		n = 127
	}
	return uint8(n)
}

// HarpString resolves a string index against a chord's interval list: the
// pitch class repeats every len(intervals) strings, climbing one octave per
// wrap. String 3 over a triad is string 0 an octave up.
func HarpString(c Chord, stringIndex int) (interval, octave int) {
	if stringIndex < 0 {
		stringIndex = 0
	}
	n := len(c.Intervals)
	if n == 0 {
		return 0, 0
	}
	return c.Intervals[stringIndex%n], stringIndex / n
}
