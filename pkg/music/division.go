package music

import (
	"fmt"
	"time"
)

// Division is a tempo-relative note length used to sync the delay network
// to the beat.
type Division int

const (
	DivHalf Division = iota
	DivDottedQuarter
	DivQuarter
	DivDottedEighth
	DivEighth
	DivEighthTriplet
	DivSixteenth
)

// Multiplier returns the division's length in beats (a quarter note is one
// beat, so an eighth is 0.5).
func (d Division) Multiplier() float64 {
	switch d {
	case DivHalf:
		return 2.0
	case DivDottedQuarter:
		return 1.5
	case DivQuarter:
		return 1.0
	case DivDottedEighth:
		return 0.75
	case DivEighth:
		return 0.5
	case DivEighthTriplet:
		return 1.0 / 3.0
	case DivSixteenth:
		return 0.25
	}
	return 1.0
}

// String returns the conventional notation name.
func (d Division) String() string {
	switch d {
	case DivHalf:
		return "1/2"
	case DivDottedQuarter:
		return "1/4."
	case DivQuarter:
		return "1/4"
	case DivDottedEighth:
		return "1/8."
	case DivEighth:
		return "1/8"
	case DivEighthTriplet:
		return "1/8T"
	case DivSixteenth:
		return "1/16"
	}
	return "?"
}

// ParseDivision resolves a notation name ("1/8", "1/4.", "1/8T").
func ParseDivision(s string) (Division, error) {
	for d := DivHalf; d <= DivSixteenth; d++ {
		if s == d.String() {
			return d, nil
		}
	}
	return DivQuarter, fmt.Errorf("unknown division %q", s)
}

// BeatDuration returns the length of one beat at the given tempo.
func BeatDuration(bpm float64) time.Duration {
	if bpm <= 0 {
		bpm = 120
	}
	return time.Duration(float64(time.Minute) / bpm)
}

// DelayTime returns a division's length in seconds at the given tempo.
// Halving the tempo doubles every division's time.
func DelayTime(bpm float64, d Division) float64 {
	if bpm <= 0 {
		bpm = 120
	}
	return 60.0 / bpm * d.Multiplier()
}

// StepDuration returns the length of one sequencer step (a sixteenth note)
// at the given tempo.
func StepDuration(bpm float64) time.Duration {
	return time.Duration(float64(BeatDuration(bpm)) / 4.0)
}
