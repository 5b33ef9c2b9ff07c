// Package music defines the static musical material the instrument plays
// from: chord tables, rhythm pattern tables, and tempo/pitch arithmetic.
// Everything here is immutable data plus pure functions.
package music

import "fmt"

// Family identifies a chord quality. The caller decides which family a
// trigger maps to; this package only answers lookups.
type Family int

const (
	Major Family = iota
	Minor
	Seventh
	Major7
	Minor7
	Sus2
	Sus4
	Dim
	Aug
	Add9
	numFamilies
)

// String returns the family's label suffix ("" for major).
func (f Family) String() string {
	switch f {
	case Major:
		return ""
	case Minor:
		return "m"
	case Seventh:
		return "7"
	case Major7:
		return "maj7"
	case Minor7:
		return "m7"
	case Sus2:
		return "sus2"
	case Sus4:
		return "sus4"
	case Dim:
		return "dim"
	case Aug:
		return "aug"
	case Add9:
		return "add9"
	}
	return "?"
}

// Name returns the family's full name as used in mode labels.
func (f Family) Name() string {
	switch f {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Seventh:
		return "seventh"
	case Major7:
		return "major7"
	case Minor7:
		return "minor7"
	case Sus2:
		return "sus2"
	case Sus4:
		return "sus4"
	case Dim:
		return "diminished"
	case Aug:
		return "augmented"
	case Add9:
		return "add9"
	}
	return "unknown"
}

// Chord is an immutable chord value: a root pitch class, a display label,
// the ordered semitone intervals above the root, and the family it came
// from. Intervals are never empty and may exceed an octave (Add9 carries 14).
type Chord struct {
	Root      string
	Label     string
	Intervals []int
	Mode      string
}

// Roots lists the twelve pitch-class names in semitone order above C.
var Roots = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var familyIntervals = map[Family][]int{
	Major:   {0, 4, 7},
	Minor:   {0, 3, 7},
	Seventh: {0, 4, 7, 10},
	Major7:  {0, 4, 7, 11},
	Minor7:  {0, 3, 7, 10},
	Sus2:    {0, 2, 7},
	Sus4:    {0, 5, 7},
	Dim:     {0, 3, 6},
	Aug:     {0, 4, 8},
	Add9:    {0, 4, 7, 14},
}

var pitchClass = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4,
	"F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9,
	"A#": 10, "Bb": 10, "B": 11,
}

var chordTable map[Family]map[string]Chord

func init() {
	chordTable = make(map[Family]map[string]Chord, int(numFamilies))
	for f := Major; f < numFamilies; f++ {
		byRoot := make(map[string]Chord, len(Roots))
		for _, root := range Roots {
			iv := familyIntervals[f]
			byRoot[root] = Chord{
				Root:      root,
				Label:     root + f.String(),
				Intervals: append([]int(nil), iv...),
				Mode:      f.Name(),
			}
		}
		chordTable[f] = byRoot
	}
}

// Lookup returns the chord for a root name and family. Enharmonic flat
// names (Db, Eb, ...) resolve to their sharp equivalents.
func Lookup(root string, f Family) (Chord, bool) {
	byRoot, ok := chordTable[f]
	if !ok {
		return Chord{}, false
	}
	c, ok := byRoot[root]
	if ok {
		return c, true
	}
	pc, ok := pitchClass[root]
	if !ok {
		return Chord{}, false
	}
	return byRoot[Roots[pc]], true
}

// Families returns every defined chord family in table order.
func Families() []Family {
	out := make([]Family, 0, int(numFamilies))
	for f := Major; f < numFamilies; f++ {
		out = append(out, f)
	}
	return out
}

// PitchClass returns the semitone offset of a root name above C.
func PitchClass(root string) (int, bool) {
	pc, ok := pitchClass[root]
	return pc, ok
}

// ParseFamily resolves a family by its label suffix or full name.
func ParseFamily(s string) (Family, error) {
	for f := Major; f < numFamilies; f++ {
		if s == f.String() || s == f.Name() {
			return f, nil
		}
	}
	return Major, fmt.Errorf("unknown chord family %q", s)
}
