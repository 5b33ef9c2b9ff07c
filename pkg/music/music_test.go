package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCoversAllRootsAndFamilies(t *testing.T) {
	assert := assert.New(t)
	for _, f := range Families() {
		for _, root := range Roots {
			c, ok := Lookup(root, f)
			assert.True(ok, "missing %s %s", root, f.Name())
			assert.Equal(root, c.Root)
			assert.NotEmpty(c.Intervals)
			assert.Equal(0, c.Intervals[0], "%s: first interval is the root", c.Label)
			assert.Equal(f.Name(), c.Mode)
		}
	}
}

func TestLookupEnharmonicFlats(t *testing.T) {
	assert := assert.New(t)
	sharp, ok := Lookup("C#", Minor)
	assert.True(ok)
	flat, ok := Lookup("Db", Minor)
	assert.True(ok)
	assert.Equal(sharp, flat)

	_, ok = Lookup("H", Major)
	assert.False(ok)
}

func TestAdd9CarriesExtensionAboveOctave(t *testing.T) {
	c, ok := Lookup("C", Add9)
	assert.True(t, ok)
	max := 0
	for _, iv := range c.Intervals {
		if iv > max {
			max = iv
		}
	}
	assert.Greater(t, max, 11)
}

func TestHarpStringWrapsUpAnOctave(t *testing.T) {
	assert := assert.New(t)
	c, _ := Lookup("C", Major) // three intervals

	iv0, oct0 := HarpString(c, 0)
	iv3, oct3 := HarpString(c, 3)
	assert.Equal(iv0, iv3, "string 3 over a triad repeats string 0's pitch class")
	assert.Equal(0, oct0)
	assert.Equal(1, oct3)

	iv5, oct5 := HarpString(c, 5)
	assert.Equal(c.Intervals[2], iv5)
	assert.Equal(1, oct5)

	ivNeg, octNeg := HarpString(c, -2)
	assert.Equal(c.Intervals[0], ivNeg)
	assert.Equal(0, octNeg)
}

func TestDelayTimeScalesInverselyWithTempo(t *testing.T) {
	divisions := []Division{
		DivHalf, DivDottedQuarter, DivQuarter, DivDottedEighth,
		DivEighth, DivEighthTriplet, DivSixteenth,
	}
	for _, d := range divisions {
		t.Run(d.String(), func(t *testing.T) {
			assert.InDelta(t, 2*DelayTime(120, d), DelayTime(60, d), 1e-12)
		})
	}
	assert.InDelta(t, 0.25, DelayTime(120, DivEighth), 1e-12)
	assert.InDelta(t, 0.5, DelayTime(120, DivQuarter), 1e-12)
}

func TestStepDurationIsQuarterOfABeat(t *testing.T) {
	assert.Equal(t, BeatDuration(120)/4, StepDuration(120))
	assert.Equal(t, BeatDuration(90)/4, StepDuration(90))
}

func TestPatternCycleLengths(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(PatternNone.Steps())
	assert.Len(PatternFourOnFloor.Steps(), 16)
	assert.Len(PatternBackbeat.Steps(), 16)
	assert.Len(PatternWaltz.Steps(), 12)
	assert.Len(PatternShuffle.Steps(), 48)
}

func TestFourOnFloorPlacesKicksOnBeats(t *testing.T) {
	steps := PatternFourOnFloor.Steps()
	for i, s := range steps {
		onBeat := i%4 == 0
		assert.Equal(t, onBeat, s.Kick, "step %d", i)
	}
}

func TestMIDINoteClampsToRange(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint8(60), MIDINote(60, 0, 0))
	assert.Equal(uint8(67), MIDINote(60, 7, 0))
	assert.Equal(uint8(127), MIDINote(120, 14, 2))
	assert.Equal(uint8(0), MIDINote(4, 0, -3))
}

func TestNoteFrequencyReference(t *testing.T) {
	assert.InDelta(t, 440.0, NoteFrequency(69), 1e-9)
	assert.InDelta(t, MiddleCHz, NoteFrequency(MiddleCNote), 1e-9)
}

func TestParseRoundTrips(t *testing.T) {
	assert := assert.New(t)

	for _, f := range Families() {
		got, err := ParseFamily(f.Name())
		assert.NoError(err)
		assert.Equal(f, got)
	}
	_, err := ParseFamily("lydian")
	assert.Error(err)

	for d := DivHalf; d <= DivSixteenth; d++ {
		got, err := ParseDivision(d.String())
		assert.NoError(err)
		assert.Equal(d, got)
	}
	_, err = ParseDivision("1/32")
	assert.Error(err)

	for p := PatternNone; p <= PatternShuffle; p++ {
		got, err := ParsePattern(p.String())
		assert.NoError(err)
		assert.Equal(p, got)
	}
	_, err = ParsePattern("bossa")
	assert.Error(err)
}
