package music

import "fmt"

// Step holds the drum hits scheduled on one sixteenth-note tick.
type Step struct {
	Kick  bool
	Snare bool
	Hat   bool
}

// Pattern identifies a built-in rhythm table. PatternNone means the
// sequencer is stopped.
type Pattern int

const (
	PatternNone Pattern = iota
	PatternFourOnFloor
	PatternBackbeat
	PatternWaltz
	PatternShuffle
)

// String returns the pattern's selector name.
func (p Pattern) String() string {
	switch p {
	case PatternNone:
		return "none"
	case PatternFourOnFloor:
		return "four-on-floor"
	case PatternBackbeat:
		return "backbeat"
	case PatternWaltz:
		return "waltz"
	case PatternShuffle:
		return "shuffle"
	}
	return "?"
}

// ParsePattern resolves a pattern by its selector name.
func ParsePattern(s string) (Pattern, error) {
	for p := PatternNone; p <= PatternShuffle; p++ {
		if s == p.String() {
			return p, nil
		}
	}
	return PatternNone, fmt.Errorf("unknown pattern %q", s)
}

// Steps returns the pattern's step table. The cycle length is the table
// length; patterns are free to run longer than one bar (the shuffle spans
// three) so phrasing does not have to repeat every 16 steps. PatternNone
// returns nil.
func (p Pattern) Steps() []Step {
	return patternTable[p]
}

// lanes builds a step table from one string per drum lane, 'x' marking a
// hit. All lanes must be equal length; tables are static so a mismatch is
// a programming error.
func lanes(kick, snare, hat string) []Step {
	if len(snare) != len(kick) || len(hat) != len(kick) {
		panic("music: pattern lanes differ in length")
	}
	steps := make([]Step, len(kick))
	for i := range steps {
		steps[i] = Step{
			Kick:  kick[i] == 'x',
			Snare: snare[i] == 'x',
			Hat:   hat[i] == 'x',
		}
	}
	return steps
}

var patternTable = map[Pattern][]Step{
	PatternFourOnFloor: lanes(
		"x...x...x...x...",
		"....x.......x...",
		"x.x.x.x.x.x.x.x.",
	),
	PatternBackbeat: lanes(
		"x......x..x.....",
		"....x.......x...",
		"x.x.x.x.x.x.x.xx",
	),
	PatternWaltz: lanes(
		"x...........",
		"....x...x...",
		"x.x.x.x.x.x.",
	),
	// Three-bar shuffle: bars one and two ride a swung hat, bar three adds
	// a kick pickup and a snare drag into the turnaround.
	PatternShuffle: lanes(
		"x.....x...x....."+"x.....x...x....."+"x.....x...x..x..",
		"....x.......x..."+"....x.......x..."+"....x.......x..x",
		"x..x..x.x..x..x."+"x..x..x.x..x..x."+"x..x..x.x..xx.xx",
	),
}
