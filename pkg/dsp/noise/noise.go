// Package noise provides the white noise source behind the snare and
// hi-hat voices.
package noise

import "math/rand"

// White generates uniform white noise in [-1, 1). Seeded explicitly so
// offline renders are reproducible.
type White struct {
	rand *rand.Rand
}

// NewWhite creates a white noise source from a seed.
func NewWhite(seed int64) *White {
	return &White{rand: rand.New(rand.NewSource(seed))}
}

// Next returns the next noise sample.
func (w *White) Next() float32 {
	return float32(w.rand.Float64()*2.0 - 1.0)
}
