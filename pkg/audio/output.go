// Package audio abstracts the audio output device behind a small pull
// interface so the synthesis engine can run against real hardware, a file
// bounce, or nothing at all.
package audio

import "sync"

// Source produces interleaved samples on demand. Render must fill the whole
// slice every call; it runs on the output's audio goroutine.
type Source interface {
	Render(out []float32)
	SampleRate() int
	Channels() int
}

// Output drives a Source. Start begins pulling samples and reports device
// failures immediately; after Start fails the Output is unusable.
type Output interface {
	Start(src Source) error
	Stop() error
	Close() error
}

// Null is an Output that opens no device and pulls no samples. It stands in
// for hardware in tests and headless builds.
type Null struct {
	mu      sync.Mutex
	started bool
}

// NewNull returns an Output that accepts any source and does nothing.
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Start(src Source) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = true
	return nil
}

func (n *Null) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = false
	return nil
}

func (n *Null) Close() error {
	return n.Stop()
}

// Started reports whether Start has been called without a matching Stop.
func (n *Null) Started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}
