// Command harpichord is a chord-triggered synthesizer with a plucked harp
// voice, a pattern-based rhythm section and bidirectional MIDI bridging.
package main

func main() {
	Execute()
}
