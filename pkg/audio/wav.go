package audio

import (
	"fmt"
	"io"

	wav "github.com/youpy/go-wav"
)

// BounceWAV renders the given duration of a Source and writes it to w as a
// 16-bit PCM WAV file. The source is pulled in one-second blocks, same as a
// live device would, so time-based behavior (envelopes, delay tails) comes
// out identical to playback.
func BounceWAV(w io.Writer, src Source, seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("bounce duration must be positive, got %g", seconds)
	}
	rate := src.SampleRate()
	channels := src.Channels()
	if channels != 2 {
		return fmt.Errorf("bounce supports stereo sources only, got %d channels", channels)
	}
	totalFrames := int(float64(rate) * seconds)

	ww := wav.NewWriter(w, uint32(totalFrames), uint16(channels), uint32(rate), 16)

	block := make([]float32, rate*channels)
	samples := make([]wav.Sample, rate)
	for remaining := totalFrames; remaining > 0; {
		frames := rate
		if remaining < frames {
			frames = remaining
		}
		buf := block[:frames*channels]
		src.Render(buf)
		out := samples[:frames]
		for i := range out {
			out[i].Values[0] = pcm16(buf[2*i])
			out[i].Values[1] = pcm16(buf[2*i+1])
		}
		if err := ww.WriteSamples(out); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
		remaining -= frames
	}
	return nil
}

// pcm16 converts a float sample to a clipped signed 16-bit value.
func pcm16(s float32) int {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return int(s * 32767)
}
