//go:build !headless

package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoOutput plays a Source through the platform audio device via oto. The
// device pulls samples by reading from a pullReader wrapped around the
// source, so the engine renders exactly as fast as the hardware consumes.
type OtoOutput struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// NewDefault opens the platform audio device. Headless builds swap this for
// a Null output.
func NewDefault(sampleRate, channels int) (Output, error) {
	return NewOto(sampleRate, channels)
}

// NewOto creates the oto context for the given stream format and waits for
// the device to become ready.
func NewOto(sampleRate, channels int) (*OtoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready
	return &OtoOutput{ctx: ctx}, nil
}

func (o *OtoOutput) Start(src Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx == nil {
		return fmt.Errorf("audio device closed")
	}
	if o.player != nil {
		return nil
	}
	o.player = o.ctx.NewPlayer(&pullReader{src: src})
	o.player.Play()
	return nil
}

func (o *OtoOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

func (o *OtoOutput) Close() error {
	err := o.Stop()
	o.mu.Lock()
	o.ctx = nil
	o.mu.Unlock()
	return err
}

// pullReader adapts a Source to the io.Reader oto pulls from. It is created
// on Start and owned by a single oto goroutine, so it needs no locking.
type pullReader struct {
	src Source
	buf []float32
}

func (r *pullReader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.src.Channels()
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	samples := frames * r.src.Channels()
	if cap(r.buf) < samples {
		r.buf = make([]float32, samples)
	}
	buf := r.buf[:samples]
	r.src.Render(buf)
	for i, s := range buf {
		bits := math.Float32bits(s)
		p[4*i] = byte(bits)
		p[4*i+1] = byte(bits >> 8)
		p[4*i+2] = byte(bits >> 16)
		p[4*i+3] = byte(bits >> 24)
	}
	return samples * 4, nil
}
