//go:build headless

package audio

// NewDefault returns a Null output in headless builds, where no audio
// device (or cgo sound backend) is available.
func NewDefault(sampleRate, channels int) (Output, error) {
	return NewNull(), nil
}
