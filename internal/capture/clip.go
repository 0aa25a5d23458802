package capture

import (
	"time"

	"github.com/lexiqai/alfred/internal/audio"
)

// Clip is a bounded recording of mono 16-bit PCM
type Clip struct {
	Samples    []int16
	SampleRate int
	StartedAt  time.Time
}

// Duration returns the length of the recording
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Empty reports whether the clip holds no audio
func (c *Clip) Empty() bool {
	return c == nil || len(c.Samples) == 0
}

// WAV encodes the clip for upload to a recognizer
func (c *Clip) WAV() []byte {
	return audio.EncodeWAV(c.Samples, c.SampleRate)
}
