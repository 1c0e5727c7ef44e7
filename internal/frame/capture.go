package frame

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Capture writes every delivered audio batch to a 16-bit stereo WAV file.
type Capture struct {
	f      *os.File
	enc    *wav.Encoder
	format *audio.Format
	buf    []int
}

// NewCapture creates the WAV file at path.
func NewCapture(path string, sampleRate int) (*Capture, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio capture: invalid sample rate %d", sampleRate)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio capture: %w", err)
	}
	return &Capture{
		f:      f,
		enc:    wav.NewEncoder(f, sampleRate, 16, 2, 1),
		format: &audio.Format{NumChannels: 2, SampleRate: sampleRate},
	}, nil
}

// Write appends interleaved stereo samples.
func (c *Capture) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	c.buf = c.buf[:0]
	for _, s := range samples {
		c.buf = append(c.buf, int(s))
	}
	buf := &audio.IntBuffer{Format: c.format, Data: c.buf, SourceBitDepth: 16}
	if err := c.enc.Write(buf); err != nil {
		return fmt.Errorf("audio capture: %w", err)
	}
	return nil
}

// Close finalises the WAV header and closes the file.
func (c *Capture) Close() error {
	encErr := c.enc.Close()
	fileErr := c.f.Close()
	if encErr != nil {
		return fmt.Errorf("audio capture: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("audio capture: %w", fileErr)
	}
	return nil
}
