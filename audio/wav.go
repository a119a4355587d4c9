// Package audio reads, concatenates and loads the WAV clips produced by the
// dialogue. Frames are copied as integers, never resampled or transcoded.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrInvalidWAV     = errors.New("audio: not a valid wav file")
	ErrFormatMismatch = errors.New("audio: format mismatch")
	ErrNoAudio        = errors.New("audio: no clips to concatenate")
)

// Format is the framing a WAV header describes.
type Format struct {
	SampleRate  int
	Channels    int
	BitDepth    int
	AudioFormat int // 1 = integer PCM
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit, fmt %d", f.SampleRate, f.Channels, f.BitDepth, f.AudioFormat)
}

// Clip is one decoded WAV: its format and its interleaved samples.
type Clip struct {
	Format Format
	PCM    *goaudio.IntBuffer
}

// Frames is the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Format.Channels == 0 {
		return 0
	}
	return len(c.PCM.Data) / c.Format.Channels
}

// Duration in seconds.
func (c *Clip) Duration() float64 {
	if c.Format.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.Format.SampleRate)
}

// Decode parses an in-memory WAV file. Size fields larger than the data
// present (unknown-length stream headers) are read up to the end of data.
func Decode(data []byte) (*Clip, error) {
	return decode(bytes.NewReader(capSizes(data)))
}

// DecodeFile parses the WAV file at path.
func DecodeFile(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func decode(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: reading pcm: %v", ErrInvalidWAV, err)
	}
	if len(buf.Data) == 0 && d.PCMSize > 0 {
		return nil, fmt.Errorf("%w: %d data bytes decoded to no frames", ErrInvalidWAV, d.PCMSize)
	}
	return &Clip{
		Format: Format{
			SampleRate:  int(d.SampleRate),
			Channels:    int(d.NumChans),
			BitDepth:    int(d.BitDepth),
			AudioFormat: int(d.WavAudioFormat),
		},
		PCM: buf,
	}, nil
}
