package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// Concat decodes each blob in order and appends its frames to a single WAV
// written to w. The format is taken from the first blob. The header's RIFF and
// data sizes are rebuilt by the encoder from the frames actually written, so
// frame counts declared by the source headers never reach the output.
//
// It returns the number of frames contributed by each blob.
func Concat(w io.WriteSeeker, blobs [][]byte) ([]int, error) {
	if len(blobs) == 0 {
		return nil, ErrNoAudio
	}
	first, err := Decode(blobs[0])
	if err != nil {
		return nil, fmt.Errorf("clip 1: %w", err)
	}
	f := first.Format

	enc := wav.NewEncoder(w, f.SampleRate, f.BitDepth, f.Channels, f.AudioFormat)
	frames := make([]int, 0, len(blobs))
	for i, blob := range blobs {
		clip := first
		if i > 0 {
			if clip, err = Decode(blob); err != nil {
				return frames, fmt.Errorf("clip %d: %w", i+1, err)
			}
			if clip.Format != f {
				return frames, fmt.Errorf("clip %d: %w: got %s, want %s", i+1, ErrFormatMismatch, clip.Format, f)
			}
		}
		if err := enc.Write(clip.PCM); err != nil {
			return frames, fmt.Errorf("clip %d: write frames: %w", i+1, err)
		}
		frames = append(frames, clip.Frames())
	}
	if err := enc.Close(); err != nil {
		return frames, fmt.Errorf("finalize wav header: %w", err)
	}
	return frames, nil
}

// ConcatFile writes the concatenation of blobs to path. On error nothing is
// left at path.
func ConcatFile(path string, blobs [][]byte) ([]int, error) {
	out, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	frames, err := Concat(out, blobs)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return frames, nil
}
