package audio

// LoadMono reads the WAV at path and returns its samples averaged across
// channels and scaled to [-1, 1], together with the sample rate.
func LoadMono(path string) ([]float64, int, error) {
	clip, err := DecodeFile(path)
	if err != nil {
		return nil, 0, err
	}
	return clip.Mono(), clip.Format.SampleRate, nil
}

// Mono downmixes the clip to one normalized channel.
func (c *Clip) Mono() []float64 {
	ch := c.Format.Channels
	if ch < 1 {
		return nil
	}
	scale, offset := 1.0, 0.0
	switch {
	case c.Format.BitDepth == 8:
		// 8-bit WAV is unsigned.
		scale, offset = 128, 128
	case c.Format.BitDepth > 1:
		scale = float64(int64(1) << (c.Format.BitDepth - 1))
	}

	out := make([]float64, c.Frames())
	for i := range out {
		var sum float64
		for j := 0; j < ch; j++ {
			sum += (float64(c.PCM.Data[i*ch+j]) - offset) / scale
		}
		out[i] = sum / float64(ch)
	}
	return out
}
