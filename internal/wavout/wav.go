package wavout

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	BitDepth  = 16
	fullScale = 32767
	pcmFormat = 1
)

var ErrInvalidFile = errors.New("wavout: not a valid WAV file")

// Write encodes interleaved float samples as 16-bit PCM. Samples outside
// [-1, 1] are clipped.
func Write(w io.WriteSeeker, samples []float32, sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("wavout: bad format %d Hz x %d channels", sampleRate, channels)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: BitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(clip(s) * fullScale)
	}
	e := wav.NewEncoder(w, sampleRate, BitDepth, channels, pcmFormat)
	if err := e.Write(buf); err != nil {
		return fmt.Errorf("wavout: %w", err)
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("wavout: %w", err)
	}
	return nil
}

// Read decodes a PCM WAV file back into float samples.
func Read(r io.ReadSeeker) (samples []float32, sampleRate, channels int, err error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, 0, ErrInvalidFile
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("wavout: %w", err)
	}
	scale := float32(int(1)<<(d.BitDepth-1)) - 1
	samples = make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples, int(d.SampleRate), int(d.NumChans), nil
}

func clip(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
