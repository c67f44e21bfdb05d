package mmlplayer

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nxaudio/mmlplayer/internal/mixbus"
	intmml "github.com/nxaudio/mmlplayer/internal/mml"
	intseq "github.com/nxaudio/mmlplayer/internal/sequencer"
)

// renderChunk is how many frames RenderParts renders between context checks.
const renderChunk = 4096

// RenderSamples plays parts through engine for the given number of seconds
// and returns interleaved stereo samples.
func RenderSamples(parts []intseq.Part, cfg intmml.Config, engine intseq.VoiceEngine, seconds float64) []float32 {
	seq := intseq.New(parts, cfg, engine)
	frames := int(float64(cfg.SampleRate) * seconds)
	out := make([]float32, frames*2)
	seq.Process(out)
	return out
}

// Duration returns how long the longest part plays, ignoring release tails.
func Duration(parts []intseq.Part, cfg intmml.Config) time.Duration {
	if cfg.SampleRate <= 0 {
		return 0
	}
	return time.Duration(longestPart(parts, cfg)) * time.Second / time.Duration(cfg.SampleRate)
}

func longestPart(parts []intseq.Part, cfg intmml.Config) int64 {
	var longest int64
	for _, p := range parts {
		if n := partSamples(p, cfg); n > longest {
			longest = n
		}
	}
	return longest
}

func partSamples(p intseq.Part, cfg intmml.Config) int64 {
	var total int64
	for ev := range intmml.NewParser(p.Score, cfg).All() {
		switch ev.Kind {
		case intmml.EventNote, intmml.EventChord, intmml.EventRest:
			total += int64(ev.Samples())
		}
	}
	return total
}

// RenderParts renders every part on its own engine in parallel and mixes the
// results. Each part runs until it ends, release tail included, or until
// maxSeconds when that is positive.
func RenderParts(ctx context.Context, parts []intseq.Part, cfg intmml.Config, factory EngineFactory, maxSeconds float64) ([]float32, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	limit := -1
	if maxSeconds > 0 {
		limit = int(maxSeconds * float64(cfg.SampleRate))
	}
	results := make([][]float32, len(parts))
	g, ctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			engine, gain, err := factory(cfg.SampleRate)
			if err != nil {
				return err
			}
			engine.SetMasterGain(gain)
			buf, err := renderPart(ctx, part, cfg, engine, limit)
			if err != nil {
				return err
			}
			results[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mix(results), nil
}

func renderPart(ctx context.Context, part intseq.Part, cfg intmml.Config, engine intseq.VoiceEngine, limit int) ([]float32, error) {
	seq := intseq.New([]intseq.Part{part}, cfg, engine)
	var out []float32
	chunk := make([]float32, renderChunk*2)
	for !seq.Finished() {
		if limit >= 0 && len(out)/2 >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := renderChunk
		if limit >= 0 && limit-len(out)/2 < n {
			n = limit - len(out)/2
		}
		seq.Process(chunk[:n*2])
		out = append(out, chunk[:n*2]...)
	}
	return out, nil
}

func mix(bufs [][]float32) []float32 {
	n := 0
	for _, b := range bufs {
		if len(b) > n {
			n = len(b)
		}
	}
	out := make([]float32, n)
	for _, b := range bufs {
		for i, s := range b {
			out[i] += s
		}
	}
	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	return out
}

// Master runs a rendered stereo buffer through the same bus the player
// uses: an optional hall, then a limiter.
func Master(samples []float32, sampleRate int, reverb float64) {
	mixbus.Default(sampleRate, float32(reverb)).Run(samples)
}
