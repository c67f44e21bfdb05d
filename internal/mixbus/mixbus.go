// Package mixbus post-processes the mixed stereo output of a score.
package mixbus

// Stage transforms one stereo frame.
type Stage interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Bus runs frames through its stages in order.
type Bus struct {
	stages []Stage
}

func New(stages ...Stage) *Bus {
	return &Bus{stages: stages}
}

// Default is the master bus used for playback and rendering: an optional
// hall followed by a limiter keeping peaks under full scale.
func Default(sampleRate int, reverb float32) *Bus {
	b := New()
	if reverb > 0 {
		b.stages = append(b.stages, NewHall(sampleRate, 0.6, 0.72, reverb))
	}
	b.stages = append(b.stages, NewLimiter(sampleRate, -1, 80))
	return b
}

func (b *Bus) Process(l, r float32) (float32, float32) {
	for _, s := range b.stages {
		l, r = s.Process(l, r)
	}
	return l, r
}

// Run processes an interleaved stereo buffer in place.
func (b *Bus) Run(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = b.Process(buf[i], buf[i+1])
	}
}

func (b *Bus) Reset() {
	for _, s := range b.stages {
		s.Reset()
	}
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
