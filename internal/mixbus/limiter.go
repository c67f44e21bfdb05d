package mixbus

import "math"

// Limiter follows the louder channel's peak and scales both channels so
// the envelope stays under the ceiling. Anything still above full scale
// after the envelope catches up is clipped.
type Limiter struct {
	ceiling float32
	release float32
	env     float32
}

// NewLimiter returns a limiter with its ceiling in dBFS and a release time
// in milliseconds. Attack is instant.
func NewLimiter(sampleRate int, ceilingDB, releaseMs float64) *Limiter {
	return &Limiter{
		ceiling: float32(math.Pow(10, ceilingDB/20)),
		release: float32(1 - math.Exp(-1/(releaseMs*float64(sampleRate)/1000))),
	}
}

func (m *Limiter) Process(l, r float32) (float32, float32) {
	peak := max(abs32(l), abs32(r))
	if peak > m.env {
		m.env = peak
	} else {
		m.env += m.release * (peak - m.env)
	}
	gain := float32(1)
	if m.env > m.ceiling {
		gain = m.ceiling / m.env
	}
	return clamp32(l*gain, -1, 1), clamp32(r*gain, -1, 1)
}

func (m *Limiter) Reset() { m.env = 0 }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
