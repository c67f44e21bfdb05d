package fmsynth

import "math"

// vibrato is a triangle LFO shared by every voice of an engine. Its output
// is a pitch ratio applied to the operator phase increments.
type vibrato struct {
	semitones float64
	step      float64 // phase advance per frame, in cycles
	phase     float64
}

func newVibrato(rateHz, semitones, sampleRate float64) vibrato {
	if rateHz <= 0 || semitones == 0 || sampleRate <= 0 {
		return vibrato{}
	}
	return vibrato{semitones: semitones, step: rateHz / sampleRate}
}

// next advances one frame and returns the frequency ratio to apply.
func (v *vibrato) next() float64 {
	if v.step == 0 {
		return 1
	}
	var tri float64
	if v.phase < 0.5 {
		tri = 4*v.phase - 1
	} else {
		tri = 3 - 4*v.phase
	}
	v.phase += v.step
	for v.phase >= 1 {
		v.phase--
	}
	return math.Exp2(tri * v.semitones / 12)
}
