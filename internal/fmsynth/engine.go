package fmsynth

import (
	"math"
	"sync/atomic"
)

const twoPi = math.Pi * 2

type Params struct {
	Polyphony   int
	ModMul      float64
	ModIndex    float64
	Feedback    float64 // carrier self-feedback for AlgorithmFeedback (0-1)
	Detune      float64 // ratio offset of the second carrier for AlgorithmFeedback
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	MasterGain  float64
	VelocityAmp float64
	LPFCutoff   float64 // lowpass filter cutoff in Hz (0 = disabled)

	VibratoRate  float64 // Hz
	VibratoDepth float64 // semitones either side (0 = off)
}

func DefaultParams() Params {
	return Params{
		Polyphony:   16,
		ModMul:      2.0,
		ModIndex:    1.6,
		Feedback:    0.35,
		Detune:      0.004,
		AttackSec:   0.005,
		DecaySec:    0.12,
		SustainLvl:  0.75,
		ReleaseSec:  0.15,
		MasterGain:  0.45,
		VelocityAmp: 0.8,
		LPFCutoff:   12000,
	}
}

// Algorithm selects how the two operators of a voice are connected.
type Algorithm int

const (
	// AlgorithmSine plays the carrier alone.
	AlgorithmSine Algorithm = iota
	// AlgorithmModulated feeds the modulator into the carrier's phase.
	AlgorithmModulated
	// AlgorithmFeedback runs a self-modulating carrier next to a slightly
	// detuned second carrier.
	AlgorithmFeedback
)

// Waveforms selectable through the program number (program % 4).
const (
	WaveSine = iota
	WaveSaw
	WaveTriangle
	WaveSquare
	waveCount
)

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type operator struct {
	phase    float64
	env      float64
	envState envState
	mul      float64
	prevOut  float64
}

type voice struct {
	active   bool
	id       int
	velocity float64
	freq     float64
	pan      float64
	waveform int
	alg      Algorithm
	ops      [2]operator
}

type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64
	algorithm  Algorithm
	lpfL       float64
	lpfR       float64
	lpfAlpha   float64
	vib        vibrato
}

func New(sampleRate int, params Params) *Engine {
	if params.Polyphony <= 0 {
		params.Polyphony = 16
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Polyphony),
		masterGain: math.Float64bits(params.MasterGain),
		vib:        newVibrato(params.VibratoRate, params.VibratoDepth, float64(sampleRate)),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	return e
}

// SetAlgorithm selects the operator topology for notes started afterwards.
func (e *Engine) SetAlgorithm(alg Algorithm) {
	if alg < AlgorithmSine || alg > AlgorithmFeedback {
		alg = AlgorithmSine
	}
	e.algorithm = alg
}

func (e *Engine) Algorithm() Algorithm { return e.algorithm }

// NoteOn starts a voice for a note index (0 = C0) and returns its id.
// velocity is 0-127 and pan -64 (left) to 64 (right).
func (e *Engine) NoteOn(note int, velocity int, pan int, program int) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	if program < 0 {
		program = -program
	}
	carrierMul, secondMul := 1.0, e.params.ModMul
	if e.algorithm == AlgorithmFeedback {
		secondMul = 1.0 + e.params.Detune
	}
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		velocity: clamp(float64(velocity)/127.0, 0, 1),
		freq:     Frequency(note),
		pan:      clamp(float64(pan), -64, 64),
		waveform: program % waveCount,
		alg:      e.algorithm,
		ops: [2]operator{
			{envState: envAttack, mul: carrierMul},
			{envState: envAttack, mul: secondMul},
		},
	}
	return id
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id {
			for oi := range v.ops {
				if v.ops[oi].envState != envOff {
					v.ops[oi].envState = envRelease
				}
			}
		}
	}
}

func (e *Engine) RenderFrame() (float32, float32) {
	var l, r float64
	gain := e.masterGainValue()
	bend := e.vib.next()
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		advanceEnv(&v.ops[0], &e.params, e.sampleRate)
		advanceEnv(&v.ops[1], &e.params, e.sampleRate)
		if v.ops[0].envState == envOff && v.ops[1].envState == envOff {
			v.active = false
			continue
		}
		sig := e.renderVoice(v)
		sig *= gain * (0.2 + v.velocity*e.params.VelocityAmp)
		angle := ((v.pan + 64.0) / 128.0) * (math.Pi / 2.0)
		l += sig * math.Cos(angle)
		r += sig * math.Sin(angle)
		for oi := range v.ops {
			op := &v.ops[oi]
			op.phase += twoPi * v.freq * bend * op.mul / e.sampleRate
			if op.phase > twoPi {
				op.phase -= twoPi
			}
		}
	}
	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l, r = e.lpfL, e.lpfR
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

func (e *Engine) renderVoice(v *voice) float64 {
	car, mod := &v.ops[0], &v.ops[1]
	switch v.alg {
	case AlgorithmModulated:
		m := math.Sin(mod.phase) * mod.env * e.params.ModIndex
		return waveformSample(car.phase+m, v.waveform) * car.env
	case AlgorithmFeedback:
		fb := car.prevOut * e.params.Feedback * math.Pi
		s0 := waveformSample(car.phase+fb, v.waveform) * car.env
		car.prevOut = s0
		s1 := waveformSample(mod.phase, v.waveform) * mod.env
		return (s0 + s1) * (1.0 / math.Sqrt2)
	default:
		return waveformSample(car.phase, v.waveform) * car.env
	}
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Steal the quietest carrier.
	quiet := 0
	minEnv := e.voices[0].ops[0].env
	for i := 1; i < len(e.voices); i++ {
		if e.voices[i].ops[0].env < minEnv {
			minEnv = e.voices[i].ops[0].env
			quiet = i
		}
	}
	return quiet
}

func advanceEnv(op *operator, p *Params, sampleRate float64) {
	switch op.envState {
	case envAttack:
		step := 1.0 / (p.AttackSec * sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		op.env += step
		if op.env >= 1 {
			op.env = 1
			op.envState = envDecay
		}
	case envDecay:
		step := (1 - p.SustainLvl) / (p.DecaySec * sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		op.env -= step
		if op.env <= p.SustainLvl {
			op.env = p.SustainLvl
			op.envState = envSustain
		}
	case envSustain:
	case envRelease:
		step := 1.0 / (p.ReleaseSec * sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		op.env -= step
		if op.env <= 0.0001 {
			op.env = 0
			op.envState = envOff
		}
	case envOff:
		op.env = 0
	}
}

func waveformSample(phase float64, waveform int) float64 {
	switch waveform {
	case WaveSaw:
		return 1.0 - 2.0*math.Mod(phase, twoPi)/twoPi
	case WaveTriangle:
		return 2.0*math.Abs(2.0*math.Mod(phase, twoPi)/twoPi-1.0) - 1.0
	case WaveSquare:
		if math.Mod(phase, twoPi) < math.Pi {
			return 1.0
		}
		return -1.0
	default:
		return math.Sin(phase)
	}
}

// Frequency returns the pitch in Hz of a note index, where 0 is C0 and 57
// is A4 (440 Hz).
func Frequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-57)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}
