package soundfont

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	meltysynth "github.com/sinshu/go-meltysynth/meltysynth"
)

// synthesizer abstracts the subset of meltysynth.Synthesizer the engine drives.
type synthesizer interface {
	ProcessMidiMessage(channel int32, command int32, data1, data2 int32)
	NoteOn(channel, key, vel int32)
	NoteOff(channel, key int32)
	Render(left, right []float32)
}

// newSynthesizer constructs a meltysynth synthesizer. Tests may override this
// to inject a mock implementation.
var newSynthesizer = func(sf *meltysynth.SoundFont, settings *meltysynth.SynthesizerSettings) (synthesizer, error) {
	return meltysynth.NewSynthesizer(sf, settings)
}

const (
	// BlockSize is the number of frames rendered per synthesizer call.
	BlockSize = 512

	midiProgramChange = 0xC0
	midiControlChange = 0xB0
	ccPan             = 10
	drumChannel       = 9
	channelCount      = 16

	// Note index 0 is C0, which is MIDI key 12.
	keyOffset = 12
)

type heldNote struct {
	channel int32
	key     int32
}

// Engine plays notes through a SoundFont. Each distinct pan position gets its
// own MIDI channel so parts keep their stereo placement.
type Engine struct {
	synth       synthesizer
	left, right []float32
	pos         int
	nextID      int
	held        map[int]heldNote
	channels    map[int]int32 // pan -> channel
	programs    [channelCount]int32
	masterGain  uint64
	tailFrames  int
	tail        int
}

// Font is a parsed SoundFont. One Font can back any number of engines.
type Font struct {
	sf *meltysynth.SoundFont
}

// Open parses .sf2 data.
func Open(r io.Reader) (*Font, error) {
	sf, err := meltysynth.NewSoundFont(r)
	if err != nil {
		return nil, fmt.Errorf("soundfont: %w", err)
	}
	return &Font{sf: sf}, nil
}

// NewEngine builds an engine with its own synthesizer, rendering at
// sampleRate.
func (f *Font) NewEngine(sampleRate int) (*Engine, error) {
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	settings.BlockSize = BlockSize
	syn, err := newSynthesizer(f.sf, settings)
	if err != nil {
		return nil, fmt.Errorf("soundfont: %w", err)
	}
	return newEngine(syn, sampleRate), nil
}

// Load reads a .sf2 file and builds an engine rendering at sampleRate.
func Load(r io.Reader, sampleRate int) (*Engine, error) {
	f, err := Open(r)
	if err != nil {
		return nil, err
	}
	return f.NewEngine(sampleRate)
}

func newEngine(syn synthesizer, sampleRate int) *Engine {
	e := &Engine{
		synth:      syn,
		left:       make([]float32, BlockSize),
		right:      make([]float32, BlockSize),
		pos:        BlockSize,
		held:       make(map[int]heldNote),
		channels:   make(map[int]int32),
		masterGain: math.Float64bits(1),
		tailFrames: sampleRate / 2,
	}
	for ch := range e.programs {
		e.programs[ch] = -1
	}
	return e
}

func (e *Engine) channelFor(pan int) int32 {
	if ch, ok := e.channels[pan]; ok {
		return ch
	}
	ch := int32(len(e.channels))
	if ch >= drumChannel {
		ch++
	}
	if ch >= channelCount {
		// Out of channels; share the first one.
		return 0
	}
	e.channels[pan] = ch
	e.synth.ProcessMidiMessage(ch, midiControlChange, ccPan, int32(clampInt(pan+64, 0, 127)))
	return ch
}

func (e *Engine) NoteOn(note int, velocity int, pan int, program int) int {
	ch := e.channelFor(pan)
	prog := int32(clampInt(program, 0, 127))
	if e.programs[ch] != prog {
		e.synth.ProcessMidiMessage(ch, midiProgramChange, prog, 0)
		e.programs[ch] = prog
	}
	key := int32(clampInt(note+keyOffset, 0, 127))
	e.synth.NoteOn(ch, key, int32(clampInt(velocity, 0, 127)))
	id := e.nextID
	e.nextID++
	e.held[id] = heldNote{channel: ch, key: key}
	e.tail = e.tailFrames
	return id
}

func (e *Engine) NoteOff(id int) {
	n, ok := e.held[id]
	if !ok {
		return
	}
	delete(e.held, id)
	e.synth.NoteOff(n.channel, n.key)
	e.tail = e.tailFrames
}

func (e *Engine) RenderFrame() (float32, float32) {
	if e.pos >= len(e.left) {
		e.synth.Render(e.left, e.right)
		e.pos = 0
	}
	g := float32(math.Float64frombits(atomic.LoadUint64(&e.masterGain)))
	l, r := e.left[e.pos]*g, e.right[e.pos]*g
	e.pos++
	if len(e.held) == 0 && e.tail > 0 {
		e.tail--
	}
	return l, r
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

// ActiveVoiceCount counts held notes, plus one while released notes may
// still ring out.
func (e *Engine) ActiveVoiceCount() int {
	n := len(e.held)
	if n == 0 && e.tail > 0 {
		return 1
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
