package sequencer

import (
	"github.com/nxaudio/mmlplayer/internal/mml"
)

type VoiceEngine interface {
	NoteOn(note int, velocity int, pan int, program int) int
	NoteOff(id int)
	RenderFrame() (float32, float32)
	SetMasterGain(gain float64)
	// ActiveVoiceCount returns the number of voices still sounding (attack/decay/sustain/release).
	// Used to detect when playback has fully ended including release tails.
	ActiveVoiceCount() int
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

// Part is one voice line of a piece, for example the right or left hand.
type Part struct {
	Name  string
	Score string
	Pan   int // -64 (left) to 64 (right)
}

// Step reports a parser event at the frame the sequencer consumed it.
type Step struct {
	Part  int
	Name  string
	Frame int64
	Event mml.Event
}

type Options struct {
	Loop              bool
	OnEvent           func(EventKind)
	OnStep            func(Step)
	OnFault           func(part string, err error)
	ReleaseTailFrames int // extra frames to render after last voice ends (0 = sampleRate/10)
}

const (
	defaultVelocity = 100
	maxVolume       = 100
)

type partState struct {
	name      string
	pan       int
	parser    *mml.Parser
	remaining int
	voices    []int
	velocity  int
	program   int
	done      bool
}

type Sequencer struct {
	parts              []Part
	cfg                mml.Config
	engine             VoiceEngine
	state              []partState
	frame              int64
	loop               bool
	onEvent            func(EventKind)
	onStep             func(Step)
	onFault            func(string, error)
	tailFrames         int
	passSamples        int64 // duration produced by the current pass over the parts
	commandExhausted   bool  // every part hit EOF; waiting for engine release
	playbackEndedFired bool
	releaseTail        int
	loopPending        bool
	loopTailCountdown  int
	pendingReset       bool
}

func New(parts []Part, cfg mml.Config, engine VoiceEngine) *Sequencer {
	return NewWithOptions(parts, cfg, engine, Options{})
}

func NewWithOptions(parts []Part, cfg mml.Config, engine VoiceEngine, opts Options) *Sequencer {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = cfg.SampleRate / 10
	}
	s := &Sequencer{
		parts:       parts,
		cfg:         cfg,
		engine:      engine,
		loop:        opts.Loop,
		onEvent:     opts.OnEvent,
		onStep:      opts.OnStep,
		onFault:     opts.OnFault,
		tailFrames:  tail,
		releaseTail: tail,
	}
	s.state = make([]partState, len(parts))
	s.resetParts()
	s.commandExhausted = len(parts) == 0
	return s
}

func (s *Sequencer) resetParts() {
	for i, p := range s.parts {
		s.state[i] = partState{
			name:     p.Name,
			pan:      p.Pan,
			parser:   mml.NewParser(p.Score, s.cfg),
			velocity: defaultVelocity,
		}
	}
	s.passSamples = 0
}

// Process fills dst with interleaved stereo frames, advancing every part by
// one sample per frame.
func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		if s.pendingReset {
			s.pendingReset = false
			s.resetParts()
		}
		for i := range s.state {
			s.tick(i)
		}
		l, r := s.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		s.frame++
		s.checkLifecycle()
	}
}

func (s *Sequencer) tick(i int) {
	p := &s.state[i]
	if p.done {
		return
	}
	p.remaining--
	if p.remaining <= 0 {
		s.advance(i)
	}
}

// advance pulls events from the part's parser until one carries a duration
// or the score ends.
func (s *Sequencer) advance(i int) {
	p := &s.state[i]
	p.remaining = 0
	var ev mml.Event
	for {
		kind := p.parser.Next(&ev)
		if kind == mml.EventEOF {
			s.release(p)
			p.done = true
			s.maybeExhausted()
			return
		}
		if s.onStep != nil {
			s.onStep(Step{Part: i, Name: p.name, Frame: s.frame, Event: ev})
		}
		switch kind {
		case mml.EventNote, mml.EventChord:
			s.release(p)
			for _, pitch := range ev.Body.(mml.Sound).Pitches {
				p.voices = append(p.voices, s.engine.NoteOn(pitch, p.velocity, p.pan, p.program))
			}
			p.remaining = ev.Samples()
		case mml.EventRest:
			s.release(p)
			p.remaining = ev.Samples()
		case mml.EventVolume:
			p.velocity = VolumeToVelocity(ev.Body.(mml.Setting).Value)
		case mml.EventTone:
			p.program = ev.Body.(mml.Setting).Value
		default:
			if kind.IsError() && s.onFault != nil {
				s.onFault(p.name, ev.Err())
			}
		}
		if p.remaining > 0 {
			s.passSamples += int64(p.remaining)
			return
		}
	}
}

func (s *Sequencer) release(p *partState) {
	for _, id := range p.voices {
		s.engine.NoteOff(id)
	}
	p.voices = p.voices[:0]
}

func (s *Sequencer) maybeExhausted() {
	for i := range s.state {
		if !s.state[i].done {
			return
		}
	}
	// A pass without any duration would restart on every frame.
	if s.loop && s.passSamples > 0 {
		s.loopPending = true
		s.loopTailCountdown = s.tailFrames
		return
	}
	s.commandExhausted = true
}

func (s *Sequencer) checkLifecycle() {
	if s.loopPending && s.engine.ActiveVoiceCount() == 0 {
		if s.loopTailCountdown <= 0 {
			s.loopPending = false
			s.pendingReset = true
			if s.onEvent != nil {
				s.onEvent(EventLoopCompleted)
			}
		} else {
			s.loopTailCountdown--
		}
	}
	if s.commandExhausted && !s.playbackEndedFired && s.engine.ActiveVoiceCount() == 0 {
		if s.releaseTail <= 0 {
			s.playbackEndedFired = true
			if s.onEvent != nil {
				s.onEvent(EventPlaybackEnded)
			}
		} else {
			s.releaseTail--
		}
	}
}

// Finished reports whether non-looping playback has ended, release tail
// included.
func (s *Sequencer) Finished() bool { return s.playbackEndedFired }

// Elapsed returns the number of frames rendered so far.
func (s *Sequencer) Elapsed() int64 { return s.frame }

// VolumeToVelocity maps an MML volume (0-100) to a MIDI style velocity (0-127).
func VolumeToVelocity(volume int) int {
	if volume < 0 {
		volume = 0
	}
	if volume > maxVolume {
		volume = maxVolume
	}
	return volume * 127 / maxVolume
}
