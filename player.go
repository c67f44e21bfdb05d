package mmlplayer

import (
	"errors"
	"sync"
	"sync/atomic"

	intaudio "github.com/nxaudio/mmlplayer/internal/audio"
	intfm "github.com/nxaudio/mmlplayer/internal/fmsynth"
	"github.com/nxaudio/mmlplayer/internal/mixbus"
	intmml "github.com/nxaudio/mmlplayer/internal/mml"
	intscore "github.com/nxaudio/mmlplayer/internal/scorefile"
	intseq "github.com/nxaudio/mmlplayer/internal/sequencer"
	intsf "github.com/nxaudio/mmlplayer/internal/soundfont"
)

// PlaybackEvent carries playback and fault events from Watch().
type PlaybackEvent struct {
	Kind int // EventLoopCompleted, EventPlaybackEnded, or EventFault
	Part string
	Err  error
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
	EventFault
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	engine       EngineFactory
	mml          intmml.Config
	loopPlayback bool
	sampleTap    func([]float32)
	pans         map[string]int
	reverb       float64
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		engine:       FMEngine(intfm.AlgorithmModulated),
		mml:          intmml.DefaultConfig(),
		loopPlayback: true,
		pans:         map[string]int{"R": 24, "L": -24},
	}
}

func WithEngine(factory EngineFactory) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.engine = factory
	}
}

func WithSoundFont(font *intsf.Font) PlayerOption {
	return WithEngine(SoundFontEngine(font))
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithParserConfig sets the starting tempo, octave and length of every part.
// The sample rate always follows the player.
func WithParserConfig(c intmml.Config) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.mml = c
	}
}

// WithPartPans places parts by name (-64 left to 64 right). It applies to
// parts that do not set a pan themselves.
func WithPartPans(pans map[string]int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.pans = pans
	}
}

// WithReverb mixes a hall into the output (0 dry, 1 fully wet).
func WithReverb(amount float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.reverb = amount
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

type Player struct {
	mu           sync.Mutex
	sampleRate   int
	factory      EngineFactory
	mml          intmml.Config
	pans         map[string]int
	engine       intseq.VoiceEngine
	audio        *intaudio.Player
	baseGain     float64
	volume       float64
	loopPlayback bool
	reverb       float64
	sampleTap    func([]float32)
	done         chan struct{}
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

// eventWrapper wraps a sequencer and implements Source + FinishingSource
// to report playback events and signal when non-looping playback ends.
type eventWrapper struct {
	seq       *intseq.Sequencer
	bus       *mixbus.Bus
	finished  atomic.Bool
	sampleTap func([]float32)
}

func (w *eventWrapper) Process(dst []float32) {
	w.seq.Process(dst)
	w.bus.Run(dst)
	if w.sampleTap != nil {
		w.sampleTap(dst)
	}
}

func (w *eventWrapper) Finished() bool {
	return w.finished.Load()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.engine == nil {
		return nil, errors.New("no engine configured")
	}
	engine, baseGain, err := cfg.engine(sampleRate)
	if err != nil {
		return nil, err
	}
	engine.SetMasterGain(baseGain)
	cfg.mml.SampleRate = sampleRate
	return &Player{
		sampleRate:   sampleRate,
		factory:      cfg.engine,
		mml:          cfg.mml,
		pans:         cfg.pans,
		engine:       engine,
		baseGain:     baseGain,
		volume:       1,
		loopPlayback: cfg.loopPlayback,
		reverb:       cfg.reverb,
		sampleTap:    cfg.sampleTap,
	}, nil
}

// PlayScore splits a multi-part score ("R: ...; L: ...") and plays it.
func (p *Player) PlayScore(text string) error {
	parts := intscore.Split(text)
	if len(parts) == 0 {
		return errors.New("score has no parts")
	}
	return p.Play(parts)
}

func (p *Player) Play(parts []intseq.Part) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	// Recreate the engine on every Play to avoid voice/envelope state
	// leaking between songs.
	engine, baseGain, err := p.factory(p.sampleRate)
	if err != nil {
		return err
	}
	engine.SetMasterGain(baseGain * p.volume)
	p.engine = engine
	p.baseGain = baseGain

	wrapper := &eventWrapper{
		bus:       mixbus.Default(p.sampleRate, float32(p.reverb)),
		sampleTap: p.sampleTap,
	}
	wrapper.seq = intseq.NewWithOptions(p.placeParts(parts), p.mml, engine, intseq.Options{
		Loop: p.loopPlayback,
		OnEvent: func(kind intseq.EventKind) {
			if kind == intseq.EventPlaybackEnded {
				wrapper.finished.Store(true)
			}
			p.sendEvent(PlaybackEvent{Kind: int(kind)})
			if kind == intseq.EventPlaybackEnded {
				p.signalDone()
			}
		},
		OnFault: func(part string, err error) {
			p.sendEvent(PlaybackEvent{Kind: EventFault, Part: part, Err: err})
		},
	})

	backend, err := intaudio.NewPlayer(p.sampleRate, wrapper)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) placeParts(parts []intseq.Part) []intseq.Part {
	out := make([]intseq.Part, len(parts))
	for i, part := range parts {
		if pan, ok := p.pans[part.Name]; ok && part.Pan == 0 {
			part.Pan = pan
		}
		out[i] = part
	}
	return out
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. When loop playback is enabled,
// Wait blocks until Stop (use Watch for loop-counting instead).
// Wait returns immediately if no playback is active.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events:
//   - EventLoopCompleted: a whole-score loop iteration finished (when looping)
//   - EventPlaybackEnded: playback finished or was stopped
//   - EventFault: a part hit a command it could not parse (Part, Err set)
//
// The channel is buffered (cap 8); receive in a goroutine to avoid dropping events.
// Only the most recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition returns the current output position of the audio driver
// in frames, i.e. what the listener actually hears right now. Returns 0 if
// not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}
