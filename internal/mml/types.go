package mml

// MaxChordNotes is the most pitches a chord event carries. Further chord
// notes are parsed and dropped.
const MaxChordNotes = 5

type EventKind int

const (
	EventNote EventKind = iota + 1
	EventNoteError
	EventRest
	EventRestError
	EventChord
	EventChordError
	EventTupletStart
	EventTupletStop
	EventTupletError
	EventTempo
	EventTempoError
	EventLength
	EventLengthError
	EventOctave
	EventOctaveError
	EventVolume
	EventVolumeError
	EventTone
	EventToneError
	EventIllegalComposition
	EventIllegalDoubleTuplet
	EventIllegalTooManyNotes
	EventIllegalTooFewNotes
	EventEOF
)

var kindNames = map[EventKind]string{
	EventNote:                "note",
	EventNoteError:           "note error",
	EventRest:                "rest",
	EventRestError:           "rest error",
	EventChord:               "chord",
	EventChordError:          "chord error",
	EventTupletStart:         "tuplet start",
	EventTupletStop:          "tuplet stop",
	EventTupletError:         "tuplet error",
	EventTempo:               "tempo",
	EventTempoError:          "tempo error",
	EventLength:              "length",
	EventLengthError:         "length error",
	EventOctave:              "octave",
	EventOctaveError:         "octave error",
	EventVolume:              "volume",
	EventVolumeError:         "volume error",
	EventTone:                "tone",
	EventToneError:           "tone error",
	EventIllegalComposition:  "illegal composition",
	EventIllegalDoubleTuplet: "illegal double tuplet",
	EventIllegalTooManyNotes: "too many tuplet notes",
	EventIllegalTooFewNotes:  "too few tuplet notes",
	EventEOF:                 "end of score",
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsError reports whether k is one of the failure kinds.
func (k EventKind) IsError() bool {
	switch k {
	case EventNoteError, EventRestError, EventChordError, EventTupletError,
		EventTempoError, EventLengthError, EventOctaveError, EventVolumeError,
		EventToneError, EventIllegalComposition, EventIllegalDoubleTuplet,
		EventIllegalTooManyNotes, EventIllegalTooFewNotes:
		return true
	}
	return false
}

// Body is the kind-specific payload of an Event. It is one of Sound,
// Silence, Tuplet, Setting or Fault.
type Body interface{ body() }

// Sound is the payload of note and chord events.
type Sound struct {
	Pitches []int // semitones above C0, first note first
	Samples int
}

// Silence is the payload of rest events.
type Silence struct {
	Samples int
}

// Tuplet is the payload of a tuplet start: the whole group's duration.
type Tuplet struct {
	Samples int
	Members int
}

// Setting carries the new value of a tempo, length, octave, volume or tone
// command.
type Setting struct {
	Value int
}

// Fault carries the reason for an error event.
type Fault struct {
	Err error
}

func (Sound) body()   {}
func (Silence) body() {}
func (Tuplet) body()  {}
func (Setting) body() {}
func (Fault) body()   {}

type Event struct {
	Kind EventKind
	Body Body
}

// Samples returns the duration of note, chord, rest and tuplet start events,
// and 0 for everything else.
func (e Event) Samples() int {
	switch b := e.Body.(type) {
	case Sound:
		return b.Samples
	case Silence:
		return b.Samples
	case Tuplet:
		return b.Samples
	}
	return 0
}

// Err returns the fault of an error event, or nil.
func (e Event) Err() error {
	if f, ok := e.Body.(Fault); ok {
		return f.Err
	}
	return nil
}

type Mode int

const (
	ModeNormal Mode = iota
	ModeTuplet
)

// State is the parser state that persists between calls to Parse.
type State struct {
	SampleRate int
	Tempo      int
	Octave     int
	Length     int
	Mode       Mode

	TupletNotes   int
	TupletDone    int
	TupletSamples int
}

// NewState returns the starting state for one score.
func NewState(sampleRate, tempo, octave, length int) State {
	return State{
		SampleRate: sampleRate,
		Tempo:      tempo,
		Octave:     octave,
		Length:     length,
		Mode:       ModeNormal,
	}
}

type Config struct {
	SampleRate int
	Tempo      int
	Octave     int
	Length     int
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		Tempo:      120,
		Octave:     4,
		Length:     4,
	}
}

func (c Config) State() State {
	return NewState(c.SampleRate, c.Tempo, c.Octave, c.Length)
}
