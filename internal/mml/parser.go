package mml

import (
	"errors"
	"iter"
)

// Parse reads one command from c, applies it to st and describes it in ev.
// It returns ev.Kind. At the end of the score it returns EventEOF without
// moving c, so it can be called again safely.
func Parse(st *State, c *Cursor, ev *Event) EventKind {
	c.skipSpace()
	pos := c.Pos()
	code := c.next()
	ev.Body = nil

	var kind EventKind
	switch code {
	case 'A', 'B', 'C', 'D', 'E', 'F', 'G':
		kind = st.note(c, pos, code, ev)
	case 'R':
		kind = st.rest(c, pos, ev)
	case 'T':
		kind = st.tempo(c, pos, ev)
	case 'L':
		kind = st.length(c, pos, ev)
	case 'O', '>', '<':
		kind = st.octave(c, pos, code, ev)
	case 'V':
		kind = st.volume(c, pos, ev)
	case '@':
		kind = st.tone(c, pos, ev)
	case chordOpen:
		kind = st.chord(c, pos, ev)
	case tupletOpen:
		kind = st.startTuplet(c, pos, ev)
	case tupletClose:
		kind = st.stopTuplet(c, pos, ev)
	case 0:
		kind = EventEOF
	default:
		kind = EventIllegalComposition
		ev.Body = fault(pos, code, ErrIllegal)
	}
	ev.Kind = kind
	return kind
}

// duration sources the length of a note, rest or chord: a share of the open
// tuplet, or the length suffix that follows.
func (st *State) duration(c *Cursor) (int, error) {
	if st.Mode == ModeTuplet {
		if st.tupletFull() {
			return 0, ErrTooManyNotes
		}
		return st.apportion(), nil
	}
	return st.lengthSuffix(c)
}

func (st *State) note(c *Cursor, pos int, code byte, ev *Event) EventKind {
	pitch := noteIndex(code) + c.accidentals() + st.Octave*12
	samples, err := st.duration(c)
	switch {
	case errors.Is(err, ErrTooManyNotes):
		ev.Body = fault(pos, code, err)
		return EventIllegalTooManyNotes
	case err != nil:
		ev.Body = fault(pos, code, err)
		return EventNoteError
	}
	ev.Body = Sound{Pitches: []int{pitch}, Samples: samples}
	return EventNote
}

func (st *State) rest(c *Cursor, pos int, ev *Event) EventKind {
	samples, err := st.duration(c)
	switch {
	case errors.Is(err, ErrTooManyNotes):
		ev.Body = fault(pos, 'R', err)
		return EventIllegalTooManyNotes
	case err != nil:
		ev.Body = fault(pos, 'R', err)
		return EventRestError
	}
	ev.Body = Silence{Samples: samples}
	return EventRest
}

// chord reads up to the closing ']'. Octave commands inside the brackets
// take effect for the notes after them.
func (st *State) chord(c *Cursor, pos int, ev *Event) EventKind {
	pitches := make([]int, 0, MaxChordNotes)
	var scratch Event
	for {
		at := c.Pos()
		code := c.next()
		if code == chordClose {
			break
		}
		if code == 0 {
			ev.Body = fault(pos, chordOpen, ErrUnterminated)
			return EventChordError
		}
		if idx := noteIndex(code); idx >= 0 {
			pitch := idx + c.accidentals() + st.Octave*12
			if len(pitches) < MaxChordNotes {
				pitches = append(pitches, pitch)
			}
			continue
		}
		switch code {
		case 'O', '>', '<':
			if st.octave(c, at, code, &scratch) == EventOctaveError {
				ev.Body = scratch.Body
				return EventChordError
			}
		default:
			ev.Body = fault(at, code, ErrChordContent)
			return EventChordError
		}
	}
	if len(pitches) == 0 {
		ev.Body = fault(pos, chordOpen, ErrEmptyChord)
		return EventChordError
	}

	samples, err := st.duration(c)
	switch {
	case errors.Is(err, ErrTooManyNotes):
		ev.Body = fault(pos, chordOpen, err)
		return EventIllegalTooManyNotes
	case err != nil:
		ev.Body = fault(pos, chordOpen, err)
		return EventChordError
	}
	ev.Body = Sound{Pitches: pitches, Samples: samples}
	return EventChord
}

func (st *State) tempo(c *Cursor, pos int, ev *Event) EventKind {
	v, err := requiredNumber(c)
	if err == nil && v == 0 {
		err = ErrBadTempo
	}
	if err != nil {
		ev.Body = fault(pos, 'T', err)
		return EventTempoError
	}
	st.Tempo = v
	ev.Body = Setting{Value: v}
	return EventTempo
}

func (st *State) length(c *Cursor, pos int, ev *Event) EventKind {
	v, err := requiredNumber(c)
	if err != nil {
		ev.Body = fault(pos, 'L', err)
		return EventLengthError
	}
	st.Length = v
	ev.Body = Setting{Value: v}
	return EventLength
}

func (st *State) octave(c *Cursor, pos int, code byte, ev *Event) EventKind {
	switch code {
	case '>':
		st.Octave++
	case '<':
		st.Octave--
	default:
		v, err := requiredNumber(c)
		if err != nil {
			ev.Body = fault(pos, code, err)
			return EventOctaveError
		}
		st.Octave = v
	}
	ev.Body = Setting{Value: st.Octave}
	return EventOctave
}

// volume accepts V, V0 ... V100. A bare V means 0.
func (st *State) volume(c *Cursor, pos int, ev *Event) EventKind {
	sign := 1
	if c.peek() == '-' && isDigit(byteAt(c.src, c.pos+1)) {
		sign = -1
		c.advance(1)
	}
	v := 0
	if digitRun(c.src, c.pos) > 0 {
		n, ok := c.number()
		if !ok {
			ev.Body = fault(pos, 'V', ErrVolumeRange)
			return EventVolumeError
		}
		v = sign * n
	}
	if v < 0 || v > 100 {
		ev.Body = fault(pos, 'V', ErrVolumeRange)
		return EventVolumeError
	}
	ev.Body = Setting{Value: v}
	return EventVolume
}

func (st *State) tone(c *Cursor, pos int, ev *Event) EventKind {
	v, err := requiredNumber(c)
	if err != nil {
		ev.Body = fault(pos, '@', err)
		return EventToneError
	}
	ev.Body = Setting{Value: v}
	return EventTone
}

func (st *State) startTuplet(c *Cursor, pos int, ev *Event) EventKind {
	if st.Mode != ModeNormal {
		ev.Body = fault(pos, tupletOpen, ErrNestedTuplet)
		return EventIllegalDoubleTuplet
	}
	members, samples, err := st.scanTuplet(*c)
	if err != nil {
		ev.Body = fault(pos, tupletOpen, err)
		return EventTupletError
	}
	st.Mode = ModeTuplet
	st.TupletNotes = members
	st.TupletDone = 0
	st.TupletSamples = samples
	ev.Body = Tuplet{Samples: samples, Members: members}
	return EventTupletStart
}

// stopTuplet always returns to normal mode. The length after '}' was already
// accounted for when the tuplet opened and is only skipped here.
func (st *State) stopTuplet(c *Cursor, pos int, ev *Event) EventKind {
	_, _ = st.lengthSuffix(c)
	short := st.TupletDone != st.TupletNotes
	st.Mode = ModeNormal
	st.TupletNotes, st.TupletDone, st.TupletSamples = 0, 0, 0
	if short {
		ev.Body = fault(pos, tupletClose, ErrTooFewNotes)
		return EventIllegalTooFewNotes
	}
	return EventTupletStop
}

func requiredNumber(c *Cursor) (int, error) {
	if !isDigit(c.peek()) {
		return 0, ErrMissingArgument
	}
	v, ok := c.number()
	if !ok {
		return 0, ErrNumberRange
	}
	return v, nil
}

// Parser steps through a single score.
type Parser struct {
	st  State
	cur Cursor
}

func NewParser(score string, cfg Config) *Parser {
	return &Parser{st: cfg.State(), cur: NewCursor(score)}
}

// Next parses the next command into ev and returns its kind.
func (p *Parser) Next(ev *Event) EventKind { return Parse(&p.st, &p.cur, ev) }

func (p *Parser) State() State { return p.st }

func (p *Parser) Pos() int { return p.cur.Pos() }

// All yields every event up to, but not including, the end of the score.
func (p *Parser) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		var ev Event
		for p.Next(&ev) != EventEOF {
			if !yield(ev) {
				return
			}
		}
	}
}
