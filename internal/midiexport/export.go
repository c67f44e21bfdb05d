package midiexport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/nxaudio/mmlplayer/internal/mml"
	"github.com/nxaudio/mmlplayer/internal/sequencer"
)

// PPQ is the resolution of exported files in ticks per quarter note.
const PPQ = 960

const (
	keyOffset   = 12 // note index 0 (C0) is MIDI key 12
	drumChannel = 9
	ccPan       = 10
	maxChannels = 15
)

var (
	ErrTooManyParts = errors.New("midiexport: more parts than MIDI channels")
	ErrBadConfig    = errors.New("midiexport: sample rate and tempo must be positive")
)

// Fault is a parse error met while exporting. The offending command is
// skipped.
type Fault struct {
	Part string
	Err  error
}

type Summary struct {
	Tracks   int
	Notes    int
	Ticks    uint32 // length of the longest track
	Duration time.Duration
	Faults   []Fault
}

// Write converts parts into a format 1 Standard MIDI File, one track per
// part. Timing is taken from the sample durations the parser computes, so
// tempo changes inside a part are kept even though the file carries a
// single tempo.
func Write(w io.Writer, parts []sequencer.Part, cfg mml.Config) (Summary, error) {
	var sum Summary
	if cfg.SampleRate <= 0 || cfg.Tempo <= 0 {
		return sum, ErrBadConfig
	}
	if len(parts) > maxChannels {
		return sum, ErrTooManyParts
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(PPQ)

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(float64(cfg.Tempo)))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return sum, fmt.Errorf("midiexport: %w", err)
	}

	var longest int64
	for i, p := range parts {
		ch := uint8(i)
		if ch >= drumChannel {
			ch++
		}
		tw := &trackWriter{
			channel:  ch,
			velocity: 100,
			ticksPer: float64(cfg.Tempo) * PPQ / (60 * float64(cfg.SampleRate)),
		}
		notes, faults := tw.walk(p, cfg)
		sum.Notes += notes
		sum.Faults = append(sum.Faults, faults...)
		if err := s.Add(tw.track); err != nil {
			return sum, fmt.Errorf("midiexport: part %s: %w", p.Name, err)
		}
		if tw.pos > longest {
			longest = tw.pos
		}
		if tw.tick > sum.Ticks {
			sum.Ticks = tw.tick
		}
	}
	sum.Tracks = len(parts)
	sum.Duration = time.Duration(longest) * time.Second / time.Duration(cfg.SampleRate)

	if _, err := s.WriteTo(w); err != nil {
		return sum, fmt.Errorf("midiexport: %w", err)
	}
	return sum, nil
}

type trackWriter struct {
	track    smf.Track
	channel  uint8
	velocity uint8
	ticksPer float64
	pos      int64  // samples
	tick     uint32 // ticks already written
	sounding []uint8
}

func (tw *trackWriter) add(msg midi.Message) {
	abs := uint32(math.Round(float64(tw.pos) * tw.ticksPer))
	tw.track.Add(abs-tw.tick, msg)
	tw.tick = abs
}

func (tw *trackWriter) release() {
	for _, key := range tw.sounding {
		tw.add(midi.NoteOff(tw.channel, key))
	}
	tw.sounding = tw.sounding[:0]
}

func (tw *trackWriter) walk(p sequencer.Part, cfg mml.Config) (notes int, faults []Fault) {
	if p.Name != "" {
		tw.track.Add(0, smf.MetaTrackSequenceName(p.Name))
	}
	tw.add(midi.ControlChange(tw.channel, ccPan, uint8(clampInt(p.Pan+64, 0, 127))))
	for ev := range mml.NewParser(p.Score, cfg).All() {
		switch ev.Kind {
		case mml.EventNote, mml.EventChord:
			tw.release()
			for _, pitch := range ev.Body.(mml.Sound).Pitches {
				key := uint8(clampInt(pitch+keyOffset, 0, 127))
				tw.add(midi.NoteOn(tw.channel, key, tw.velocity))
				tw.sounding = append(tw.sounding, key)
				notes++
			}
			tw.pos += int64(ev.Samples())
		case mml.EventRest:
			tw.release()
			tw.pos += int64(ev.Samples())
		case mml.EventVolume:
			tw.velocity = uint8(sequencer.VolumeToVelocity(ev.Body.(mml.Setting).Value))
		case mml.EventTone:
			prog := uint8(clampInt(ev.Body.(mml.Setting).Value, 0, 127))
			tw.add(midi.ProgramChange(tw.channel, prog))
		default:
			if ev.Kind.IsError() {
				faults = append(faults, Fault{Part: p.Name, Err: ev.Err()})
			}
		}
	}
	tw.release()
	tw.track.Close(0)
	return notes, faults
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
