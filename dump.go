package mmlplayer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	intmml "github.com/nxaudio/mmlplayer/internal/mml"
	intseq "github.com/nxaudio/mmlplayer/internal/sequencer"
)

// Compile parses a single part into its full event list. Parsing continues
// past faults; the first one is returned as the error together with every
// event.
func Compile(score string, cfg intmml.Config) ([]intmml.Event, error) {
	var (
		events []intmml.Event
		first  error
	)
	for ev := range intmml.NewParser(score, cfg).All() {
		if first == nil && ev.Kind.IsError() {
			first = ev.Err()
		}
		events = append(events, ev)
	}
	return events, first
}

// Lowercase letters mark sharps.
const pitchNames = "CcDdEFfGgAaB"

// PitchName formats a note index as octave and letter, e.g. 48 -> "O4C".
func PitchName(idx int) string {
	oct, semi := idx/12, idx%12
	if semi < 0 {
		oct--
		semi += 12
	}
	return fmt.Sprintf("O%d%c", oct, pitchNames[semi])
}

type dumpLine struct {
	at   int64
	part int
	text string
}

// Dump prints the sounding events of every part in time order, one per
// line:
//
//	R: O4C : 24000
//	R: [O4C, O4E] : 24000
//	L: Rest : 24000
//
// Faults are printed at the point they occur.
func Dump(w io.Writer, parts []intseq.Part, cfg intmml.Config) error {
	var lines []dumpLine
	for i, p := range parts {
		var at int64
		for ev := range intmml.NewParser(p.Score, cfg).All() {
			var text string
			switch ev.Kind {
			case intmml.EventNote:
				text = fmt.Sprintf("%s: %s : %d", p.Name, PitchName(ev.Body.(intmml.Sound).Pitches[0]), ev.Samples())
			case intmml.EventChord:
				pitches := ev.Body.(intmml.Sound).Pitches
				names := make([]string, len(pitches))
				for j, pitch := range pitches {
					names[j] = PitchName(pitch)
				}
				text = fmt.Sprintf("%s: [%s] : %d", p.Name, strings.Join(names, ", "), ev.Samples())
			case intmml.EventRest:
				text = fmt.Sprintf("%s: Rest : %d", p.Name, ev.Samples())
			default:
				if ev.Kind.IsError() {
					text = fmt.Sprintf("%s: %s: %v", p.Name, ev.Kind, ev.Err())
				}
			}
			if text != "" {
				lines = append(lines, dumpLine{at: at, part: i, text: text})
			}
			switch ev.Kind {
			case intmml.EventNote, intmml.EventChord, intmml.EventRest:
				at += int64(ev.Samples())
			}
		}
	}
	sort.SliceStable(lines, func(a, b int) bool {
		if lines[a].at != lines[b].at {
			return lines[a].at < lines[b].at
		}
		return lines[a].part < lines[b].part
	})
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l.text); err != nil {
			return err
		}
	}
	return nil
}
