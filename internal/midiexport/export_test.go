package midiexport

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/nxaudio/mmlplayer/internal/mml"
	"github.com/nxaudio/mmlplayer/internal/sequencer"
)

type noteStart struct {
	tick     uint32
	channel  uint8
	key      uint8
	velocity uint8
}

func exportAndRead(t *testing.T, parts []sequencer.Part) (Summary, *smf.SMF) {
	t.Helper()
	var buf bytes.Buffer
	sum, err := Write(&buf, parts, mml.DefaultConfig())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reading exported file failed: %v", err)
	}
	return sum, s
}

func noteStarts(tr smf.Track) []noteStart {
	var out []noteStart
	var abs uint32
	for _, ev := range tr {
		abs += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			out = append(out, noteStart{abs, ch, key, vel})
		}
	}
	return out
}

func TestWriteNotesAndTiming(t *testing.T) {
	sum, s := exportAndRead(t, []sequencer.Part{{Name: "R", Score: "T120 C D R E"}})
	if len(s.Tracks) != 2 {
		t.Fatalf("expected tempo track plus one part, got %d tracks", len(s.Tracks))
	}
	if tf, ok := s.TimeFormat.(smf.MetricTicks); !ok || tf.Resolution() != PPQ {
		t.Fatalf("expected %d ticks per quarter, got %v", PPQ, s.TimeFormat)
	}
	want := []noteStart{{0, 0, 60, 100}, {960, 0, 62, 100}, {2880, 0, 64, 100}}
	if got := noteStarts(s.Tracks[1]); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if sum.Notes != 3 || sum.Tracks != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Ticks != 3840 {
		t.Fatalf("expected 3840 ticks, got %d", sum.Ticks)
	}
	if sum.Duration != 2*time.Second {
		t.Fatalf("expected 2s, got %v", sum.Duration)
	}
}

func TestWriteTempoMeta(t *testing.T) {
	_, s := exportAndRead(t, []sequencer.Part{{Score: "C"}})
	var bpm float64
	found := false
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			found = true
		}
	}
	if !found || bpm != 120 {
		t.Fatalf("expected tempo meta of 120 BPM, got %v (found=%v)", bpm, found)
	}
}

func TestWriteChordVolumeAndProgram(t *testing.T) {
	_, s := exportAndRead(t, []sequencer.Part{{Score: "V50 @5 [CEG]"}})
	got := noteStarts(s.Tracks[1])
	want := []noteStart{{0, 0, 60, 63}, {0, 0, 64, 63}, {0, 0, 67, 63}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	var ch, prog uint8
	found := false
	for _, ev := range s.Tracks[1] {
		if ev.Message.GetProgramChange(&ch, &prog) {
			found = true
		}
	}
	if !found || prog != 5 {
		t.Fatalf("expected program change to 5, got %d (found=%v)", prog, found)
	}
}

func TestWritePartsUseSeparateChannels(t *testing.T) {
	parts := make([]sequencer.Part, 11)
	for i := range parts {
		parts[i] = sequencer.Part{Score: "C"}
	}
	_, s := exportAndRead(t, parts)
	if got := noteStarts(s.Tracks[9])[0].channel; got != 8 {
		t.Fatalf("expected the ninth part on channel 8, got %d", got)
	}
	if got := noteStarts(s.Tracks[10])[0].channel; got != 10 {
		t.Fatalf("expected the tenth part to skip the drum channel, got %d", got)
	}
}

func TestWriteCollectsFaults(t *testing.T) {
	sum, _ := exportAndRead(t, []sequencer.Part{{Name: "L", Score: "C X D"}})
	if len(sum.Faults) != 1 {
		t.Fatalf("expected one fault, got %v", sum.Faults)
	}
	if sum.Faults[0].Part != "L" || !errors.Is(sum.Faults[0].Err, mml.ErrIllegal) {
		t.Fatalf("unexpected fault %+v", sum.Faults[0])
	}
	if sum.Notes != 2 {
		t.Fatalf("expected the notes around the fault to be kept, got %d", sum.Notes)
	}
}

func TestWriteRejectsTooManyParts(t *testing.T) {
	parts := make([]sequencer.Part, maxChannels+1)
	var buf bytes.Buffer
	if _, err := Write(&buf, parts, mml.DefaultConfig()); !errors.Is(err, ErrTooManyParts) {
		t.Fatalf("expected ErrTooManyParts, got %v", err)
	}
}

func TestWriteRejectsBadConfig(t *testing.T) {
	parts := []sequencer.Part{{Name: "R", Score: "C D E"}}
	for _, tc := range []struct {
		name string
		edit func(*mml.Config)
	}{
		{"zero sample rate", func(c *mml.Config) { c.SampleRate = 0 }},
		{"negative sample rate", func(c *mml.Config) { c.SampleRate = -48000 }},
		{"zero tempo", func(c *mml.Config) { c.Tempo = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := mml.DefaultConfig()
			tc.edit(&cfg)
			var buf bytes.Buffer
			if _, err := Write(&buf, parts, cfg); !errors.Is(err, ErrBadConfig) {
				t.Fatalf("expected ErrBadConfig, got %v", err)
			}
			if buf.Len() != 0 {
				t.Fatalf("expected nothing written, got %d bytes", buf.Len())
			}
		})
	}
}
