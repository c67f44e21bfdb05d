package fmsynth

import (
	"math"
	"testing"
)

func TestVibratoOffIsUnity(t *testing.T) {
	v := newVibrato(0, 0.5, 48000)
	for i := 0; i < 100; i++ {
		if got := v.next(); got != 1 {
			t.Fatalf("expected ratio 1, got %f", got)
		}
	}
}

func TestVibratoSwingsBothWays(t *testing.T) {
	v := newVibrato(10, 1, 1000)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 100; i++ {
		r := v.next()
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	want := math.Exp2(1.0 / 12)
	if math.Abs(hi-want) > 1e-9 || math.Abs(lo-1/want) > 1e-9 {
		t.Fatalf("expected range [%f, %f], got [%f, %f]", 1/want, want, lo, hi)
	}
}

func TestEngineVibratoChangesOutput(t *testing.T) {
	plain := New(48000, DefaultParams())
	params := DefaultParams()
	params.VibratoRate = 6
	params.VibratoDepth = 0.5
	wobbly := New(48000, params)
	plain.NoteOn(57, 100, 0, 0)
	wobbly.NoteOn(57, 100, 0, 0)
	differs := false
	for i := 0; i < 4800; i++ {
		l1, _ := plain.RenderFrame()
		l2, _ := wobbly.RenderFrame()
		if l1 != l2 {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("expected vibrato to change the waveform")
	}
}
