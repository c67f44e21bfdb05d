package mmlplayer

import (
	"testing"

	intseq "github.com/nxaudio/mmlplayer/internal/sequencer"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestNewPlayerRejectsBadSetup(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatalf("expected an error for a zero sample rate")
	}
	if _, err := NewPlayer(48000, WithSoundFont(nil)); err == nil {
		t.Fatalf("expected an error without a soundfont")
	}
	if _, err := NewPlayer(48000, WithEngine(nil)); err == nil {
		t.Fatalf("expected an error without an engine")
	}
}

func TestPlayerFollowsSampleRate(t *testing.T) {
	pl, err := NewPlayer(22050)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if pl.mml.SampleRate != 22050 {
		t.Fatalf("expected parser sample rate 22050, got %d", pl.mml.SampleRate)
	}
}

func TestPlayerPlacesPartsByName(t *testing.T) {
	pl, err := NewPlayer(48000, WithPartPans(map[string]int{"R": 30, "L": -30}))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	got := pl.placeParts([]intseq.Part{
		{Name: "R", Score: "C"},
		{Name: "L", Score: "C"},
		{Name: "L", Score: "C", Pan: 5},
		{Name: "P3", Score: "C"},
	})
	want := []int{30, -30, 5, 0}
	for i, p := range got {
		if p.Pan != want[i] {
			t.Fatalf("part %d: expected pan %d, got %d", i, want[i], p.Pan)
		}
	}
}

func TestPlayScoreRejectsEmptyScore(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.PlayScore("  // nothing here\n"); err == nil {
		t.Fatalf("expected an error for a score without parts")
	}
}
