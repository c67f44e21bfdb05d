package main

import (
	"os"
	"path/filepath"
	"testing"

	intmml "github.com/nxaudio/mmlplayer/internal/mml"
	"github.com/nxaudio/mmlplayer/internal/wavout"
)

func TestWavPath(t *testing.T) {
	for in, want := range map[string]string{
		"song.mml":        "song.wav",
		"dir/score.txt":   "dir/score.wav",
		"noext":           "noext.wav",
		"a.b/tune.mml.gz": "a.b/tune.mml.wav",
	} {
		if got := wavPath(in); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func TestBuildEngineRejectsBadFlags(t *testing.T) {
	if _, err := buildEngine("fm", "", 3, 0); err == nil {
		t.Fatalf("expected an error for mode 3")
	}
	if _, err := buildEngine("soundfont", "", 0, 0); err == nil {
		t.Fatalf("expected an error without a soundfont path")
	}
	if _, err := buildEngine("organ", "", 0, 0); err == nil {
		t.Fatalf("expected an error for an unknown engine")
	}
	if _, err := buildEngine(" FM ", "", 2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveParts(t *testing.T) {
	parts, err := resolveParts("", "R: C D; L: E", "auto")
	if err != nil || len(parts) != 2 || parts[1].Name != "L" {
		t.Fatalf("unexpected parts %v (%v)", parts, err)
	}
	if _, err := resolveParts("", "// only a comment", "auto"); err == nil {
		t.Fatalf("expected an error for an empty score")
	}
	parts, err = resolveParts("", "", "auto")
	if err != nil || len(parts) != 2 {
		t.Fatalf("expected the default score, got %v (%v)", parts, err)
	}
}

func TestRenderBatchWritesWavBesideScore(t *testing.T) {
	dir := t.TempDir()
	score := filepath.Join(dir, "tune.mml")
	if err := os.WriteFile(score, []byte("R: C8 D8; L: O3 C4"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := intmml.DefaultConfig()
	cfg.SampleRate = 8000
	factory, err := buildEngine("fm", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := renderBatch([]string{score}, "auto", cfg, factory, 0, 0.2, 2); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "tune.wav"))
	if err != nil {
		t.Fatalf("expected a wav file: %v", err)
	}
	defer f.Close()
	samples, sr, ch, err := wavout.Read(f)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if sr != 8000 || ch != 2 || len(samples) < 4000*2 {
		t.Fatalf("unexpected wav: %d Hz, %d ch, %d samples", sr, ch, len(samples))
	}
}

func TestRenderBatchReportsFailures(t *testing.T) {
	factory, _ := buildEngine("fm", "", 0, 0)
	err := renderBatch([]string{filepath.Join(t.TempDir(), "missing.mml")}, "auto", intmml.DefaultConfig(), factory, 0, 0, 1)
	if err == nil {
		t.Fatalf("expected an error for a missing score")
	}
}
