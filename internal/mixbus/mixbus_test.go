package mixbus

import "testing"

func TestHallProducesTail(t *testing.T) {
	h := NewHall(44100, 0.5, 0.7, 0.5)
	h.Process(1, 1)
	var peak float32
	for i := 0; i < 10000; i++ {
		l, _ := h.Process(0, 0)
		if abs32(l) > peak {
			peak = abs32(l)
		}
	}
	if peak < 0.001 {
		t.Fatalf("expected a reverb tail")
	}
	h.Reset()
	for i := 0; i < 10000; i++ {
		if l, r := h.Process(0, 0); l != 0 || r != 0 {
			t.Fatalf("expected silence after reset, got (%f, %f)", l, r)
		}
	}
}

func TestHallDryPassesThrough(t *testing.T) {
	h := NewHall(44100, 0.5, 0.7, 0)
	for i := 0; i < 100; i++ {
		if l, r := h.Process(0.3, -0.2); l != 0.3 || r != -0.2 {
			t.Fatalf("expected dry signal, got (%f, %f)", l, r)
		}
	}
}

func TestLimiterHoldsCeiling(t *testing.T) {
	m := NewLimiter(44100, -6, 50)
	ceiling := float32(0.5012)
	for i := 0; i < 1000; i++ {
		l, r := m.Process(1.5, -1.5)
		if l > ceiling || r < -ceiling {
			t.Fatalf("frame %d: expected peaks under %f, got (%f, %f)", i, ceiling, l, r)
		}
	}
}

func TestLimiterLeavesQuietSignal(t *testing.T) {
	m := NewLimiter(44100, -1, 50)
	if l, r := m.Process(0.25, -0.25); l != 0.25 || r != -0.25 {
		t.Fatalf("expected quiet signal unchanged, got (%f, %f)", l, r)
	}
}

func TestBusRunsStagesInOrder(t *testing.T) {
	buf := []float32{2, -2, 0.1, 0.1}
	Default(44100, 0).Run(buf)
	for i, s := range buf {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
	}
	if buf[0] <= 0 || buf[1] >= 0 {
		t.Fatalf("expected polarity preserved, got %v", buf)
	}
}
