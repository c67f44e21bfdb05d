package mml

import (
	"errors"
	"testing"
)

func TestBaseDurationGolden(t *testing.T) {
	for _, tc := range []struct {
		name string
		code int
		dots int
		want int
	}{
		{"double whole", 0, 0, 176400},
		{"whole", 1, 0, 88200},
		{"half", 2, 0, 44100},
		{"quarter", 4, 0, 22050},
		{"dotted quarter", 4, 1, 33075},
		{"double dotted quarter", 4, 2, 38587},
		{"eighth", 8, 0, 11025},
		{"sixteenth", 16, 0, 5512},
		{"thirty-second", 32, 0, 2756},
		{"sixty-fourth", 64, 0, 1378},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BaseDuration(44100, 120, tc.code, tc.dots)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d samples, got %d", tc.want, got)
			}
		})
	}
}

func TestBaseDurationRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name  string
		code  int
		dots  int
		tempo int
		want  error
	}{
		{"length 3", 3, 0, 120, ErrBadLength},
		{"length 128", 128, 0, 120, ErrBadLength},
		{"five dots", 4, 5, 120, ErrBadDots},
		{"zero tempo", 4, 0, 0, ErrBadTempo},
		{"negative tempo", 4, 0, -1, ErrBadTempo},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BaseDuration(44100, tc.tempo, tc.code, tc.dots)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLengthSuffix(t *testing.T) {
	for _, tc := range []struct {
		suffix string
		want   int
		rest   string
		err    error
	}{
		{"", 22050, "", nil},
		{" 8", 22050, " 8", nil},
		{"8", 11025, "", nil},
		{"8C", 11025, "C", nil},
		{".", 33075, "", nil},
		{"4..", 38587, "", nil},
		{"4+8.", 22050 + 16537, "", nil},
		{"2+4+8", 44100 + 22050 + 11025, "", nil},
		{"4.+4.", 33075 + 33075, "", nil},
		{"4+", 0, "", ErrTrailingPlus},
		{"4+C", 0, "C", ErrTrailingPlus},
		{"3+4", 0, "+4", ErrBadLength},
		{"4.....", 0, "", ErrBadDots},
	} {
		t.Run(tc.suffix, func(t *testing.T) {
			st := NewState(44100, 120, 4, 4)
			c := NewCursor(tc.suffix)
			got, err := st.lengthSuffix(&c)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected error %v, got %v", tc.err, err)
			}
			if tc.err == nil && got != tc.want {
				t.Fatalf("expected %d samples, got %d", tc.want, got)
			}
			if c.Rest() != tc.rest {
				t.Fatalf("expected %q left unread, got %q", tc.rest, c.Rest())
			}
		})
	}
}

func TestLengthSuffixUsesDefaultLength(t *testing.T) {
	st := NewState(44100, 120, 4, 8)
	c := NewCursor("")
	got, err := st.lengthSuffix(&c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 11025 {
		t.Fatalf("expected default eighth of 11025, got %d", got)
	}

	st.Length = 3
	if _, err := st.lengthSuffix(&c); !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected bad default length to fail, got %v", err)
	}
}

func TestApportionConservesTotal(t *testing.T) {
	for _, tc := range []struct {
		total   int
		members int
	}{
		{100, 3},
		{5512, 3},
		{22050, 7},
		{1, 1},
		{11025, 2},
	} {
		st := State{Mode: ModeTuplet, TupletNotes: tc.members, TupletSamples: tc.total}
		sum := 0
		for i := 0; i < tc.members; i++ {
			sum += st.apportion()
		}
		if sum != tc.total {
			t.Fatalf("%d over %d: expected sum %d, got %d", tc.total, tc.members, tc.total, sum)
		}
		if st.TupletDone != tc.members {
			t.Fatalf("expected %d members consumed, got %d", tc.members, st.TupletDone)
		}
	}
}

func TestApportionLastMemberTakesRemainder(t *testing.T) {
	st := State{Mode: ModeTuplet, TupletNotes: 3, TupletSamples: 100}
	got := []int{st.apportion(), st.apportion(), st.apportion()}
	if got[0] != 33 || got[1] != 33 || got[2] != 34 {
		t.Fatalf("expected [33 33 34], got %v", got)
	}
}

func TestScanTuplet(t *testing.T) {
	for _, tc := range []struct {
		body    string
		members int
		samples int
		err     error
	}{
		{"CDE}4", 3, 22050, nil},
		{" C D E } 4", 3, 22050, nil},
		{"C+D-E}", 3, 22050, nil},
		{"[CEG]R C}2", 3, 44100, nil},
		{"CD}4+8", 2, 33075, nil},
		{"O5 C > D}8", 2, 11025, nil},
		{"CDE", 0, 0, ErrUnterminated},
		{"[CE", 0, 0, ErrUnterminated},
		{"}4", 0, 0, ErrEmptyTuplet},
		{"CD}4+", 0, 0, ErrTrailingPlus},
	} {
		t.Run(tc.body, func(t *testing.T) {
			st := NewState(44100, 120, 4, 4)
			before := st
			c := NewCursor(tc.body)
			members, samples, err := st.scanTuplet(c)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected error %v, got %v", tc.err, err)
			}
			if members != tc.members || samples != tc.samples {
				t.Fatalf("expected %d members / %d samples, got %d / %d", tc.members, tc.samples, members, samples)
			}
			if st != before {
				t.Fatalf("scan must not modify state: %+v -> %+v", before, st)
			}
		})
	}
}
