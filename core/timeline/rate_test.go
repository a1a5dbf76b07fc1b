package timeline

import (
	"errors"
	"testing"

	"reelcomp/model"
)

func TestFrames_ConvertsAcrossRates(t *testing.T) {
	cases := []struct {
		in   model.RationalTime
		fps  float64
		want int
	}{
		{model.RationalTime{Rate: 24, Value: 48}, 30, 60},
		{model.RationalTime{Rate: 30, Value: 15}, 30, 15},
		{model.RationalTime{Rate: 1000, Value: 1500}, 25, 38},
		{model.RationalTime{Rate: 30, Value: 0}, 60, 0},
		{model.RationalTime{Rate: 30, Value: -30}, 30, -30},
	}
	for _, tc := range cases {
		got, err := Frames(tc.in, tc.fps)
		if err != nil {
			t.Fatalf("Frames(%v, %v) unexpected error: %v", tc.in, tc.fps, err)
		}
		if got != tc.want {
			t.Fatalf("Frames(%v, %v) = %d, want %d", tc.in, tc.fps, got, tc.want)
		}
	}
}

func TestFrames_RejectsNonPositiveRate(t *testing.T) {
	for _, rate := range []float64{0, -24} {
		if _, err := Frames(model.RationalTime{Rate: rate, Value: 10}, 30); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("rate %v: expected ErrInvalidRate, got %v", rate, err)
		}
	}
}

func TestFrames_MonotonicInValue(t *testing.T) {
	prev := -1 << 31
	for v := -100.0; v <= 500; v += 0.37 {
		got, err := Frames(model.RationalTime{Rate: 23.976, Value: v}, 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got < prev {
			t.Fatalf("not monotonic at value %v: %d < %d", v, got, prev)
		}
		again, _ := Frames(model.RationalTime{Rate: 23.976, Value: v}, 30)
		if again != got {
			t.Fatalf("not deterministic at value %v", v)
		}
		prev = got
	}
}

func TestSecondsToFrames_ClampsNegative(t *testing.T) {
	if got := SecondsToFrames(-2, 30); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := SecondsToFrames(0.5, 30); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
}
