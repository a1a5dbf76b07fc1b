package timeline

import "testing"

func TestEnvelope_RampsAndPlateau(t *testing.T) {
	env := NewEnvelope(90, 15, 15)

	if v := env.At(0); v != 0 {
		t.Fatalf("At(0) = %v, want 0", v)
	}
	for f := 15; f <= 75; f++ {
		if v := env.At(f); v != 1 {
			t.Fatalf("At(%d) = %v, want 1", f, v)
		}
	}
	if v := env.At(90); v != 0 {
		t.Fatalf("At(90) = %v, want 0", v)
	}
	for f := 1; f <= 15; f++ {
		if env.At(f) <= env.At(f-1) {
			t.Fatalf("fade-in not strictly increasing at %d", f)
		}
	}
	for f := 76; f <= 90; f++ {
		if env.At(f) >= env.At(f-1) {
			t.Fatalf("fade-out not strictly decreasing at %d", f)
		}
	}
}

func TestEnvelope_ZeroRampsAreFlat(t *testing.T) {
	env := NewEnvelope(60, 0, 0)
	for _, f := range []int{0, 30, 59, 60} {
		if v := env.At(f); v != 1 {
			t.Fatalf("At(%d) = %v, want 1", f, v)
		}
	}

	inOnly := NewEnvelope(60, 10, 0)
	if inOnly.At(0) != 0 || inOnly.At(60) != 1 {
		t.Fatalf("fade-in only envelope: At(0)=%v At(60)=%v", inOnly.At(0), inOnly.At(60))
	}
}

func TestEnvelope_ClampsOverlongRamps(t *testing.T) {
	env := NewEnvelope(30, 40, 20)
	if env.Enter+env.Exit != 30 {
		t.Fatalf("expected ramps to fill duration, got enter=%d exit=%d", env.Enter, env.Exit)
	}
	if env.Enter != 20 || env.Exit != 10 {
		t.Fatalf("expected proportional clamp 20/10, got %d/%d", env.Enter, env.Exit)
	}
	for f := -5; f <= 35; f++ {
		v := env.At(f)
		if v < 0 || v > 1 {
			t.Fatalf("At(%d) = %v out of [0,1]", f, v)
		}
	}
}

func TestEnvelope_DegenerateDuration(t *testing.T) {
	env := NewEnvelope(0, 5, 5)
	if !env.Flat() {
		t.Fatalf("expected flat envelope for zero duration, got %+v", env)
	}
}
