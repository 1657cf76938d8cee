package resolver

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Next(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		JitterPct:  0, // No jitter for deterministic test
	}
	b := NewBackoff(1, cfg)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second, // capped
		1 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(want))
	}
}

func TestBackoff_Reset(t *testing.T) {
	cfg := BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2.0}
	b := NewBackoff(1, cfg)
	b.Next()
	b.Next()
	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("Attempts() after Reset = %d, want 0", b.Attempts())
	}
	if got := b.Next(); got != 100*time.Millisecond {
		t.Errorf("Next() after Reset = %v, want 100ms", got)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	cfg := DefaultBackoffConfig()
	for seed := int64(0); seed < 50; seed++ {
		b := NewBackoff(seed, cfg)
		got := b.Calculate()
		lo := time.Duration(float64(cfg.Initial) * 0.8)
		hi := time.Duration(float64(cfg.Initial) * 1.2)
		if got < lo || got > hi {
			t.Errorf("seed %d: Calculate() = %v, want in [%v, %v]", seed, got, lo, hi)
		}
	}
}

func TestBackoff_SameSeedSameSequence(t *testing.T) {
	a := NewBackoff(7, DefaultBackoffConfig())
	b := NewBackoff(7, DefaultBackoffConfig())
	for i := 0; i < 5; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("attempt %d: %v != %v", i, x, y)
		}
	}
}

func TestSleep(t *testing.T) {
	if !sleep(context.Background(), time.Millisecond) {
		t.Error("sleep should complete")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Error("sleep should stop on cancelled context")
	}
	if sleep(ctx, 0) {
		t.Error("zero sleep on cancelled context should report false")
	}
}
