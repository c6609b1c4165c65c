package backoff

import (
	"testing"
	"time"
)

func TestExponential_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
		{6, 10 * time.Second}, // capped at max
		{7, 10 * time.Second}, // capped at max
	}

	for _, tt := range tests {
		got := Exponential(tt.attempt, nil)
		if got != tt.want {
			t.Errorf("Exponential(%d, nil) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CustomConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Initial:    50 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 3,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 50 * time.Millisecond},
		{2, 150 * time.Millisecond},
		{3, 450 * time.Millisecond},
		{4, 1 * time.Second}, // capped at max
	}

	for _, tt := range tests {
		got := Exponential(tt.attempt, cfg)
		if got != tt.want {
			t.Errorf("Exponential(%d, cfg) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_ZeroOrNegativeAttempt(t *testing.T) {
	t.Parallel()

	if got := Exponential(0, nil); got != 500*time.Millisecond {
		t.Errorf("Exponential(0, nil) = %v, want 500ms", got)
	}
	if got := Exponential(-1, nil); got != 500*time.Millisecond {
		t.Errorf("Exponential(-1, nil) = %v, want 500ms", got)
	}
}

func TestExponential_PartialConfig(t *testing.T) {
	t.Parallel()

	// Multiplier below 1 falls back to the default
	cfg := &Config{Initial: 100 * time.Millisecond, Multiplier: 0.5}
	if got := Exponential(2, cfg); got != 200*time.Millisecond {
		t.Errorf("Exponential(2, {Multiplier: 0.5}) = %v, want 200ms", got)
	}

	// Max below the default initial caps every attempt
	cfg = &Config{Max: 300 * time.Millisecond}
	if got := Exponential(1, cfg); got != 300*time.Millisecond {
		t.Errorf("Exponential(1, {Max: 300ms}) = %v, want 300ms", got)
	}
	if got := Exponential(4, cfg); got != 300*time.Millisecond {
		t.Errorf("Exponential(4, {Max: 300ms}) = %v, want 300ms", got)
	}
}
