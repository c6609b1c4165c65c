// Package backoff computes growing delays between repeated status polls.
package backoff

import (
	"math"
	"time"
)

// Config for exponential backoff. Zero values use defaults.
type Config struct {
	Initial    time.Duration // default: 500ms
	Max        time.Duration // default: 10s
	Multiplier float64       // default: 2
}

func (c *Config) values() (initial, maxDelay time.Duration, multiplier float64) {
	initial, maxDelay, multiplier = 500*time.Millisecond, 10*time.Second, 2.0
	if c == nil {
		return
	}
	if c.Initial > 0 {
		initial = c.Initial
	}
	if c.Max > 0 {
		maxDelay = c.Max
	}
	if c.Multiplier >= 1 {
		multiplier = c.Multiplier
	}
	return
}

// Exponential calculates the delay before a given attempt.
// Attempt 1 returns initial, attempt 2 returns initial*multiplier, etc.
func Exponential(attempt int, cfg *Config) time.Duration {
	initial, maxDelay, multiplier := cfg.values()
	if initial > maxDelay {
		return maxDelay
	}
	if attempt < 1 {
		return initial
	}
	delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	return time.Duration(delay)
}
