// Package testutil provides polling helpers for tests that drive a cluster.
package testutil

import (
	"context"
	"flinkrest/pkg/flink"
	"testing"
	"time"
)

// WaitOptions configures WaitFor behavior.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// WaitOption is a functional option for WaitFor.
type WaitOption func(*WaitOptions)

// WithTimeout sets the maximum wait time (default: 30s).
func WithTimeout(d time.Duration) WaitOption {
	return func(o *WaitOptions) {
		o.Timeout = d
	}
}

// WithInterval sets the polling interval (default: 100ms).
func WithInterval(d time.Duration) WaitOption {
	return func(o *WaitOptions) {
		o.Interval = d
	}
}

func defaultOptions() WaitOptions {
	return WaitOptions{
		Timeout:  30 * time.Second,
		Interval: 100 * time.Millisecond,
	}
}

// WaitFor polls until condition returns true or timeout is reached.
// Returns true if condition was met, false on timeout.
func WaitFor(tb testing.TB, condition func() bool, opts ...WaitOption) bool {
	tb.Helper()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	deadline := time.Now().Add(o.Timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(o.Interval)
	}
	return false
}

// MustWaitFor polls until condition returns true or fails the test on timeout.
func MustWaitFor(tb testing.TB, condition func() bool, opts ...WaitOption) {
	tb.Helper()
	if !WaitFor(tb, condition, opts...) {
		tb.Fatal("timed out waiting for condition")
	}
}

// MustWaitForJobState polls the job until it reports state and fails the
// test on timeout. Read errors are retried until the deadline.
func MustWaitForJobState(tb testing.TB, c *flink.Client, jobID, state string, opts ...WaitOption) {
	tb.Helper()

	var last string
	ok := WaitFor(tb, func() bool {
		job, err := c.Jobs.Get(context.Background(), jobID)
		if err != nil {
			last = err.Error()
			return false
		}
		last, _ = job["state"].(string)
		return last == state
	}, opts...)
	if !ok {
		tb.Fatalf("timed out waiting for job %s to reach %s (last: %s)", jobID, state, last)
	}
}
