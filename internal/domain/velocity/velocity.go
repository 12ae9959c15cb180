// Package velocity maintains the sliding scan-rate window per barcode.
//
// Velocity is deliberately separate from the score accumulator: a product
// can have a high lifetime score but low current velocity, or the other
// way around, and "trending now" needs the second signal.
package velocity

import "time"

// DefaultWindow is the trailing retention window for scan timestamps.
const DefaultWindow = 24 * time.Hour

// Window computes scan velocity over a trailing retention period.
// Pruning is lazy: it happens when a scan is observed or when a reader
// asks for a live count, never via a background sweep.
type Window struct {
	span time.Duration
}

// Option applies a configuration option to the Window.
type Option func(*Window)

// WithSpan overrides the trailing window duration.
func WithSpan(span time.Duration) Option {
	return func(w *Window) {
		if span > 0 {
			w.span = span
		}
	}
}

// NewWindow creates a velocity window with the default 24h span.
func NewWindow(opts ...Option) *Window {
	w := &Window{span: DefaultWindow}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Span returns the trailing window duration.
func (w *Window) Span() time.Duration {
	return w.span
}

// Observe appends ts to the timestamp sequence, drops entries older than
// the window, and returns the pruned sequence with its count. The input
// slice may be mutated and must not be reused by the caller.
func (w *Window) Observe(times []time.Time, ts time.Time) ([]time.Time, int) {
	times = append(times, ts)
	times = prune(times, ts.Add(-w.span))
	return times, len(times)
}

// Count returns the number of timestamps still inside the window at the
// given instant, without mutating stored state. Read-side consumers use
// this instead of trusting the write-time cached counter.
func (w *Window) Count(times []time.Time, now time.Time) int {
	cutoff := now.Add(-w.span)
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// prune drops timestamps strictly older than cutoff; a scan exactly at
// the window edge still counts. Timestamps arrive in order, so a single
// scan for the first survivor suffices.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	keep := 0
	for keep < len(times) && times[keep].Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return times
	}
	return append(times[:0], times[keep:]...)
}
