package velocity_test

import (
	"testing"
	"time"

	"github.com/openlabel/demand/internal/domain/velocity"
)

func TestObserveWindow(t *testing.T) {
	w := velocity.NewWindow()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var times []time.Time
	var n int

	times, n = w.Observe(times, base)
	if n != 1 {
		t.Fatalf("expected 1 scan, got %d", n)
	}

	times, n = w.Observe(times, base.Add(time.Hour))
	if n != 2 {
		t.Fatalf("expected 2 scans, got %d", n)
	}

	// 25h after the first scan: the first falls outside the window,
	// the second and third remain.
	times, n = w.Observe(times, base.Add(25*time.Hour))
	if n != 2 {
		t.Fatalf("expected 2 scans after pruning, got %d", n)
	}
	if times[0] != base.Add(time.Hour) {
		t.Errorf("expected oldest surviving scan at base+1h, got %v", times[0])
	}
}

func TestCountIsLive(t *testing.T) {
	w := velocity.NewWindow()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	times, _ := w.Observe(nil, base)
	times, n := w.Observe(times, base.Add(time.Hour))
	if n != 2 {
		t.Fatalf("expected 2 scans, got %d", n)
	}

	// A stored count goes stale without new scans; Count recomputes.
	if got := w.Count(times, base.Add(2*time.Hour)); got != 2 {
		t.Errorf("expected live count 2, got %d", got)
	}
	if got := w.Count(times, base.Add(30*time.Hour)); got != 0 {
		t.Errorf("expected live count 0 after window passed, got %d", got)
	}
}

func TestCustomSpan(t *testing.T) {
	w := velocity.NewWindow(velocity.WithSpan(time.Hour))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	times, _ := w.Observe(nil, base)
	_, n := w.Observe(times, base.Add(61*time.Minute))
	if n != 1 {
		t.Fatalf("expected 1 scan inside the 1h window, got %d", n)
	}
	if w.Span() != time.Hour {
		t.Errorf("expected 1h span, got %v", w.Span())
	}
}

func TestNonPositiveSpanIgnored(t *testing.T) {
	w := velocity.NewWindow(velocity.WithSpan(-time.Minute))
	if w.Span() != velocity.DefaultWindow {
		t.Errorf("expected default window, got %v", w.Span())
	}
}
