package pipeline

import (
	"testing"
	"time"

	"traductor/recognizer"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine() (*Engine, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewEngine(DefaultDebounce, clock.now), clock
}

func partial(s string) recognizer.Result { return recognizer.Result{Kind: recognizer.Partial, Text: s} }
func final(s string) recognizer.Result   { return recognizer.Result{Kind: recognizer.Final, Text: s} }

// pollFor polls every 100ms for d and collects dispatches.
func pollFor(e *Engine, c *fakeClock, d time.Duration) []string {
	var out []string
	for elapsed := time.Duration(0); elapsed < d; elapsed += 100 * time.Millisecond {
		c.advance(100 * time.Millisecond)
		if text, ok := e.Poll(); ok {
			out = append(out, text)
		}
	}
	return out
}

func TestDebounceDispatchesLatestPartialOnce(t *testing.T) {
	e, c := newTestEngine()
	e.Observe(partial("a"))
	e.Observe(partial("ab"))

	got := pollFor(e, c, 2*time.Second)
	if len(got) != 1 || got[0] != "ab" {
		t.Fatalf("dispatched %v, want [ab]", got)
	}
	if e.State() != Idle || e.Held() != "" {
		t.Errorf("state=%s held=%q after dispatch", e.State(), e.Held())
	}
}

func TestFinalPreemptsDebounce(t *testing.T) {
	e, c := newTestEngine()
	e.Observe(partial("a"))
	c.advance(100 * time.Millisecond)

	text, ok := e.Observe(final("a final version"))
	if !ok || text != "a final version" {
		t.Fatalf("final dispatch = %q,%v", text, ok)
	}
	if got := pollFor(e, c, 2*time.Second); len(got) != 0 {
		t.Errorf("held partial dispatched after final: %v", got)
	}
}

func TestEmptyFinalIsNoop(t *testing.T) {
	for _, text := range []string{"", "   "} {
		e, c := newTestEngine()
		e.Observe(partial("pending"))
		if _, ok := e.Observe(final(text)); ok {
			t.Errorf("Final(%q) dispatched", text)
		}
		if e.State() != Idle {
			t.Errorf("Final(%q) left state %s", text, e.State())
		}
		if got := pollFor(e, c, time.Second); len(got) != 0 {
			t.Errorf("Final(%q) then poll dispatched %v", text, got)
		}
	}
}

func TestDuplicatePartialKeepsTimestamp(t *testing.T) {
	e, c := newTestEngine()
	e.Observe(partial("a"))
	for range 4 {
		c.advance(100 * time.Millisecond)
		e.Observe(partial("a"))
		if _, ok := e.Poll(); ok {
			t.Fatal("dispatched inside the window")
		}
	}
	// 400ms elapsed. 500ms is not yet strictly past the window.
	c.advance(100 * time.Millisecond)
	if _, ok := e.Poll(); ok {
		t.Fatal("dispatched at exactly the window")
	}
	c.advance(time.Millisecond)
	text, ok := e.Poll()
	if !ok || text != "a" {
		t.Fatalf("got %q,%v just past first arrival + window", text, ok)
	}
}

func TestChangedPartialRefreshesTimestamp(t *testing.T) {
	e, c := newTestEngine()
	e.Observe(partial("a"))
	c.advance(400 * time.Millisecond)
	e.Observe(partial("ab"))
	c.advance(200 * time.Millisecond)
	if _, ok := e.Poll(); ok {
		t.Fatal("dispatched before the refreshed window elapsed")
	}
	c.advance(400 * time.Millisecond)
	if text, ok := e.Poll(); !ok || text != "ab" {
		t.Fatalf("got %q,%v", text, ok)
	}
}

func TestStopDiscardsPending(t *testing.T) {
	e, c := newTestEngine()
	e.Observe(partial("unsent"))
	e.Stop()
	if e.State() != Stopped || e.Held() != "" {
		t.Errorf("state=%s held=%q", e.State(), e.Held())
	}
	if got := pollFor(e, c, 2*time.Second); len(got) != 0 {
		t.Errorf("dispatched after stop: %v", got)
	}
	if _, ok := e.Observe(final("late")); ok {
		t.Error("final accepted after stop")
	}
}

func TestLongSilenceIsHarmless(t *testing.T) {
	e, c := newTestEngine()
	if got := pollFor(e, c, time.Hour); len(got) != 0 {
		t.Errorf("idle engine dispatched %v", got)
	}
	e.Observe(partial("after silence"))
	if got := pollFor(e, c, time.Second); len(got) != 1 {
		t.Errorf("dispatched %v", got)
	}
}

func TestNoResultLeavesStateAlone(t *testing.T) {
	e, _ := newTestEngine()
	e.Observe(partial("x"))
	e.Observe(recognizer.Result{Kind: recognizer.NoResult})
	if e.State() != Pending || e.Held() != "x" {
		t.Errorf("state=%s held=%q", e.State(), e.Held())
	}
}
