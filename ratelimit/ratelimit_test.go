package ratelimit

import (
	"testing"
	"time"
)

// fixedClock lets tests drive the limiter's view of time.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(max int, window time.Duration) (*Limiter, *fixedClock) {
	l := NewLimiter(max, window)
	clock := &fixedClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, clock
}

func TestSixthCallWithinWindowIsLimited(t *testing.T) {
	l, _ := newTestLimiter(5, time.Second)
	defer l.Stop()

	for i := 1; i <= 5; i++ {
		res := l.Check("10.0.0.1")
		if res.Limited {
			t.Fatalf("call %d limited, want allowed", i)
		}
		if res.Remaining != 5-i {
			t.Errorf("call %d remaining = %d, want %d", i, res.Remaining, 5-i)
		}
	}

	res := l.Check("10.0.0.1")
	if !res.Limited {
		t.Error("sixth call within the window not limited")
	}
	if res.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", res.Remaining)
	}
}

func TestOverLimitCallsKeepIncrementing(t *testing.T) {
	l, _ := newTestLimiter(2, time.Second)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		l.Check("10.0.0.1")
	}
	l.mu.Lock()
	count := l.entries["10.0.0.1"].count
	l.mu.Unlock()
	if count != 5 {
		t.Errorf("count = %d, want 5 (no short-circuit past the limit)", count)
	}
}

func TestWindowResetAfterElapse(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)
	defer l.Stop()

	for i := 0; i < 7; i++ {
		l.Check("10.0.0.1")
	}
	clock.advance(1001 * time.Millisecond)

	res := l.Check("10.0.0.1")
	if res.Limited {
		t.Error("call after window elapsed still limited")
	}
	if res.Remaining != 4 {
		t.Errorf("remaining after reset = %d, want maxRequests-1 = 4", res.Remaining)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Second)
	defer l.Stop()

	l.Check("10.0.0.1")
	if !l.Check("10.0.0.1").Limited {
		t.Error("second call for same key not limited")
	}
	if l.Check("10.0.0.2").Limited {
		t.Error("fresh key limited by another key's traffic")
	}
}

func TestInstancesAreIsolated(t *testing.T) {
	a, _ := newTestLimiter(1, time.Second)
	defer a.Stop()
	b, _ := newTestLimiter(1, time.Second)
	defer b.Stop()

	a.Check("10.0.0.1")
	a.Check("10.0.0.1")
	if b.Check("10.0.0.1").Limited {
		t.Error("limiter state leaked across instances")
	}
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)
	defer l.Stop()

	l.Check("10.0.0.1")
	l.Check("10.0.0.2")
	clock.advance(30 * time.Minute)
	l.Check("10.0.0.2") // keeps .2 fresh
	clock.advance(31 * time.Minute)

	l.sweep()

	l.mu.Lock()
	_, gone := l.entries["10.0.0.1"]
	_, kept := l.entries["10.0.0.2"]
	l.mu.Unlock()
	if gone {
		t.Error("idle entry survived the sweep")
	}
	if !kept {
		t.Error("recently seen entry evicted")
	}
}
