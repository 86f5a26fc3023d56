// Package ratelimit provides two deliberately separate limiters: an
// in-process fixed-window counter for generic IP throttling, and a
// remote-backed limiter for AI endpoints whose counters live in the shared
// store engine.
package ratelimit

import (
	"sync"
	"time"
)

// Result of one limiter check.
type Result struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
}

type windowEntry struct {
	count        int
	firstRequest time.Time
	lastSeen     time.Time
}

// Limiter is a fixed-window counter keyed by client IP (or any composite
// key). State is owned by the instance, not the package, so tests and a
// future multi-instance deployment can swap it out without changing call
// sites.
type Limiter struct {
	mu          sync.Mutex
	entries     map[string]*windowEntry
	maxRequests int
	window      time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

const (
	DefaultMaxRequests = 100
	DefaultWindow      = time.Minute

	sweepInterval = time.Hour
	idleEviction  = time.Hour
)

// NewLimiter starts the hourly sweep that evicts idle entries; call Stop
// when the limiter is discarded.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		entries:     make(map[string]*windowEntry),
		maxRequests: maxRequests,
		window:      window,
		stop:        make(chan struct{}),
		now:         time.Now,
	}
	go l.sweepLoop()
	return l
}

// Check counts one request against key's current window. Requests over
// the limit still increment the counter: a client hammering past the
// limit keeps pushing its count up rather than being short-circuited. A
// request arriving after the window elapsed starts a fresh window.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.firstRequest) >= l.window {
		e = &windowEntry{count: 0, firstRequest: now}
		l.entries[key] = e
	}
	e.count++
	e.lastSeen = now

	remaining := l.maxRequests - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limited:   e.count > l.maxRequests,
		Remaining: remaining,
		ResetAt:   e.firstRequest.Add(l.window),
	}
}

// Stop terminates the sweep goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep evicts entries untouched for over an hour, bounding memory
// independently of request traffic.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idleEviction)
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
