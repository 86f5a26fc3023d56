package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatewatch/store"
)

// brokenCounters simulates an unavailable counter engine.
type brokenCounters struct {
	readErr  error
	writeErr error
	writes   int
}

func (b *brokenCounters) GetCount(context.Context, string) (int64, error) {
	if b.readErr != nil {
		return 0, b.readErr
	}
	return 0, nil
}

func (b *brokenCounters) Increment(context.Context, string, time.Duration) error {
	b.writes++
	return b.writeErr
}

func TestAILimiterEnforcesChatCeiling(t *testing.T) {
	lim := NewAILimiter(store.NewLocalCounterStore(), 3, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !lim.Allow(ctx, "10.0.0.1", "/api/ai/chat") {
			t.Fatalf("chat call %d denied under the ceiling", i+1)
		}
	}
	if lim.Allow(ctx, "10.0.0.1", "/api/ai/chat") {
		t.Error("chat call over the ceiling allowed")
	}
}

func TestAILimiterSeparatesEndpoints(t *testing.T) {
	lim := NewAILimiter(store.NewLocalCounterStore(), 3, 2)
	ctx := context.Background()

	// Exhaust recommendations; chat must stay unaffected.
	for i := 0; i < 2; i++ {
		if !lim.Allow(ctx, "10.0.0.1", "/api/ai/recommendations") {
			t.Fatalf("recommendations call %d denied under the ceiling", i+1)
		}
	}
	if lim.Allow(ctx, "10.0.0.1", "/api/ai/recommendations") {
		t.Error("recommendations over the ceiling allowed")
	}
	if !lim.Allow(ctx, "10.0.0.1", "/api/ai/chat") {
		t.Error("chat denied after recommendations exhausted")
	}
}

func TestAILimiterSeparatesIPs(t *testing.T) {
	lim := NewAILimiter(store.NewLocalCounterStore(), 1, 1)
	ctx := context.Background()

	lim.Allow(ctx, "10.0.0.1", "/api/ai/chat")
	if lim.Allow(ctx, "10.0.0.1", "/api/ai/chat") {
		t.Error("same IP allowed past the ceiling")
	}
	if !lim.Allow(ctx, "10.0.0.2", "/api/ai/chat") {
		t.Error("fresh IP denied by another IP's usage")
	}
}

func TestAILimiterFailsOpenOnReadError(t *testing.T) {
	counters := &brokenCounters{readErr: errors.New("store down")}
	lim := NewAILimiter(counters, 1, 1)

	for i := 0; i < 5; i++ {
		if !lim.Allow(context.Background(), "10.0.0.1", "/api/ai/chat") {
			t.Fatal("request denied while the count read fails; must fail open")
		}
	}
}

func TestAILimiterSwallowsIncrementErrors(t *testing.T) {
	counters := &brokenCounters{writeErr: errors.New("store down")}
	lim := NewAILimiter(counters, 2, 1)

	if !lim.Allow(context.Background(), "10.0.0.1", "/api/ai/chat") {
		t.Error("request denied by a failed increment")
	}
	if counters.writes != 1 {
		t.Errorf("writes = %d, want 1", counters.writes)
	}
}
