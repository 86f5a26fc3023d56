package ratelimit

import (
	"context"
	"strings"
	"time"

	"gatewatch/logger"
	"gatewatch/store"
)

// AI endpoint ceilings within one window. Chat is interactive and gets
// more headroom than batch recommendations.
const (
	DefaultChatLimit            = 20
	DefaultRecommendationsLimit = 5
	aiWindow                    = 60 * time.Second
)

// AILimiter throttles AI endpoints per client IP against the shared
// counter engine. The count read and the increment are two separate
// remote calls; concurrent bursts from one IP can under-count. That race
// is accepted for approximate throttling.
type AILimiter struct {
	counters             store.CounterStore
	chatLimit            int
	recommendationsLimit int
}

func NewAILimiter(counters store.CounterStore, chatLimit, recommendationsLimit int) *AILimiter {
	if chatLimit <= 0 {
		chatLimit = DefaultChatLimit
	}
	if recommendationsLimit <= 0 {
		recommendationsLimit = DefaultRecommendationsLimit
	}
	return &AILimiter{
		counters:             counters,
		chatLimit:            chatLimit,
		recommendationsLimit: recommendationsLimit,
	}
}

// Allow reports whether ip may call the AI endpoint at path right now.
// It never returns an error: a failed count read is treated as zero prior
// requests (fail open), and a failed increment is logged and forgotten.
func (l *AILimiter) Allow(ctx context.Context, ip, path string) bool {
	limit := l.limitFor(path)
	key := ip + ":" + endpointClass(path)

	count, err := l.counters.GetCount(ctx, key)
	if err != nil {
		logger.Warn("AI rate limit count read failed, failing open", "ip", ip, "err", err)
		count = 0
	}
	if count >= int64(limit) {
		return false
	}

	if err := l.counters.Increment(ctx, key, aiWindow); err != nil {
		logger.Warn("AI rate limit increment failed", "ip", ip, "err", err)
	}
	return true
}

func (l *AILimiter) limitFor(path string) int {
	if endpointClass(path) == "recommendations" {
		return l.recommendationsLimit
	}
	return l.chatLimit
}

func endpointClass(path string) string {
	if strings.HasPrefix(path, "/api/ai/recommendations") {
		return "recommendations"
	}
	return "chat"
}
