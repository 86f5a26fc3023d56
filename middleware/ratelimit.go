package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"gatewatch/logger"
	"gatewatch/metrics"
	"gatewatch/ratelimit"
	"gatewatch/reqinfo"
	"gatewatch/seclog"
)

// RateLimit throttles every non-system request per client IP with the
// in-process fixed-window limiter. Throttled requests get a bare 429; no
// diagnostic detail ever reaches the client.
func RateLimit(lim *ratelimit.Limiter, secLog *seclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reqinfo.IsSystemPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := reqinfo.ClientIP(r)
			res := lim.Check(ip)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if res.Limited {
				logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
				metrics.RateLimited.WithLabelValues("ip").Inc()
				if secLog != nil {
					secLog.LogRateLimitEvent(r, ip, map[string]any{"limiter": "ip"})
				}
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AIRateLimit applies the remote-backed endpoint limiter to AI routes and
// passes everything else through untouched.
func AIRateLimit(lim *ratelimit.AILimiter, secLog *seclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/ai/") {
				next.ServeHTTP(w, r)
				return
			}

			ip := reqinfo.ClientIP(r)
			if !lim.Allow(r.Context(), ip, r.URL.Path) {
				logger.Warn("AI endpoint rate limit exceeded", "ip", ip, "path", r.URL.Path)
				metrics.RateLimited.WithLabelValues("ai").Inc()
				if secLog != nil {
					secLog.LogRateLimitEvent(r, ip, map[string]any{"limiter": "ai", "path": r.URL.Path})
				}
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
