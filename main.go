package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatewatch/geo"
	"gatewatch/logger"
	"gatewatch/manager"
	"gatewatch/middleware"
	"gatewatch/proxy"
	"gatewatch/ratelimit"
	"gatewatch/seclog"
	"gatewatch/store"
	"gatewatch/threat"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting gatewatch",
		"listen", cfg.ListenAddr, "upstream", cfg.UpstreamAddr, "env", cfg.Environment)

	// Storage: Redis when configured, in-memory fallback for development.
	var logs store.LogStore = store.NewLocalLogStore()
	var counters store.CounterStore = store.NewLocalCounterStore()
	if cfg.RedisAddr != "" {
		client := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		logs = store.NewRedisLogStore(client)
		counters = store.NewRedisCounterStore(client)
		logger.Info("Distributed state initialized (Redis)", "addr", cfg.RedisAddr)
	} else {
		logger.Info("In-memory state initialized (local fallback)")
	}

	secLog := seclog.New(cfg.Production(), logs)
	defer secLog.Close()

	geoResolver := geo.NewResolver(cfg.GeoIPDBPath)
	defer geoResolver.Close()

	ipLimiter := ratelimit.NewLimiter(cfg.RateLimitMax, time.Duration(cfg.RateLimitWindowMs)*time.Millisecond)
	defer ipLimiter.Stop()
	aiLimiter := ratelimit.NewAILimiter(counters, cfg.AIChatLimit, cfg.AIRecsLimit)

	inspector := &middleware.Inspector{
		SecLog: secLog,
		Geo:    geoResolver,
		Policy: buildPolicy(cfg),
	}

	p, err := proxy.NewReverseProxy(cfg.UpstreamAddr)
	if err != nil {
		logger.Error("Failed to initialize proxy", "err", err)
		os.Exit(1)
	}

	// Pipeline (outermost to innermost): security headers → IP rate limit
	// → AI endpoint limit → inspection → locale redirect → upstream.
	stack := middleware.SecurityHeaders(
		middleware.RateLimit(ipLimiter, secLog)(
			middleware.AIRateLimit(aiLimiter, secLog)(
				inspector.Middleware(
					middleware.LocaleRedirect(p),
				),
			),
		),
	)

	// Metrics endpoint on the side port.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics engine active", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("Metrics server stopped", "err", err)
		}
	}()

	// Internal ops API (log queries, stats).
	go func() {
		mux := http.NewServeMux()
		manager.NewOpsAPI(logs).Register(mux)
		logger.Info("Ops API active", "addr", cfg.OpsAddr)
		if err := http.ListenAndServe(cfg.OpsAddr, mux); err != nil {
			logger.Error("Ops server stopped", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           stack,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Proxy engine active", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "err", err)
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	logger.Info("gatewatch stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Shutdown incomplete", "err", err)
	}

	logger.Info("Stopped gracefully")
	logger.Sync()
}

// buildPolicy layers config overrides onto the default forwarded-host
// trust policy.
func buildPolicy(cfg *Config) threat.Policy {
	pol := threat.DefaultPolicy()
	if cfg.CanonicalDomain != "" {
		pol.CanonicalDomain = cfg.CanonicalDomain
	}
	if len(cfg.AllowedHosts) > 0 {
		pol.AllowedHosts = cfg.AllowedHosts
	}
	if len(cfg.InfraHosts) > 0 {
		pol.InfraHosts = cfg.InfraHosts
	}
	return pol
}
