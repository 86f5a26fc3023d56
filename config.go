package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string `json:"environment"`
	ListenAddr   string `json:"listen_addr"`
	UpstreamAddr string `json:"upstream_addr"`
	MetricsAddr  string `json:"metrics_addr"`
	OpsAddr      string `json:"ops_addr"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`

	GeoIPDBPath string `json:"geoip_db_path"`

	RateLimitMax      int `json:"rate_limit_max"`
	RateLimitWindowMs int `json:"rate_limit_window_ms"`
	AIChatLimit       int `json:"ai_chat_limit"`
	AIRecsLimit       int `json:"ai_recs_limit"`

	CanonicalDomain string   `json:"canonical_domain"`
	AllowedHosts    []string `json:"allowed_hosts"`
	InfraHosts      []string `json:"infra_hosts"`
}

// Production reports whether the process should persist security events.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// LoadConfig reads the optional JSON config file, then a local .env, then
// environment variables, with later sources overriding earlier ones.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if file, err := os.Open(path); err == nil {
		decoder := json.NewDecoder(file)
		err = decoder.Decode(&cfg)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is developer convenience; absence is not an error.
	_ = godotenv.Load()

	if val := os.Getenv("GATEWATCH_ENV"); val != "" {
		cfg.Environment = val
	}
	if val := os.Getenv("GATEWATCH_LISTEN_ADDR"); val != "" {
		cfg.ListenAddr = val
	}
	if val := os.Getenv("GATEWATCH_UPSTREAM"); val != "" {
		cfg.UpstreamAddr = val
	}
	if val := os.Getenv("GATEWATCH_REDIS_ADDR"); val != "" {
		cfg.RedisAddr = val
	}
	if val := os.Getenv("GATEWATCH_REDIS_PASSWORD"); val != "" {
		cfg.RedisPassword = val
	}
	if val := os.Getenv("GATEWATCH_GEOIP_DB"); val != "" {
		cfg.GeoIPDBPath = val
	}
	if val := os.Getenv("GATEWATCH_RATE_LIMIT_MAX"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.RateLimitMax)
	}
	if val := os.Getenv("GATEWATCH_RATE_LIMIT_WINDOW_MS"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.RateLimitWindowMs)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.UpstreamAddr == "" {
		cfg.UpstreamAddr = "http://localhost:3000"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if cfg.OpsAddr == "" {
		cfg.OpsAddr = ":9091"
	}
	if cfg.RateLimitMax == 0 {
		cfg.RateLimitMax = 100
	}
	if cfg.RateLimitWindowMs == 0 {
		cfg.RateLimitWindowMs = 60000
	}

	return &cfg, nil
}
