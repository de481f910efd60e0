package config

import (
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected listen addr derived from port, got %q", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "chatbubbles.db" || cfg.CacheBackend != CacheBackendMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LabelMinLength != 2 || cfg.LabelMaxLength != 50 || cfg.ReorderLimit != 50 {
		t.Fatalf("unexpected admin limits: %+v", cfg)
	}
	if cfg.RateLimitRequests != 20 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("unexpected rate limit: %d/%s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.CacheTTL != time.Hour {
		t.Fatalf("unexpected cache ttl %s", cfg.CacheTTL)
	}
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":          "9090",
		"CACHE_BACKEND": " Redis ",
		"REDIS_DB":      "3",
		"LISTEN_ADDR":   "127.0.0.1:7000",
	})
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7000" {
		t.Fatalf("expected explicit listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.CacheBackend != CacheBackendRedis || cfg.RedisDB != 3 {
		t.Fatalf("unexpected redis config: %+v", cfg)
	}
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"cache backend": {"CACHE_BACKEND": "memcached"},
		"label range":   {"LABEL_MIN_LENGTH": "10", "LABEL_MAX_LENGTH": "5"},
		"reorder limit": {"REORDER_LIMIT": "0"},
		"bad int":       {"REDIS_DB": "one"},
	}
	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(environ); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
