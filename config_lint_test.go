package goAuthClient

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigHasNoHighWarnings(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("default config should not fail AsError(LintHigh): %v", err)
	}
	if !containsCode(cfg.Lint().Codes(), "storage_not_persistent") {
		t.Error("expected storage_not_persistent info for memory storage")
	}
}

func TestLint_InsecureBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "http://auth.example.com"
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "insecure_base_url") {
		t.Fatal("expected insecure_base_url warning")
	}
	if len(ws.BySeverity(LintHigh)) == 0 {
		t.Fatal("insecure_base_url should be HIGH")
	}

	cfg.Server.BaseURL = "http://127.0.0.1:9000"
	if containsCode(cfg.Lint().Codes(), "insecure_base_url") {
		t.Error("loopback http should not warn")
	}
}

func TestLint_RefreshIntervalExceedsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh.Interval = 15 * time.Minute
	if !containsCode(cfg.Lint().Codes(), "refresh_interval_exceeds_threshold") {
		t.Fatal("expected refresh_interval_exceeds_threshold warning")
	}
}

func TestLint_RefreshDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh.Enabled = false
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "refresh_disabled") {
		t.Fatal("expected refresh_disabled")
	}
	if containsCode(codes, "refresh_interval_exceeds_threshold") {
		t.Fatal("disabled refresh should not check interval")
	}
}

func TestLint_ShortRedisTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	cfg.Storage.RedisURL = "redis://localhost:6379"
	cfg.Storage.RedisTTL = 5 * time.Minute
	if !containsCode(cfg.Lint().Codes(), "redis_ttl_short") {
		t.Fatal("expected redis_ttl_short")
	}
}

func TestLint_AsErrorListsWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Timeout = time.Minute
	if err := cfg.Lint().AsError(LintWarn); err == nil {
		t.Fatal("expected error for timeout_long at WARN")
	}
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("unexpected HIGH warnings: %v", err)
	}
}

// helpers

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
