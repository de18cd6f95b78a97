package goAuthClient

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Timeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.Server.Timeout)
	}
	if cfg.Refresh.Interval != time.Minute || cfg.Refresh.ThresholdMinutes != 10 {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "https base url",
			mutate:    func(c *Config) { c.Server.BaseURL = "https://auth.example.com" },
			wantValid: true,
		},
		{
			name:      "missing base url",
			mutate:    func(c *Config) { c.Server.BaseURL = " " },
			wantValid: false,
		},
		{
			name:      "relative base url",
			mutate:    func(c *Config) { c.Server.BaseURL = "/api" },
			wantValid: false,
		},
		{
			name:      "zero timeout",
			mutate:    func(c *Config) { c.Server.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "login route without slash",
			mutate:    func(c *Config) { c.Server.LoginRoute = "login" },
			wantValid: false,
		},
		{
			name:      "audit exclude known type",
			mutate:    func(c *Config) { c.Audit.Exclude = []string{"stale_result_discarded", " login"} },
			wantValid: true,
		},
		{
			name:      "audit exclude unknown type",
			mutate:    func(c *Config) { c.Audit.Exclude = []string{"password_reset"} },
			wantValid: false,
		},
		{
			name:      "negative rate",
			mutate:    func(c *Config) { c.Server.RequestsPerSecond = -1 },
			wantValid: false,
		},
		{
			name:      "refresh zero interval",
			mutate:    func(c *Config) { c.Refresh.Interval = 0 },
			wantValid: false,
		},
		{
			name: "refresh disabled ignores interval",
			mutate: func(c *Config) {
				c.Refresh.Enabled = false
				c.Refresh.Interval = 0
			},
			wantValid: true,
		},
		{
			name:      "redis without url",
			mutate:    func(c *Config) { c.Storage.Backend = StorageRedis },
			wantValid: false,
		},
		{
			name: "redis with url",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageRedis
				c.Storage.RedisURL = "redis://localhost:6379/0"
			},
			wantValid: true,
		},
		{
			name:      "sqlite without path",
			mutate:    func(c *Config) { c.Storage.Backend = StorageSQLite },
			wantValid: false,
		},
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Storage.Backend = "etcd" },
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	cfg, err := loadConfig(map[string]string{
		"AUTHCLIENT_SERVER_BASE_URL":                   "https://auth.example.com",
		"AUTHCLIENT_SERVER_TIMEOUT":                    "3s",
		"AUTHCLIENT_REFRESH_INTERVAL":                  "30s",
		"AUTHCLIENT_REFRESH_THRESHOLD_MINUTES":         "5",
		"AUTHCLIENT_STORAGE_BACKEND":                   "sqlite",
		"AUTHCLIENT_STORAGE_SQLITE_PATH":               "/tmp/creds.db",
		"AUTHCLIENT_AUDIT_ENABLED":                     "true",
		"AUTHCLIENT_AUDIT_EXCLUDE":                     "stale_result_discarded,token_refresh",
		"AUTHCLIENT_METRICS_ENABLE_LATENCY_HISTOGRAMS": "true",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.BaseURL != "https://auth.example.com" {
		t.Fatalf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Refresh.Interval != 30*time.Second || cfg.Refresh.ThresholdMinutes != 5 {
		t.Fatalf("refresh = %+v", cfg.Refresh)
	}
	if cfg.Storage.Backend != StorageSQLite || cfg.Storage.SQLitePath != "/tmp/creds.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize != 256 {
		t.Fatalf("audit = %+v", cfg.Audit)
	}
	if len(cfg.Audit.Exclude) != 2 || cfg.Audit.Exclude[1] != "token_refresh" {
		t.Fatalf("audit exclude = %v", cfg.Audit.Exclude)
	}
	if !cfg.Metrics.EnableLatencyHistograms {
		t.Fatal("expected latency histograms enabled")
	}
	// unset variables keep defaults
	if cfg.Server.LoginRoute != "/login" {
		t.Fatalf("login route = %q", cfg.Server.LoginRoute)
	}
}

func TestLoadConfigRejectsInvalidEnvironment(t *testing.T) {
	_, err := loadConfig(map[string]string{
		"AUTHCLIENT_STORAGE_BACKEND": "redis",
	})
	if err == nil || !strings.Contains(err.Error(), "RedisURL") {
		t.Fatalf("expected redis url error, got %v", err)
	}

	_, err = loadConfig(map[string]string{
		"AUTHCLIENT_SERVER_TIMEOUT": "soon",
	})
	if err == nil {
		t.Fatal("expected parse error for bad duration")
	}
}

func TestStorageOriginDefaultsToBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "https://auth.example.com/"
	if got := cfg.storageOrigin(); got != "https://auth.example.com" {
		t.Fatalf("origin = %q", got)
	}
	cfg.Storage.Origin = "tenant-a"
	if got := cfg.storageOrigin(); got != "tenant-a" {
		t.Fatalf("origin = %q", got)
	}
}
