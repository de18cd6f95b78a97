package goAuthClient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/pipeline"
	"github.com/MrEthical07/goAuthClient/refresh"
)

// EnvPrefix is prepended to every variable read by LoadConfigFromEnv.
const EnvPrefix = "AUTHCLIENT_"

// Config is the complete Engine configuration.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Server  ServerConfig  `envPrefix:"SERVER_"`
	Refresh RefreshConfig `envPrefix:"REFRESH_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Audit   AuditConfig   `envPrefix:"AUDIT_"`
	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

/*
====================================
SERVER CONFIG
====================================
*/

// ServerConfig describes the remote auth service and the request pipeline.
type ServerConfig struct {
	// BaseURL is the service origin, e.g. "https://auth.example.com".
	BaseURL string `env:"BASE_URL"`
	// LoginRoute is the navigation target after a forced logout.
	LoginRoute string        `env:"LOGIN_ROUTE"`
	Timeout    time.Duration `env:"TIMEOUT"`
	// RequestsPerSecond throttles outbound calls when > 0.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND"`
	Burst             int     `env:"BURST"`
	MaxResponseBytes  int64   `env:"MAX_RESPONSE_BYTES"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the background refresh scheduler.
type RefreshConfig struct {
	Enabled          bool          `env:"ENABLED"`
	Interval         time.Duration `env:"INTERVAL"`
	ThresholdMinutes int           `env:"THRESHOLD_MINUTES"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where credentials persist.
type StorageBackend string

const (
	// StorageMemory keeps credentials for the life of the process.
	StorageMemory StorageBackend = "memory"
	// StorageRedis shares credentials through Redis.
	StorageRedis StorageBackend = "redis"
	// StorageSQLite keeps credentials in a local database file.
	StorageSQLite StorageBackend = "sqlite"
)

// StorageConfig selects and tunes the credential store backend.
type StorageConfig struct {
	Backend   StorageBackend `env:"BACKEND"`
	Namespace string         `env:"NAMESPACE"`
	// Origin scopes keys. Empty means the server base URL.
	Origin     string        `env:"ORIGIN"`
	OpTimeout  time.Duration `env:"OP_TIMEOUT"`
	RedisURL   string        `env:"REDIS_URL"`
	RedisTTL   time.Duration `env:"REDIS_TTL"`
	SQLitePath string        `env:"SQLITE_PATH"`
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`

	// Exclude names event types that are not recorded, e.g.
	// "stale_result_discarded".
	Exclude []string `env:"EXCLUDE" envSeparator:","`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"ENABLE_LATENCY_HISTOGRAMS"`
}

// DefaultConfig returns the baseline configuration: memory storage,
// a 10s request timeout, and a refresh check every minute that renews tokens
// within ten minutes of expiry.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:          "http://localhost:8080",
			LoginRoute:       pipeline.DefaultLoginRoute,
			Timeout:          pipeline.DefaultTimeout,
			MaxResponseBytes: 1 << 20,
		},
		Refresh: RefreshConfig{
			Enabled:          true,
			Interval:         refresh.DefaultInterval,
			ThresholdMinutes: refresh.DefaultThresholdMinutes,
		},
		Storage: StorageConfig{
			Backend:   StorageMemory,
			Namespace: "authclient",
			OpTimeout: 2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// LoadConfigFromEnv starts from DefaultConfig and overrides every field whose
// AUTHCLIENT_* variable is set, e.g. AUTHCLIENT_SERVER_BASE_URL or
// AUTHCLIENT_STORAGE_BACKEND. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(nil)
}

func loadConfig(environment map[string]string) (Config, error) {
	cfg := DefaultConfig()
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	// Server
	base := strings.TrimSpace(c.Server.BaseURL)
	if base == "" {
		return errors.New("Server BaseURL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("Server BaseURL must be an absolute http(s) URL")
	}
	if c.Server.Timeout <= 0 {
		return errors.New("Server Timeout must be > 0")
	}
	if c.Server.LoginRoute != "" && !strings.HasPrefix(c.Server.LoginRoute, "/") {
		return errors.New("Server LoginRoute must start with '/'")
	}
	if c.Server.RequestsPerSecond < 0 {
		return errors.New("Server RequestsPerSecond must be >= 0")
	}
	if c.Server.Burst < 0 {
		return errors.New("Server Burst must be >= 0")
	}
	if c.Server.MaxResponseBytes < 0 {
		return errors.New("Server MaxResponseBytes must be >= 0")
	}

	// Refresh
	if c.Refresh.Enabled {
		if c.Refresh.Interval <= 0 {
			return errors.New("Refresh Interval must be > 0 when refresh is enabled")
		}
		if c.Refresh.ThresholdMinutes <= 0 {
			return errors.New("Refresh ThresholdMinutes must be > 0 when refresh is enabled")
		}
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisURL) == "" {
			return errors.New("Storage RedisURL is required for the redis backend")
		}
		if c.Storage.RedisTTL < 0 {
			return errors.New("Storage RedisTTL must be >= 0")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return errors.New("Storage SQLitePath is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("Storage Backend %q is invalid", c.Storage.Backend)
	}
	if c.Storage.OpTimeout <= 0 {
		return errors.New("Storage OpTimeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	for _, t := range c.Audit.Exclude {
		if !internalaudit.KnownEventType(strings.TrimSpace(t)) {
			return fmt.Errorf("Audit Exclude names unknown event type %q", t)
		}
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}

func (c Config) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		BaseURL:           c.Server.BaseURL,
		LoginRoute:        c.Server.LoginRoute,
		Timeout:           c.Server.Timeout,
		RequestsPerSecond: c.Server.RequestsPerSecond,
		Burst:             c.Server.Burst,
		MaxResponseBytes:  c.Server.MaxResponseBytes,
	}
}

func (c Config) refreshConfig() refresh.Config {
	return refresh.Config{
		Interval:         c.Refresh.Interval,
		ThresholdMinutes: c.Refresh.ThresholdMinutes,
	}
}

func (c Config) storageOrigin() string {
	if o := strings.TrimSpace(c.Storage.Origin); o != "" {
		return o
	}
	return strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
}
