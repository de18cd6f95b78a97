package goAuthClient

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a setting that is valid but probably not intended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, len(hits))
	for i, w := range hits {
		parts[i] = fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message)
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint inspects a configuration that already passes Validate.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if u, err := url.Parse(c.Server.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("insecure_base_url", LintHigh, "bearer tokens would be sent over plain http")
	}
	if c.Server.Timeout > 30*time.Second {
		add("timeout_long", LintWarn, "requests may hang for more than 30s before failing")
	}

	if !c.Refresh.Enabled {
		add("refresh_disabled", LintInfo, "sessions end when the token expires")
	} else if c.Refresh.Interval >= time.Duration(c.Refresh.ThresholdMinutes)*time.Minute {
		add("refresh_interval_exceeds_threshold", LintHigh,
			"a token can cross the refresh threshold and expire between two checks")
	}

	switch c.Storage.Backend {
	case StorageMemory:
		add("storage_not_persistent", LintInfo, "credentials are lost when the process exits")
	case StorageRedis:
		if c.Storage.RedisTTL > 0 && c.Storage.RedisTTL < time.Hour {
			add("redis_ttl_short", LintWarn, "stored credentials may vanish while the token is still valid")
		}
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "session transitions are not audited")
	}
	return ws
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
