package config

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds collector, sink and pipeline configuration.
type Config struct {
	BaseURL            string
	TargetCount        int
	MaxPages           int
	Timeout            time.Duration
	Delay              time.Duration
	UserAgent          string
	Referer            string
	InsecureSkipVerify bool
	MaxRetries         int
	RetryBackoff       time.Duration
	RetryBackoffMax    time.Duration

	SinkDriver    string // sqlite, libsql, or pgx
	SinkDSN       string
	Table         string
	Transactional bool

	HandoffBackend string // memory or redis
	RedisAddr      string
	HandoffTTL     time.Duration

	ExportFile   string
	ExportFormat string // csv, json or dual
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns defaults for the data engineering books search.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://www.amazon.com/s?k=data+engineering+books",
		TargetCount:        50,
		MaxPages:           3,
		Timeout:            30 * time.Second,
		Delay:              0,
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Referer:            "https://www.amazon.com/",
		InsecureSkipVerify: false,
		MaxRetries:         0,
		RetryBackoff:       500 * time.Millisecond,
		RetryBackoffMax:    5 * time.Second,
		SinkDriver:         "sqlite",
		SinkDSN:            "output/books.db",
		Table:              "books",
		Transactional:      false,
		HandoffBackend:     "memory",
		RedisAddr:          "localhost:6379",
		HandoffTTL:         24 * time.Hour,
		ExportFormat:       "csv",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}

	switch c.SinkDriver {
	case "sqlite", "libsql", "pgx":
	default:
		return fmt.Errorf("sink driver must be sqlite, libsql, or pgx")
	}
	if c.SinkDSN == "" {
		return fmt.Errorf("sink DSN cannot be empty")
	}
	if !tableNamePattern.MatchString(c.Table) {
		return fmt.Errorf("table name %q is not a plain identifier", c.Table)
	}

	switch c.HandoffBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for the redis handoff backend")
		}
	default:
		return fmt.Errorf("handoff backend must be memory or redis")
	}
	if c.HandoffTTL < 0 {
		return fmt.Errorf("handoff TTL cannot be negative")
	}

	if c.ExportFile != "" && c.ExportFormat != "csv" && c.ExportFormat != "json" && c.ExportFormat != "dual" {
		return fmt.Errorf("export format must be csv, json or dual")
	}

	return nil
}
