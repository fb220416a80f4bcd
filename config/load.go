package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// fileConfig mirrors Config with JSON5-friendly field types.
type fileConfig struct {
	BaseURL            string `json:"base_url"`
	TargetCount        int    `json:"target_count"`
	MaxPages           int    `json:"max_pages"`
	Timeout            string `json:"timeout"`
	Delay              string `json:"delay"`
	UserAgent          string `json:"user_agent"`
	Referer            string `json:"referer"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	MaxRetries         int    `json:"max_retries"`
	RetryBackoff       string `json:"retry_backoff"`
	RetryBackoffMax    string `json:"retry_backoff_max"`
	Sink               struct {
		Driver        string `json:"driver"`
		DSN           string `json:"dsn"`
		Table         string `json:"table"`
		Transactional bool   `json:"transactional"`
	} `json:"sink"`
	Handoff struct {
		Backend   string `json:"backend"`
		RedisAddr string `json:"redis_addr"`
		TTL       string `json:"ttl"`
	} `json:"handoff"`
	ExportFile   string `json:"export_file"`
	ExportFormat string `json:"export_format"`
	MetricsAddr  string `json:"metrics_addr"`
	Verbose      bool   `json:"verbose"`
}

// Load reads a JSON5 config file and fills every unset field from DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes JSON5 config bytes merged over DefaultConfig.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := json5.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg := &Config{
		BaseURL:            fc.BaseURL,
		TargetCount:        fc.TargetCount,
		MaxPages:           fc.MaxPages,
		UserAgent:          fc.UserAgent,
		Referer:            fc.Referer,
		InsecureSkipVerify: fc.InsecureSkipVerify,
		MaxRetries:         fc.MaxRetries,
		SinkDriver:         fc.Sink.Driver,
		SinkDSN:            fc.Sink.DSN,
		Table:              fc.Sink.Table,
		Transactional:      fc.Sink.Transactional,
		HandoffBackend:     fc.Handoff.Backend,
		RedisAddr:          fc.Handoff.RedisAddr,
		ExportFile:         fc.ExportFile,
		ExportFormat:       fc.ExportFormat,
		MetricsAddr:        fc.MetricsAddr,
		Verbose:            fc.Verbose,
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", fc.Timeout, &cfg.Timeout},
		{"delay", fc.Delay, &cfg.Delay},
		{"retry_backoff", fc.RetryBackoff, &cfg.RetryBackoff},
		{"retry_backoff_max", fc.RetryBackoffMax, &cfg.RetryBackoffMax},
		{"handoff.ttl", fc.Handoff.TTL, &cfg.HandoffTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if err := mergo.Merge(cfg, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}
	return cfg, nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key as a boolean when it is set.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// ApplyEnv overrides cfg with BOOKSYNC_* environment variables.
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"BOOKSYNC_BASE_URL":        &cfg.BaseURL,
		"BOOKSYNC_SINK_DRIVER":     &cfg.SinkDriver,
		"BOOKSYNC_SINK_DSN":        &cfg.SinkDSN,
		"BOOKSYNC_TABLE":           &cfg.Table,
		"BOOKSYNC_HANDOFF_BACKEND": &cfg.HandoffBackend,
		"BOOKSYNC_REDIS_ADDR":      &cfg.RedisAddr,
		"BOOKSYNC_METRICS_ADDR":    &cfg.MetricsAddr,
	}
	for key, dst := range strs {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"BOOKSYNC_TARGET_COUNT": &cfg.TargetCount,
		"BOOKSYNC_MAX_PAGES":    &cfg.MaxPages,
		"BOOKSYNC_MAX_RETRIES":  &cfg.MaxRetries,
	}
	for key, dst := range ints {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	insecure, ok, err := EnvBool("BOOKSYNC_INSECURE_SKIP_VERIFY")
	if err != nil {
		return err
	}
	if ok {
		cfg.InsecureSkipVerify = insecure
	}
	return nil
}
