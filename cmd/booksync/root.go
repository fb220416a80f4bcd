package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-booksync/config"
	"github.com/spf13/cobra"
)

// globalFlags holds flags shared by every subcommand. A flag overrides the
// config file and environment only when it was set explicitly.
type globalFlags struct {
	configPath         string
	verbose            bool
	metricsAddr        string
	baseURL            string
	target             int
	pages              int
	delay              time.Duration
	timeout            time.Duration
	maxRetries         int
	insecureSkipVerify bool
	sinkDriver         string
	sinkDSN            string
	table              string
	transactional      bool
	handoff            string
	redisAddr          string
	exportFile         string
	exportFormat       string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "booksync",
		Short: "booksync collects book listings from a search endpoint and loads them into a table",
		Long: `booksync paginates a marketplace search for books, extracts title, author,
price and rating from each result, drops duplicate titles, and loads the batch
into a SQL table (sqlite, libsql or postgres).

Usage:
  booksync run [flags]
  booksync collect [flags]
  booksync ensure-table [flags]`,
		SilenceUsage: true,
	}

	flags.bind(root)

	root.AddCommand(
		newRunCmd(flags),
		newCollectCmd(flags),
		newEnsureTableCmd(flags),
	)
	return root
}

// bind registers the flags as persistent flags of cmd.
func (f *globalFlags) bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to a JSON5 config file")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	pf.StringVar(&f.baseURL, "base-url", "", "Search endpoint including the base query")
	pf.IntVar(&f.target, "target", 0, "Number of unique books to collect")
	pf.IntVar(&f.pages, "pages", 0, "Maximum result pages to fetch")
	pf.DurationVar(&f.delay, "delay", 0, "Delay between page requests")
	pf.DurationVar(&f.timeout, "timeout", 0, "Per-request timeout")
	pf.IntVar(&f.maxRetries, "max-retries", 0, "Retries per page for network errors and 5xx/429")
	pf.BoolVar(&f.insecureSkipVerify, "insecure-skip-verify", false, "Disable TLS certificate verification")
	pf.StringVar(&f.sinkDriver, "sink-driver", "", "Sink driver: sqlite, libsql or pgx")
	pf.StringVar(&f.sinkDSN, "sink-dsn", "", "Sink connection string")
	pf.StringVar(&f.table, "table", "", "Destination table name")
	pf.BoolVar(&f.transactional, "transactional", false, "Load each batch in a single transaction")
	pf.StringVar(&f.handoff, "handoff", "", "Handoff store between steps: memory or redis")
	pf.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the redis handoff store")
	pf.StringVar(&f.exportFile, "export", "", "Also write the collected batch to this file")
	pf.StringVar(&f.exportFormat, "export-format", "", "Export format: csv, json or dual")
}

// resolveConfig layers defaults, the config file, BOOKSYNC_* variables and
// explicitly set flags, then installs the logger.
func resolveConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("verbose") {
		cfg.Verbose = flags.verbose
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if set("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if set("target") {
		cfg.TargetCount = flags.target
	}
	if set("pages") {
		cfg.MaxPages = flags.pages
	}
	if set("delay") {
		cfg.Delay = flags.delay
	}
	if set("timeout") {
		cfg.Timeout = flags.timeout
	}
	if set("max-retries") {
		cfg.MaxRetries = flags.maxRetries
	}
	if set("insecure-skip-verify") {
		cfg.InsecureSkipVerify = flags.insecureSkipVerify
	}
	if set("sink-driver") {
		cfg.SinkDriver = flags.sinkDriver
	}
	if set("sink-dsn") {
		cfg.SinkDSN = flags.sinkDSN
	}
	if set("table") {
		cfg.Table = flags.table
	}
	if set("transactional") {
		cfg.Transactional = flags.transactional
	}
	if set("handoff") {
		cfg.HandoffBackend = flags.handoff
	}
	if set("redis-addr") {
		cfg.RedisAddr = flags.redisAddr
	}
	if set("export") {
		cfg.ExportFile = flags.exportFile
	}
	if set("export-format") {
		cfg.ExportFormat = strings.ToLower(flags.exportFormat)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
	return cfg, nil
}
