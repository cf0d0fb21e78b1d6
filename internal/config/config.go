// Package config parses daemon configuration from AUDIT_* environment
// variables with command-line flag overrides.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// Config holds auditd configuration.
type Config struct {
	GRPCAddr    string        `env:"AUDIT_GRPC_ADDR" envDefault:":8090"`
	HTTPAddr    string        `env:"AUDIT_HTTP_ADDR" envDefault:":8080"`
	StoreKind   string        `env:"AUDIT_STORE" envDefault:"sqlite"`
	StorePath   string        `env:"AUDIT_STORE_PATH" envDefault:"data/audit.db"`
	CatalogPath string        `env:"AUDIT_CATALOG"`
	EventCap    int           `env:"AUDIT_EVENT_CAP" envDefault:"500"`
	MaxVersions int           `env:"AUDIT_MAX_VERSIONS" envDefault:"200"`
	ScanTimeout time.Duration `env:"AUDIT_SCAN_TIMEOUT" envDefault:"10s"`
	LogLevel    string        `env:"AUDIT_LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"AUDIT_LOG_FORMAT" envDefault:"json"`
	// ScanRate limits outbound page fetches per second; 0 disables the limit.
	ScanRate      float64 `env:"AUDIT_SCAN_RATE" envDefault:"2"`
	ScanBurst     int     `env:"AUDIT_SCAN_BURST" envDefault:"4"`
	TraceExporter string  `env:"AUDIT_TRACE_EXPORTER" envDefault:"none"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseConfig parses environment and flags into Config. Flags win.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}
	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address (empty disables)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address (empty disables)")
	fs.StringVar(&cfg.StoreKind, "store", cfg.StoreKind, "snapshot store: memory, file, sqlite or badger")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "store file, database or directory")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "YAML catalog path (empty uses the built-in catalog)")
	fs.IntVar(&cfg.EventCap, "event-cap", cfg.EventCap, "event log retention cap")
	fs.IntVar(&cfg.MaxVersions, "max-versions", cfg.MaxVersions, "snapshot versions kept by the sqlite store")
	fs.DurationVar(&cfg.ScanTimeout, "scan-timeout", cfg.ScanTimeout, "timeout for fetching a scanned page")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or text")
	fs.Float64Var(&cfg.ScanRate, "scan-rate", cfg.ScanRate, "page fetches per second (0 disables the limit)")
	fs.IntVar(&cfg.ScanBurst, "scan-burst", cfg.ScanBurst, "page fetch burst size")
	fs.StringVar(&cfg.TraceExporter, "trace-exporter", cfg.TraceExporter, "none or stdout")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot start with.
func (c Config) Validate() error {
	switch c.StoreKind {
	case state.KindMemory, state.KindFile, state.KindSQLite, state.KindBadger:
	default:
		return fmt.Errorf("unknown store kind %q", c.StoreKind)
	}
	if c.StoreKind == state.KindFile && c.StorePath == "" {
		return errors.New("file store requires a path")
	}
	if c.EventCap <= 0 {
		return fmt.Errorf("event cap must be positive, got %d", c.EventCap)
	}
	if c.GRPCAddr == "" && c.HTTPAddr == "" {
		return errors.New("at least one of grpc and http addresses is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.ScanRate < 0 {
		return fmt.Errorf("scan rate must not be negative, got %v", c.ScanRate)
	}
	if c.ScanRate > 0 && c.ScanBurst <= 0 {
		return fmt.Errorf("scan burst must be positive, got %d", c.ScanBurst)
	}
	switch c.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unknown trace exporter %q", c.TraceExporter)
	}
	return nil
}

// NewLogger builds the slog logger described by c.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
