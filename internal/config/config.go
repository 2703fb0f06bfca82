// Package config loads runtime settings from an optional tempo.yaml,
// TEMPO_* environment variables and command-line flags, in rising priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood by Load. Nested keys map to TEMPO_LOCK_WAIT and so on.
const (
	KeyDBPath           = "db_path"
	KeyLockWait         = "lock.wait"
	KeyLockTimeout      = "lock.timeout"
	KeySweepBatchSize   = "sweep.batch_size"
	KeySweepInterval    = "sweep.interval"
	KeySweepConcurrency = "sweep.concurrency"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyMetricsAddr      = "metrics.addr"
)

// Config is the resolved runtime configuration.
type Config struct {
	DBPath string
	Lock   LockConfig
	Sweep  SweepConfig
	Log    LogConfig

	// MetricsAddr is where the sweep exposes /metrics. Empty disables it.
	MetricsAddr string
}

// LockConfig bounds structural writes.
type LockConfig struct {
	Wait    time.Duration // max wait for the per-project lock
	Timeout time.Duration // max execution time of one unit of work
}

// SweepConfig drives the stale-project recompute.
type SweepConfig struct {
	BatchSize   int
	Interval    time.Duration
	Concurrency int
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// New returns a viper instance with defaults, search paths and env binding set.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyDBPath, defaultDBPath())
	v.SetDefault(KeyLockWait, 15*time.Second)
	v.SetDefault(KeyLockTimeout, 50*time.Second)
	v.SetDefault(KeySweepBatchSize, 10)
	v.SetDefault(KeySweepInterval, time.Hour)
	v.SetDefault(KeySweepConcurrency, 4)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsAddr, "")

	v.SetEnvPrefix("TEMPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads cfgFile, or tempo.yaml from . and $HOME/.tempo when cfgFile is
// empty. A missing search-path file is not an error; a missing explicit file is.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tempo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tempo")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		DBPath: v.GetString(KeyDBPath),
		Lock: LockConfig{
			Wait:    v.GetDuration(KeyLockWait),
			Timeout: v.GetDuration(KeyLockTimeout),
		},
		Sweep: SweepConfig{
			BatchSize:   v.GetInt(KeySweepBatchSize),
			Interval:    v.GetDuration(KeySweepInterval),
			Concurrency: v.GetInt(KeySweepConcurrency),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		MetricsAddr: v.GetString(KeyMetricsAddr),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: %s must not be empty", KeyDBPath)
	}
	if c.Lock.Wait <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", KeyLockWait, c.Lock.Wait)
	}
	if c.Lock.Timeout <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", KeyLockTimeout, c.Lock.Timeout)
	}
	if c.Sweep.BatchSize < 1 {
		return fmt.Errorf("config: %s must be at least 1, got %d", KeySweepBatchSize, c.Sweep.BatchSize)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", KeySweepInterval, c.Sweep.Interval)
	}
	if c.Sweep.Concurrency < 1 {
		return fmt.Errorf("config: %s must be at least 1, got %d", KeySweepConcurrency, c.Sweep.Concurrency)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: %s must be text or json, got %q", KeyLogFormat, c.Log.Format)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}
	return level, nil
}

// NewLogger builds the process logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tempo.db"
	}
	return filepath.Join(home, ".tempo", "tempo.db")
}
