// Package config resolves CLI settings from flags, IROHA_* environment
// variables and an optional YAML config file, in that order of precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. IROHA_DATABASE.
const EnvPrefix = "IROHA"

// Config keys. Each is also the key in a config file.
const (
	KeyDatabase        = "database"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyMaxTriggerDepth = "max_trigger_depth"
	KeyGenesisTime     = "genesis_time"
	KeyMetricsFile     = "metrics_file"
)

// flagNames maps config keys to the command line flags that set them.
var flagNames = map[string]string{
	KeyDatabase:        "db",
	KeyLogLevel:        "log-level",
	KeyLogFormat:       "log-format",
	KeyMaxTriggerDepth: "max-trigger-depth",
	KeyGenesisTime:     "genesis-time",
	KeyMetricsFile:     "metrics-file",
}

// DefaultMaxTriggerDepth matches the pipeline's own default.
const DefaultMaxTriggerDepth = 64

// Config is the resolved configuration.
type Config struct {
	Database        string
	LogLevel        string
	LogFormat       string
	MaxTriggerDepth int
	GenesisTime     string
	MetricsFile     string
}

// Load resolves the configuration. Flags in fs that are bound to a key
// override the environment, which overrides the file at path. An empty
// path skips the file; a missing file at a non-empty path is an error.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMaxTriggerDepth, DefaultMaxTriggerDepth)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		for key, name := range flagNames {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		Database:        v.GetString(KeyDatabase),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:       strings.ToLower(v.GetString(KeyLogFormat)),
		MaxTriggerDepth: v.GetInt(KeyMaxTriggerDepth),
		GenesisTime:     v.GetString(KeyGenesisTime),
		MetricsFile:     v.GetString(KeyMetricsFile),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid %s %q: must be text or json", KeyLogFormat, c.LogFormat)
	}
	if c.MaxTriggerDepth < 1 {
		return fmt.Errorf("invalid %s %d: must be at least 1", KeyMaxTriggerDepth, c.MaxTriggerDepth)
	}
	if _, _, err := c.Genesis(); err != nil {
		return err
	}
	return nil
}

// Genesis returns the configured genesis time, if any.
func (c *Config) Genesis() (time.Time, bool, error) {
	if c.GenesisTime == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, c.GenesisTime)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s %q: %w", KeyGenesisTime, c.GenesisTime, err)
	}
	return t.UTC(), true, nil
}

// Logger builds a slog logger writing to w. Verbose forces debug level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid %s %q: must be debug, info, warn or error", KeyLogLevel, s)
}
