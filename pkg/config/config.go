// Package config provides configuration management for HurrahDB stores.
//
// The package supports configuration through multiple sources with the following precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables
//  3. YAML configuration file
//  4. Default values (lowest priority)
//
// Store Configuration:
//   - Persistence kind: none (pure in-memory) or aof (append-only log)
//   - Append-only log file path and sync interval
//   - Policy for a log that fails to replay
//   - Logging level
//
// Example usage:
//
//	cfg, args, err := config.Load(os.Args[1:])
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	s, err := store.New(cfg)
//
// Environment variables are prefixed with "HURRAHDB_" and use uppercase names.
// For example, the log file can be set with HURRAHDB_AOF_FILE=/var/lib/app.aof.
//
// A YAML file looks like:
//
//	persistence: aof
//	log_level: info
//	on_corrupt: quarantine
//	aof:
//	  file: /var/lib/app.aof
//	  sync_interval: 1s
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration constants
const (
	DefaultSyncInterval = time.Second
	DefaultLogLevel     = "info"
	envPrefix           = "HURRAHDB_"
)

// ErrMissingConfiguration is matched by every *MissingConfigurationError.
var ErrMissingConfiguration = errors.New("missing configuration")

// Kind selects the persistence backend of a store.
type Kind int

const (
	KindNone Kind = iota // in-memory only, no file I/O
	KindLog              // append-only log
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLog:
		return "aof"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a persistence kind. "none" and "" select KindNone,
// "aof" and "log" select KindLog. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return KindNone, nil
	case "aof", "log":
		return KindLog, nil
	default:
		return KindNone, fmt.Errorf("invalid persistence kind: %q", s)
	}
}

// CorruptPolicy decides what a store does when its log fails to replay.
type CorruptPolicy int

const (
	CorruptFail       CorruptPolicy = iota // return the error from store.New
	CorruptQuarantine                      // move the file aside and start empty
)

func (p CorruptPolicy) String() string {
	if p == CorruptQuarantine {
		return "quarantine"
	}
	return "fail"
}

// ParseCorruptPolicy parses "fail" (or "") and "quarantine".
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return CorruptFail, nil
	case "quarantine":
		return CorruptQuarantine, nil
	default:
		return CorruptFail, fmt.Errorf("invalid corrupt log policy: %q", s)
	}
}

// LogConfig holds the settings required by the append-only log backend.
type LogConfig struct {
	Path         string        // Log file path, created if absent
	SyncInterval time.Duration // Period of the background flush
}

// Config holds all configuration options for a store.
//
// Example:
//
//	cfg := &config.Config{
//		Kind: config.KindLog,
//		Log: &config.LogConfig{
//			Path:         "app.aof",
//			SyncInterval: 100 * time.Millisecond,
//		},
//	}
type Config struct {
	Log       *LogConfig    // Required when Kind is KindLog
	LogLevel  string        // debug, info, warn, error (default: "info")
	Kind      Kind          // Persistence backend (default: KindNone)
	OnCorrupt CorruptPolicy // Behaviour on a log that fails to replay (default: CorruptFail)
}

// MissingConfigurationError is returned when the selected persistence kind
// lacks a required setting.
type MissingConfigurationError struct {
	Kind  Kind
	Field string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("configuration is not set for %s persistence type: missing %s", e.Kind, e.Field)
}

func (e *MissingConfigurationError) Is(target error) bool {
	return target == ErrMissingConfiguration
}

// Default returns an in-memory configuration.
func Default() *Config {
	return &Config{
		Kind:     KindNone,
		LogLevel: DefaultLogLevel,
	}
}

// Validate checks that the configuration can build a store.
//
// Validation rules:
//   - KindLog requires Log, a non-empty Log.Path and a positive Log.SyncInterval
//   - LogLevel, when set, must be one of: debug, info, warn, error
//
// Returns:
//   - nil if configuration is valid
//   - *MissingConfigurationError for an absent log setting
//   - Error describing any other validation failure
func (c *Config) Validate() error {
	switch c.Kind {
	case KindNone:
	case KindLog:
		if c.Log == nil {
			return &MissingConfigurationError{Kind: c.Kind, Field: "aof settings"}
		}
		if c.Log.Path == "" {
			return &MissingConfigurationError{Kind: c.Kind, Field: "aof file path"}
		}
		if c.Log.SyncInterval <= 0 {
			return &MissingConfigurationError{Kind: c.Kind, Field: "aof sync interval"}
		}
	default:
		return fmt.Errorf("invalid persistence kind: %v", c.Kind)
	}

	if c.LogLevel != "" {
		if _, err := parseLevel(c.LogLevel); err != nil {
			return err
		}
	}

	return nil
}

// SlogLevel returns the slog level for LogLevel, falling back to Info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// fileConfig is the YAML shape of a configuration file.
type fileConfig struct {
	Persistence string `yaml:"persistence"`
	LogLevel    string `yaml:"log_level"`
	OnCorrupt   string `yaml:"on_corrupt"`
	AOF         *struct {
		File         string `yaml:"file"`
		SyncInterval string `yaml:"sync_interval"`
	} `yaml:"aof"`
}

// LoadFile reads a YAML configuration file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Persistence != "" {
		if err := c.setKind(fc.Persistence); err != nil {
			return err
		}
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.OnCorrupt != "" {
		if err := c.setOnCorrupt(fc.OnCorrupt); err != nil {
			return err
		}
	}
	if fc.AOF != nil {
		if fc.AOF.File != "" {
			c.logConfig().Path = fc.AOF.File
		}
		if fc.AOF.SyncInterval != "" {
			if err := c.setSyncInterval(fc.AOF.SyncInterval); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load builds a Config from command-line arguments, environment variables
// and an optional YAML file, and returns the remaining positional arguments.
//
// Command-line flags:
//
//	-config: YAML configuration file
//	-persistence: none or aof (default: none)
//	-aof-file: Append-only log path
//	-sync-interval: Background flush period (default: 1s)
//	-log-level: Log level (default: "info")
//	-on-corrupt: fail or quarantine (default: "fail")
//
// Environment variables:
//
//	HURRAHDB_CONFIG, HURRAHDB_PERSISTENCE, HURRAHDB_AOF_FILE,
//	HURRAHDB_SYNC_INTERVAL, HURRAHDB_LOG_LEVEL, HURRAHDB_ON_CORRUPT
//
// Load does not validate; call Validate on the result.
func Load(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet("hurrahdb", flag.ContinueOnError)
	configFile := fs.String("config", "", "YAML configuration file")
	persistence := fs.String("persistence", "none", "Persistence kind (none, aof)")
	aofFile := fs.String("aof-file", "", "Append-only log file path")
	syncInterval := fs.Duration("sync-interval", DefaultSyncInterval, "Append-only log flush interval")
	logLevel := fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	onCorrupt := fs.String("on-corrupt", "fail", "Corrupt log policy (fail, quarantine)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := Default()
	cfg.logConfig().SyncInterval = DefaultSyncInterval

	path := *configFile
	if !set["config"] {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, nil, err
	}

	if set["persistence"] {
		if err := cfg.setKind(*persistence); err != nil {
			return nil, nil, err
		}
	}
	if set["aof-file"] {
		cfg.logConfig().Path = *aofFile
	}
	if set["sync-interval"] {
		cfg.logConfig().SyncInterval = *syncInterval
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["on-corrupt"] {
		if err := cfg.setOnCorrupt(*onCorrupt); err != nil {
			return nil, nil, err
		}
	}

	return cfg, fs.Args(), nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envPrefix + "PERSISTENCE"); v != "" {
		if err := c.setKind(v); err != nil {
			return err
		}
	}
	if v := os.Getenv(envPrefix + "AOF_FILE"); v != "" {
		c.logConfig().Path = v
	}
	if v := os.Getenv(envPrefix + "SYNC_INTERVAL"); v != "" {
		if err := c.setSyncInterval(v); err != nil {
			return err
		}
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "ON_CORRUPT"); v != "" {
		if err := c.setOnCorrupt(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) logConfig() *LogConfig {
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	return c.Log
}

func (c *Config) setKind(s string) error {
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	c.Kind = kind
	return nil
}

func (c *Config) setOnCorrupt(s string) error {
	policy, err := ParseCorruptPolicy(s)
	if err != nil {
		return err
	}
	c.OnCorrupt = policy
	return nil
}

func (c *Config) setSyncInterval(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid sync interval %q: %w", s, err)
	}
	c.logConfig().SyncInterval = d
	return nil
}
