// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package config loads mue process configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// any command-line flags the user actually set.
package config

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/muemud/mue/internal/logging"
)

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full process configuration.
type Config struct {
	Backend  BackendConfig  `koanf:"backend"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Seed     SeedConfig     `koanf:"seed"`
	Shutdown ShutdownConfig `koanf:"shutdown"`
}

// BackendConfig selects and configures the storage and pub/sub backend.
type BackendConfig struct {
	Kind           string        `koanf:"kind"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	Redis          RedisConfig   `koanf:"redis"`
}

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig controls the metrics and health endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// SeedConfig points at the world file used by "mue init".
type SeedConfig struct {
	File string `koanf:"file"`
}

// ShutdownConfig bounds graceful shutdown.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Defaults returns the built-in configuration values keyed by their dotted path.
func Defaults() map[string]any {
	return map[string]any{
		"backend.kind":            BackendMemory,
		"backend.connect_timeout": "5s",
		"backend.connect_retries": 5,
		"backend.redis.addr":      "127.0.0.1:6379",
		"backend.redis.password":  "",
		"backend.redis.db":        0,
		"log.format":              logging.FormatJSON,
		"log.level":               "info",
		"metrics.addr":            "127.0.0.1:9100",
		"seed.file":               "",
		"shutdown.timeout":        "5s",
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"backend":         "backend.kind",
	"redis-addr":      "backend.redis.addr",
	"redis-password":  "backend.redis.password",
	"redis-db":        "backend.redis.db",
	"connect-timeout": "backend.connect_timeout",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"metrics-addr":    "metrics.addr",
	"seed-file":       "seed.file",
}

// BindFlags registers the configuration flags on fs. Flag defaults are
// informational; values only override the file when set explicitly.
func BindFlags(fs *pflag.FlagSet) {
	defaults := Defaults()
	fs.String("backend", defaults["backend.kind"].(string), "backend kind (memory or redis)")
	fs.String("redis-addr", defaults["backend.redis.addr"].(string), "redis server address")
	fs.String("redis-password", "", "redis password")
	fs.Int("redis-db", 0, "redis database number")
	fs.Duration("connect-timeout", 5*time.Second, "backend connect timeout")
	fs.String("log-format", defaults["log.format"].(string), "log format (json or text)")
	fs.String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("metrics-addr", defaults["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	fs.String("seed-file", "", "world seed file for init")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty) and the flags explicitly set on fs (skipped when nil).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range Defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.Backend.Redis.Addr) == "" {
			return oops.Code("CONFIG_INVALID").
				With("key", "backend.redis.addr").
				Errorf("backend.redis.addr is required for the redis backend")
		}
		if c.Backend.Redis.DB < 0 {
			return oops.Code("CONFIG_INVALID").
				With("key", "backend.redis.db").
				Errorf("backend.redis.db must not be negative, got %d", c.Backend.Redis.DB)
		}
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "backend.kind").
			Errorf("backend.kind must be %q or %q, got %q", BackendMemory, BackendRedis, c.Backend.Kind)
	}

	if c.Backend.ConnectTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "backend.connect_timeout").
			Errorf("backend.connect_timeout must be positive")
	}
	if !logging.ValidFormat(c.Log.Format) {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.level").
			Errorf("log.level: %v", err)
	}
	if c.Shutdown.Timeout <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "shutdown.timeout").
			Errorf("shutdown.timeout must be positive")
	}
	return nil
}
