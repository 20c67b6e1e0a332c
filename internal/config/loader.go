package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read directly by the loader.
const (
	EnvConfigFile = "CTFBOARD_CONFIG"
	EnvDotEnvFile = "CTFBOARD_ENV_FILE"
	envPrefix     = "CTFBOARD_"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if CTFBOARD_CONFIG is set
//  3. env (prefix CTFBOARD_), including values from a .env file
//
// A .env file (or the path in CTFBOARD_ENV_FILE) is read first; it never
// overrides variables already set in the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// CTFBOARD_SESSION_TTL -> session_ttl. Flat keys keep their underscores.
	// List keys take comma separated values.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	// The loader's own variables are not config keys.
	k.Delete("config")
	k.Delete("env_file")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are the []string keys settable from the environment.
var listKeys = map[string]struct{}{
	"cors_origins":    {},
	"unverified_uids": {},
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadDotEnv() error {
	path := os.Getenv(EnvDotEnvFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(c.LogFormat == "text" || c.LogFormat == "json", "log_format must be text or json, got %q", c.LogFormat)
	check(c.Protocol == ProtocolInteractive || c.Protocol == ProtocolSigned || c.Protocol == ProtocolBoth,
		"protocol must be interactive, signed or both, got %q", c.Protocol)
	if c.Protocol != ProtocolSigned {
		check(c.ServerSecret != "", "server_secret is required for the interactive protocol")
		check(c.CombineContext != "", "combine_context is required for the interactive protocol")
	}
	check(c.SessionTTL > 0, "session_ttl must be positive")
	check(c.SessionBackend == BackendMemory || c.SessionBackend == BackendRedis,
		"session_backend must be memory or redis, got %q", c.SessionBackend)
	if c.SessionBackend == BackendRedis {
		check(c.RedisAddr != "", "redis_addr is required for the redis session backend")
	}
	check(c.LedgerBackend == BackendMemory || c.LedgerBackend == BackendPostgres,
		"ledger_backend must be memory or postgres, got %q", c.LedgerBackend)
	if c.LedgerBackend == BackendPostgres {
		check(c.PostgresDSN != "", "postgres_dsn is required for the postgres ledger backend")
	}
	if !c.EventStart.IsZero() && !c.EventEnd.IsZero() {
		check(c.EventStart.Before(c.EventEnd), "event_start must be before event_end")
	}
	check(c.ScoringK >= 0 && c.ScoringV > 0 && c.ScoringMinPoints >= 0 && c.ScoringMaxPoints >= c.ScoringMinPoints,
		"scoring parameters out of range")
	check(c.SubmitRatePerSec >= 0, "submit_rate_per_sec must not be negative")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
