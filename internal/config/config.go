// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Protocol names.
const (
	ProtocolInteractive = "interactive"
	ProtocolSigned      = "signed"
	ProtocolBoth        = "both"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Protocol selects the mounted proof routes: interactive, signed or both.
	Protocol string `koanf:"protocol"`

	// ServerSecret keys the sealing of stored sessions. Never shared.
	ServerSecret string `koanf:"server_secret"`
	// CombineContext is mixed into the combined public key of interactive
	// challenges. Solvers need the same value.
	CombineContext string `koanf:"combine_context"`

	SessionTTL     time.Duration `koanf:"session_ttl"`
	SessionBackend string        `koanf:"session_backend"`
	RedisAddr      string        `koanf:"redis_addr"`
	RedisPassword  string        `koanf:"redis_password"`
	RedisDB        int           `koanf:"redis_db"`
	RedisPrefix    string        `koanf:"redis_prefix"`

	LedgerBackend string `koanf:"ledger_backend"`
	PostgresDSN   string `koanf:"postgres_dsn"`
	// ChallengesFile is a YAML challenge catalog seeded at startup.
	ChallengesFile string `koanf:"challenges_file"`
	// TeamsFile is a YAML roster registered at startup through the normal
	// registration checks. Meant for development and rehearsals.
	TeamsFile string `koanf:"teams_file"`

	// Zero times leave the window open on that side.
	EventStart        time.Time `koanf:"event_start"`
	EventEnd          time.Time `koanf:"event_end"`
	SubscriptionStart time.Time `koanf:"subscription_start"`

	ScoreCacheTTL time.Duration `koanf:"score_cache_ttl"`
	AuditCacheTTL time.Duration `koanf:"audit_cache_ttl"`
	TeamsCacheTTL time.Duration `koanf:"teams_cache_ttl"`

	ScoringK         float64 `koanf:"scoring_k"`
	ScoringV         float64 `koanf:"scoring_v"`
	ScoringMinPoints float64 `koanf:"scoring_min_points"`
	ScoringMaxPoints float64 `koanf:"scoring_max_points"`

	// SubmitRatePerSec limits proof submissions per team; zero disables.
	SubmitRatePerSec float64  `koanf:"submit_rate_per_sec"`
	SubmitBurst      int      `koanf:"submit_burst"`
	CORSOrigins      []string `koanf:"cors_origins"`

	// Tokens is the development identity table, token to uid.
	Tokens map[string]string `koanf:"tokens"`
	// UnverifiedUIDs lists uids whose e-mail is not verified.
	UnverifiedUIDs []string `koanf:"unverified_uids"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		ShutdownTimeout:  10 * time.Second,
		Protocol:         ProtocolInteractive,
		SessionTTL:       2 * time.Minute,
		SessionBackend:   BackendMemory,
		RedisAddr:        "localhost:6379",
		RedisPrefix:      "ctfboard:session:",
		LedgerBackend:    BackendMemory,
		ScoreCacheTTL:    10 * time.Second,
		AuditCacheTTL:    5 * time.Second,
		TeamsCacheTTL:    5 * time.Second,
		ScoringK:         80,
		ScoringV:         3,
		ScoringMinPoints: 50,
		ScoringMaxPoints: 500,
		SubmitRatePerSec: 2,
		SubmitBurst:      5,
		CORSOrigins:      []string{"*"},
	}
}
