// Package service orchestrates flag-proof submissions: it authenticates the
// caller, checks the event window and team membership, runs the proof
// protocol and records accepted solves in the ledger.
package service

import (
	"context"
	"time"

	"github.com/okian/ctfboard/internal/adapters/identity"
	"github.com/okian/ctfboard/internal/adapters/repository"
	"github.com/okian/ctfboard/internal/adapters/session"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/domain/scoring"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/logger"
)

// Default cache lifetimes.
const (
	DefaultScoreCacheTTL = 10 * time.Second
	DefaultAuditCacheTTL = 5 * time.Second
	DefaultTeamsCacheTTL = 5 * time.Second
)

// Service implements the API dependencies for the scoreboard.
type Service struct {
	store    repository.Store
	sessions session.Store
	sealer   *session.Sealer
	verifier identity.Verifier
	engine   *proof.Interactive
	scorer   *scoring.Engine
	logger   logger.Logger
	now      func() time.Time

	sessionTTL time.Duration

	// Zero values leave the window open on that side.
	eventStart        time.Time
	eventEnd          time.Time
	subscriptionStart time.Time

	scoreboard *cache[types.Scoreboard]
	audit      *cache[[]types.AuditEntry]
	teams      *cache[[]types.TeamSummary]
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing repository.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithSessionStore sets where interactive sessions are kept.
func WithSessionStore(s session.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.sessions = s
		}
	}
}

// WithSealer sets the sealer for stored sessions.
func WithSealer(s *session.Sealer) Option {
	return func(svc *Service) {
		if s != nil {
			svc.sealer = s
		}
	}
}

// WithVerifier sets the identity verifier.
func WithVerifier(v identity.Verifier) Option {
	return func(svc *Service) {
		if v != nil {
			svc.verifier = v
		}
	}
}

// WithInteractive sets the interactive protocol engine.
func WithInteractive(e *proof.Interactive) Option {
	return func(svc *Service) {
		if e != nil {
			svc.engine = e
		}
	}
}

// WithScoring sets the scoring engine.
func WithScoring(e *scoring.Engine) Option {
	return func(svc *Service) {
		if e != nil {
			svc.scorer = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithClock sets the time source for windows and caches.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithSessionTTL sets how long step 2 may be delayed.
func WithSessionTTL(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.sessionTTL = d
		}
	}
}

// WithEventWindow restricts submissions to [start, end].
func WithEventWindow(start, end time.Time) Option {
	return func(svc *Service) {
		svc.eventStart = start
		svc.eventEnd = end
	}
}

// WithSubscriptionStart rejects team registration before t.
func WithSubscriptionStart(t time.Time) Option {
	return func(svc *Service) { svc.subscriptionStart = t }
}

// WithCacheTTLs sets the lifetimes of the scoreboard, audit and team caches.
// Zero disables a cache.
func WithCacheTTLs(score, audit, teams time.Duration) Option {
	return func(svc *Service) {
		svc.scoreboard.ttl = score
		svc.audit.ttl = audit
		svc.teams.ttl = teams
	}
}

// New constructs a Service. Without options it runs fully in memory with an
// empty token table.
func New(opts ...Option) *Service {
	s := &Service{
		store:      repository.NewMemoryStore(),
		sessions:   session.NewMemoryStore(),
		verifier:   identity.NewStaticVerifier(),
		scorer:     scoring.New(),
		now:        time.Now,
		sessionTTL: session.DefaultTTL,
		scoreboard: &cache[types.Scoreboard]{name: "scoreboard", ttl: DefaultScoreCacheTTL},
		audit:      &cache[[]types.AuditEntry]{name: "audit", ttl: DefaultAuditCacheTTL},
		teams:      &cache[[]types.TeamSummary]{name: "teams", ttl: DefaultTeamsCacheTTL},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.engine == nil {
		s.engine = proof.NewInteractive(nil)
	}
	for _, c := range []interface{ setClock(func() time.Time) }{s.scoreboard, s.audit, s.teams} {
		c.setClock(s.now)
	}
	return s
}

// Close releases the repository.
func (s *Service) Close(ctx context.Context) error {
	s.logger.Info(ctx, "closing scoreboard service")
	return s.store.Close()
}

// Invalidate drops every cached view.
func (s *Service) Invalidate() {
	s.scoreboard.reset()
	s.audit.reset()
	s.teams.reset()
}

func (s *Service) inEventWindow() bool {
	now := s.now()
	if !s.eventStart.IsZero() && now.Before(s.eventStart) {
		return false
	}
	if !s.eventEnd.IsZero() && now.After(s.eventEnd) {
		return false
	}
	return true
}
