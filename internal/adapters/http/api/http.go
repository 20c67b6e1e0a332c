// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/logger"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// ProtocolBoth mounts both proof variants.
const ProtocolBoth = "both"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitSignedProof(ctx context.Context, token, teamID string, req types.SubmitRequest) (types.Solved, error)
	BeginInteractive(ctx context.Context, token, teamID, challengeID string, req types.Step1Request) (types.Step1Response, error)
	FinishInteractive(ctx context.Context, token, teamID, challengeID string, req types.Step2Request) (types.Solved, error)

	Scoreboard(ctx context.Context) (types.Scoreboard, error)
	Audit(ctx context.Context) ([]types.AuditEntry, error)
	Challenges(ctx context.Context) ([]model.Challenge, error)
	Challenge(ctx context.Context, id string) (model.Challenge, error)
	Teams(ctx context.Context) ([]types.TeamSummary, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	protocol string
	origins  []string
	limiter  *keyedLimiter
	logger   logger.Logger

	healthHandler *HealthHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithProtocol selects which proof routes are mounted: "interactive",
// "signed" or "both".
func WithProtocol(p string) Option {
	return func(s *Server) {
		switch p {
		case proof.VariantInteractive, proof.VariantSigned, ProtocolBoth:
			s.protocol = p
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithSubmitRate limits proof submissions per team. A zero rate disables
// the limit.
func WithSubmitRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = newKeyedLimiter(rate.Limit(perSecond), max(burst, 1), 10*time.Minute)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		protocol:      proof.VariantInteractive,
		origins:       []string{"*"},
		healthHandler: NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.Handle("/metrics", HandleMetrics()).Methods(http.MethodGet)

	r.HandleFunc("/score", MetricsMiddleware(s.handleScore, "score")).Methods(http.MethodGet)
	r.HandleFunc("/audit", MetricsMiddleware(s.handleAudit, "audit")).Methods(http.MethodGet)
	r.HandleFunc("/challenges", MetricsMiddleware(s.handleChallenges, "challenges")).Methods(http.MethodGet)
	r.HandleFunc("/challenges/{challengeId}", MetricsMiddleware(s.handleChallenge, "challenge")).Methods(http.MethodGet)
	r.HandleFunc("/teams", MetricsMiddleware(s.handleTeams, "teams")).Methods(http.MethodGet)

	if s.protocol == proof.VariantSigned || s.protocol == ProtocolBoth {
		r.HandleFunc("/teams/{teamId}/solves",
			MetricsMiddleware(s.rateLimited(s.handleSubmit), "solves")).Methods(http.MethodPost)
	}
	if s.protocol == proof.VariantInteractive || s.protocol == ProtocolBoth {
		r.HandleFunc("/teams/{teamId}/solves/{challengeId}/steps/1",
			MetricsMiddleware(s.rateLimited(s.handleStep1), "step1")).Methods(http.MethodPost)
		r.HandleFunc("/teams/{teamId}/solves/{challengeId}/steps/2",
			MetricsMiddleware(s.rateLimited(s.handleStep2), "step2")).Methods(http.MethodPost)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, types.ErrorResponse{Errors: []types.ErrorItem{{Code: "not-found", Message: "Not found"}}})
	})
}

// Handler wraps r with CORS.
func (s *Server) Handler(r *mux.Router) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cacheFor(w http.ResponseWriter, d time.Duration) {
	secs := int(d / time.Second)
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d, s-maxage=%d, stale-while-revalidate, public", secs, 3*secs))
}
