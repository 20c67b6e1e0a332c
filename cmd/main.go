package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/okian/ctfboard/internal/adapters/http/api"
	"github.com/okian/ctfboard/internal/adapters/http/swagger"
	"github.com/okian/ctfboard/internal/adapters/identity"
	"github.com/okian/ctfboard/internal/adapters/repository"
	"github.com/okian/ctfboard/internal/adapters/session"
	service "github.com/okian/ctfboard/internal/app"
	"github.com/okian/ctfboard/internal/config"
	"github.com/okian/ctfboard/internal/domain/failure"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/domain/scoring"
	"github.com/okian/ctfboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	redisPingTimeout  = 3 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("ctfboard: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LogFormat != "text" {
		if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	a, err := build(ctx, cfg, loggerInstance)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("protocol", cfg.Protocol),
			logger.String("ledger", cfg.LedgerBackend),
			logger.String("sessions", cfg.SessionBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a failed listener
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = a.Close(context.Background())
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "closing stores failed", logger.Error(err))
	}

	loggerInstance.Info(shutdownCtx, "server stopped")
	return nil
}

// application is the wired service with its HTTP handler.
type application struct {
	svc     *service.Service
	handler http.Handler
	closers []func() error
}

// Close releases the service and every backend opened by build.
func (a *application) Close(ctx context.Context) error {
	var errs []error
	if a.svc != nil {
		errs = append(errs, a.svc.Close(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// build wires stores, the service and the HTTP routes from cfg.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *application, err error) {
	a := &application{}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
		}
	}()

	store, err := openLedger(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.ChallengesFile != "" {
		challenges, err := repository.LoadCatalog(cfg.ChallengesFile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if err := repository.Seed(ctx, store, challenges); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info(ctx, "challenge catalog loaded", logger.Int("challenges", len(challenges)))
	}

	sessions, err := openSessions(ctx, cfg, a)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	opts := []service.Option{
		service.WithStore(store),
		service.WithSessionStore(sessions),
		service.WithVerifier(identity.NewStaticVerifier(
			identity.WithTokens(cfg.Tokens),
			identity.WithUnverified(cfg.UnverifiedUIDs...),
		)),
		service.WithInteractive(proof.NewInteractive([]byte(cfg.CombineContext))),
		service.WithScoring(scoring.New(scoring.WithParams(scoring.Params{
			K:         cfg.ScoringK,
			V:         cfg.ScoringV,
			MinPoints: cfg.ScoringMinPoints,
			MaxPoints: cfg.ScoringMaxPoints,
		}))),
		service.WithLogger(log.Named("service")),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithEventWindow(cfg.EventStart, cfg.EventEnd),
		service.WithSubscriptionStart(cfg.SubscriptionStart),
		service.WithCacheTTLs(cfg.ScoreCacheTTL, cfg.AuditCacheTTL, cfg.TeamsCacheTTL),
	}
	if cfg.ServerSecret != "" {
		sealer, err := session.NewSealer([]byte(cfg.ServerSecret))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, service.WithSealer(sealer))
	}
	a.svc = service.New(opts...)

	if cfg.TeamsFile != "" {
		if err := seedTeams(ctx, a.svc, cfg.TeamsFile, log); err != nil {
			return nil, err
		}
	}

	// HTTP routes.
	r := mux.NewRouter()

	// Register API docs under /api-docs
	swagger.Register(ctx, r)

	apiServer := api.NewServer(a.svc,
		api.WithProtocol(cfg.Protocol),
		api.WithCORSOrigins(cfg.CORSOrigins...),
		api.WithSubmitRate(cfg.SubmitRatePerSec, cfg.SubmitBurst),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, r)
	a.handler = apiServer.Handler(r)
	return a, nil
}

// seedTeams registers the roster through the service so the usual
// registration checks apply. Teams that already exist are skipped.
func seedTeams(ctx context.Context, svc *service.Service, path string, log logger.Logger) error {
	roster, err := repository.LoadRoster(path)
	if err != nil {
		return err
	}
	for _, entry := range roster {
		team, err := svc.RegisterTeam(ctx, entry.Token, entry.Name, entry.Countries)
		switch {
		case err == nil:
			log.Info(ctx, "team registered", logger.String("team", team.Name), logger.String("id", team.ID))
		case failure.KindOf(err) == failure.Internal:
			return fmt.Errorf("registering team %s: %w", entry.Name, err)
		default:
			log.Warn(ctx, "team not registered", logger.String("team", entry.Name), logger.String("reason", failure.MessageOf(err)))
		}
	}
	return nil
}

func openLedger(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		store, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN, repository.WithPostgresLogger(log))
		if err != nil {
			return nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func openSessions(ctx context.Context, cfg *config.Config, a *application) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis %s: %w", cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)
		return session.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return session.NewMemoryStore(), nil
	}
}
