package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/pkg/logger"
)

const (
	storePostgres = "postgres"

	// uniqueViolation is the SQLSTATE of a unique constraint failure.
	uniqueViolation = "23505"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id VARCHAR(64) PRIMARY KEY,
		name TEXT NOT NULL,
		countries TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS team_members (
		team_id VARCHAR(64) NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		uid TEXT NOT NULL,
		PRIMARY KEY (team_id, uid)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS team_members_uid_key ON team_members(uid)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id VARCHAR(255) PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		public_key TEXT NOT NULL DEFAULT '',
		salt TEXT NOT NULL DEFAULT '',
		ops_limit BIGINT NOT NULL DEFAULT 0,
		mem_limit BIGINT NOT NULL DEFAULT 0,
		combined_public_key TEXT NOT NULL DEFAULT '',
		server_public_key TEXT NOT NULL DEFAULT '',
		server_private_key TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS solves (
		team_id VARCHAR(64) NOT NULL,
		challenge_id VARCHAR(255) NOT NULL,
		moment BIGINT NOT NULL,
		proof TEXT NOT NULL DEFAULT '',
		CONSTRAINT solves_team_challenge_key UNIQUE (team_id, challenge_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_solves_moment ON solves(moment)`,
}

// PostgresStore is a Store backed by PostgreSQL. Solve uniqueness is the
// table's UNIQUE constraint.
type PostgresStore struct {
	db           *sql.DB
	now          func() time.Time
	queryTimeout time.Duration
	log          logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens dsn, checks connectivity and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := newPostgresStore(db, opts...)
	pingCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	s.log.Info(ctx, "postgres store ready")
	return s, nil
}

func newPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:           db,
		now:          time.Now,
		queryTimeout: 5 * time.Second,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("postgres")
	return s
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

func (s *PostgresStore) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// RegisterSolve implements Ledger.
func (s *PostgresStore) RegisterSolve(ctx context.Context, teamID, challengeID, proof string) (model.SolveSet, error) {
	defer observe(storePostgres, "register_solve", time.Now())
	if teamID == "" || challengeID == "" {
		return nil, ErrInvalidRecord
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	moment := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO solves (team_id, challenge_id, moment, proof) VALUES ($1, $2, $3, $4)`,
		teamID, challengeID, moment, proof)
	if isUniqueViolation(err) {
		return nil, ErrAlreadySolved
	}
	if err != nil {
		return nil, fmt.Errorf("inserting solve: %w", err)
	}
	return model.SolveSet{challengeID: moment}, nil
}

// SolvesOf implements Ledger.
func (s *PostgresStore) SolvesOf(ctx context.Context, teamID string) (model.SolveSet, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT challenge_id, moment FROM solves WHERE team_id = $1`, teamID)
	if err != nil {
		return nil, fmt.Errorf("querying solves: %w", err)
	}
	defer rows.Close()

	out := model.SolveSet{}
	for rows.Next() {
		var id string
		var moment int64
		if err := rows.Scan(&id, &moment); err != nil {
			return nil, fmt.Errorf("scanning solve: %w", err)
		}
		out[id] = moment
	}
	return out, rows.Err()
}

// AllSolves implements Ledger.
func (s *PostgresStore) AllSolves(ctx context.Context) (model.Ledger, error) {
	defer observe(storePostgres, "all_solves", time.Now())
	solves, err := s.querySolves(ctx, `SELECT team_id, challenge_id, moment, '' FROM solves`)
	if err != nil {
		return nil, err
	}
	out := model.Ledger{}
	for _, sv := range solves {
		if out[sv.TeamID] == nil {
			out[sv.TeamID] = model.SolveSet{}
		}
		out[sv.TeamID][sv.ChallengeID] = sv.Moment
	}
	return out, nil
}

// SolvesWithProof implements Ledger.
func (s *PostgresStore) SolvesWithProof(ctx context.Context) ([]model.Solve, error) {
	return s.querySolves(ctx,
		`SELECT team_id, challenge_id, moment, proof FROM solves ORDER BY moment, team_id, challenge_id`)
}

func (s *PostgresStore) querySolves(ctx context.Context, q string) ([]model.Solve, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying solves: %w", err)
	}
	defer rows.Close()

	var out []model.Solve
	for rows.Next() {
		var sv model.Solve
		if err := rows.Scan(&sv.TeamID, &sv.ChallengeID, &sv.Moment, &sv.Proof); err != nil {
			return nil, fmt.Errorf("scanning solve: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

const challengeColumns = `id, name, public_key, salt, ops_limit, mem_limit, combined_public_key, server_public_key, server_private_key`

func scanChallenge(row interface{ Scan(...any) error }) (model.Challenge, error) {
	var c model.Challenge
	var ops, mem int64
	err := row.Scan(&c.ID, &c.Name, &c.PublicKey, &c.Salt, &ops, &mem,
		&c.CombinedPublicKey, &c.ServerPublicKey, &c.ServerPrivateKey)
	c.OpsLimit, c.MemLimit = uint64(ops), uint64(mem)
	return c, err
}

// Challenge implements ChallengeStore.
func (s *PostgresStore) Challenge(ctx context.Context, id string) (model.Challenge, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	c, err := scanChallenge(s.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return model.Challenge{}, fmt.Errorf("querying challenge: %w", err)
	}
	return c, nil
}

// Challenges implements ChallengeStore.
func (s *PostgresStore) Challenges(ctx context.Context) ([]model.Challenge, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying challenges: %w", err)
	}
	defer rows.Close()

	var out []model.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertChallenge implements ChallengeStore.
func (s *PostgresStore) UpsertChallenge(ctx context.Context, c model.Challenge) error {
	if c.ID == "" {
		return ErrInvalidRecord
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO challenges (`+challengeColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		public_key = EXCLUDED.public_key,
		salt = EXCLUDED.salt,
		ops_limit = EXCLUDED.ops_limit,
		mem_limit = EXCLUDED.mem_limit,
		combined_public_key = EXCLUDED.combined_public_key,
		server_public_key = EXCLUDED.server_public_key,
		server_private_key = EXCLUDED.server_private_key`,
		c.ID, c.Name, c.PublicKey, c.Salt, int64(c.OpsLimit), int64(c.MemLimit),
		c.CombinedPublicKey, c.ServerPublicKey, c.ServerPrivateKey)
	if err != nil {
		return fmt.Errorf("upserting challenge: %w", err)
	}
	return nil
}

const teamQuery = `
	SELECT t.id, t.name, t.countries,
		COALESCE(array_agg(m.uid ORDER BY m.uid) FILTER (WHERE m.uid IS NOT NULL), '{}')
	FROM teams t LEFT JOIN team_members m ON m.team_id = t.id`

func scanTeam(row interface{ Scan(...any) error }) (model.Team, error) {
	var t model.Team
	err := row.Scan(&t.ID, &t.Name, pq.Array(&t.Countries), pq.Array(&t.Members))
	return t, err
}

// Team implements TeamStore.
func (s *PostgresStore) Team(ctx context.Context, id string) (model.Team, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	t, err := scanTeam(s.db.QueryRowContext(ctx, teamQuery+` WHERE t.id = $1 GROUP BY t.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, ErrTeamNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("querying team: %w", err)
	}
	return t, nil
}

// Teams implements TeamStore.
func (s *PostgresStore) Teams(ctx context.Context) ([]model.Team, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, teamQuery+` GROUP BY t.id ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RegisterTeam implements TeamStore.
func (s *PostgresStore) RegisterTeam(ctx context.Context, t model.Team) (model.Team, error) {
	if t.Name == "" {
		return model.Team{}, ErrInvalidRecord
	}
	t.ID = model.TeamID(t.Name)
	if t.Countries == nil {
		t.Countries = []string{}
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Team{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO teams (id, name, countries) VALUES ($1, $2, $3)`,
		t.ID, t.Name, pq.Array(t.Countries))
	if isUniqueViolation(err) {
		return model.Team{}, ErrTeamExists
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("inserting team: %w", err)
	}
	// team_members_uid_key keeps each uid on a single team.
	for _, uid := range t.Members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, uid) VALUES ($1, $2) ON CONFLICT (team_id, uid) DO NOTHING`, t.ID, uid)
		if isUniqueViolation(err) {
			return model.Team{}, ErrAlreadyMember
		}
		if err != nil {
			return model.Team{}, fmt.Errorf("inserting member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Team{}, fmt.Errorf("committing team: %w", err)
	}
	return t, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
