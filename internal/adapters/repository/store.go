// Package repository persists solves, challenges and teams.
package repository

import (
	"context"

	"github.com/okian/ctfboard/internal/domain/model"
)

// Ledger records at most one solve per (team, challenge).
type Ledger interface {
	// RegisterSolve records a solve stamped with the current time and
	// returns {challengeID: moment}. A second solve for the same pair fails
	// with ErrAlreadySolved; the check is atomic in the storage layer.
	RegisterSolve(ctx context.Context, teamID, challengeID, proof string) (model.SolveSet, error)

	// SolvesOf returns the solves of one team, empty when it has none.
	SolvesOf(ctx context.Context, teamID string) (model.SolveSet, error)

	// AllSolves returns every team's solves.
	AllSolves(ctx context.Context) (model.Ledger, error)

	// SolvesWithProof returns every solve ordered by moment.
	SolvesWithProof(ctx context.Context) ([]model.Solve, error)
}

// ChallengeStore gives read access to published challenges. Upsert is used
// by seeding and provisioning only.
type ChallengeStore interface {
	// Challenge returns ErrChallengeNotFound for unknown ids.
	Challenge(ctx context.Context, id string) (model.Challenge, error)
	// Challenges returns all challenges ordered by id.
	Challenges(ctx context.Context) ([]model.Challenge, error)
	UpsertChallenge(ctx context.Context, c model.Challenge) error
}

// TeamStore holds registered teams.
type TeamStore interface {
	// Team returns ErrTeamNotFound for unknown ids.
	Team(ctx context.Context, id string) (model.Team, error)
	// Teams returns all teams ordered by name.
	Teams(ctx context.Context) ([]model.Team, error)
	// RegisterTeam stores t, failing with ErrTeamExists when its id is taken
	// and ErrAlreadyMember when one of its members is on another team.
	RegisterTeam(ctx context.Context, t model.Team) (model.Team, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	Ledger
	ChallengeStore
	TeamStore
	Close() error
}
