package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/ctfboard/internal/adapters/repository"
	"github.com/okian/ctfboard/internal/domain/failure"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/metrics"
)

// Scoreboard returns the ranked standings.
func (s *Service) Scoreboard(ctx context.Context) (types.Scoreboard, error) {
	const op = "service.scoreboard"
	board, err := s.scoreboard.get(ctx, s.computeScoreboard)
	if err != nil {
		return types.Scoreboard{}, s.fail(ctx, op, err)
	}
	return board, nil
}

func (s *Service) computeScoreboard(ctx context.Context) (types.Scoreboard, error) {
	start := time.Now()
	challenges, err := s.store.Challenges(ctx)
	if err != nil {
		return types.Scoreboard{}, err
	}
	ledger, err := s.store.AllSolves(ctx)
	if err != nil {
		return types.Scoreboard{}, err
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return types.Scoreboard{}, err
	}

	ids := make([]string, len(challenges))
	for i, c := range challenges {
		ids[i] = c.ID
	}
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	board := s.scorer.Compute(ids, ledger, names)

	metrics.RecordScoreboardDuration(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateTeamsRanked(len(board.Standings))
	return board, nil
}

// Audit lists every recorded solve with its proof, re-verified against the
// current challenge parameters.
func (s *Service) Audit(ctx context.Context) ([]types.AuditEntry, error) {
	const op = "service.audit"
	entries, err := s.audit.get(ctx, s.computeAudit)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return entries, nil
}

func (s *Service) computeAudit(ctx context.Context) ([]types.AuditEntry, error) {
	solves, err := s.store.SolvesWithProof(ctx)
	if err != nil {
		return nil, err
	}
	challenges, err := s.store.Challenges(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return nil, err
	}
	byChallenge := make(map[string]model.Challenge, len(challenges))
	for _, c := range challenges {
		byChallenge[c.ID] = c
	}
	byTeam := make(map[string]model.Team, len(teams))
	for _, t := range teams {
		byTeam[t.ID] = t
	}

	out := make([]types.AuditEntry, len(solves))
	for i, sv := range solves {
		out[i] = types.AuditEntry{
			TeamID:      sv.TeamID,
			ChallengeID: sv.ChallengeID,
			Moment:      sv.Moment,
			Proof:       sv.Proof,
		}
		c, okc := byChallenge[sv.ChallengeID]
		t, okt := byTeam[sv.TeamID]
		if okc && okt {
			out[i].Verified = proof.VerifyStored(sv.Proof, t, c) == nil
		}
	}
	return out, nil
}

// Challenges returns the public view of every challenge.
func (s *Service) Challenges(ctx context.Context) ([]model.Challenge, error) {
	cs, err := s.store.Challenges(ctx)
	if err != nil {
		return nil, s.fail(ctx, "service.challenges", err)
	}
	out := make([]model.Challenge, len(cs))
	for i, c := range cs {
		out[i] = c.Public()
	}
	return out, nil
}

// Challenge returns the public view of one challenge.
func (s *Service) Challenge(ctx context.Context, id string) (model.Challenge, error) {
	const op = "service.challenge"
	c, err := s.store.Challenge(ctx, id)
	if errors.Is(err, repository.ErrChallengeNotFound) {
		return model.Challenge{}, failure.WrapKind(op, failure.NotFound, failure.MsgNotFound, err)
	}
	if err != nil {
		return model.Challenge{}, s.fail(ctx, op, err)
	}
	return c.Public(), nil
}

// Teams lists registered teams without their members.
func (s *Service) Teams(ctx context.Context) ([]types.TeamSummary, error) {
	out, err := s.teams.get(ctx, func(ctx context.Context) ([]types.TeamSummary, error) {
		teams, err := s.store.Teams(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]types.TeamSummary, len(teams))
		for i, t := range teams {
			countries := t.Countries
			if countries == nil {
				countries = []string{}
			}
			out[i] = types.TeamSummary{ID: t.ID, Name: t.Name, Countries: countries}
		}
		return out, nil
	})
	if err != nil {
		return nil, s.fail(ctx, "service.teams", err)
	}
	return out, nil
}
