package service

import (
	"context"
	"strings"

	"github.com/okian/ctfboard/internal/domain/failure"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/pkg/logger"
)

// RegisterTeam creates a team whose only member is the caller.
func (s *Service) RegisterTeam(ctx context.Context, token, name string, countries []string) (model.Team, error) {
	const op = "service.register_team"

	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return model.Team{}, s.fail(ctx, op, err)
	}
	if !id.Verified {
		return model.Team{}, failure.SemanticErr(op, failure.MsgEmailNotVerified)
	}
	if !s.subscriptionStart.IsZero() && s.now().Before(s.subscriptionStart) {
		return model.Team{}, failure.SemanticErr(op, failure.MsgSubscriptionsDisabled)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, failure.ValidationErr(op, "name is required")
	}

	// The store rejects a uid that is already on a team.
	team, err := s.store.RegisterTeam(ctx, model.NewTeam(name, countries, id.UID))
	if err != nil {
		return model.Team{}, s.fail(ctx, op, err)
	}
	s.teams.reset()
	s.logger.Info(ctx, "team registered", logger.String("team", team.ID), logger.String("name", team.Name))
	return team, nil
}
