package service

import (
	"context"
	"errors"

	"github.com/okian/ctfboard/internal/adapters/repository"
	"github.com/okian/ctfboard/internal/adapters/session"
	"github.com/okian/ctfboard/internal/domain/failure"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/pkg/flagkey"
	"github.com/okian/ctfboard/pkg/logger"
	"github.com/okian/ctfboard/pkg/metrics"
	"github.com/okian/ctfboard/pkg/musig"
)

// classify maps adapter and protocol errors onto the failure taxonomy.
// Errors already classified keep their kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *failure.Error
	switch {
	case errors.As(err, &fe):
		return failure.Wrap(op, err)
	case errors.Is(err, proof.ErrChallenge):
		return failure.WrapKind(op, failure.Internal, "", err)
	case errors.Is(err, proof.ErrInvalidProof),
		errors.Is(err, flagkey.ErrInvalidInput),
		errors.Is(err, musig.ErrInvalidInput),
		errors.Is(err, musig.ErrNotSigner):
		return failure.WrapKind(op, failure.Semantic, failure.MsgInvalidProof, err)
	case errors.Is(err, proof.ErrNotInteractive),
		errors.Is(err, repository.ErrChallengeNotFound):
		return failure.WrapKind(op, failure.Semantic, failure.MsgInvalidChallenge, err)
	case errors.Is(err, repository.ErrAlreadySolved):
		return failure.WrapKind(op, failure.Semantic, failure.MsgAlreadySolved, err)
	case errors.Is(err, repository.ErrTeamNotFound):
		return failure.WrapKind(op, failure.NotFound, failure.MsgNotFound, err)
	case errors.Is(err, repository.ErrTeamExists):
		return failure.WrapKind(op, failure.Semantic, failure.MsgTeamExists, err)
	case errors.Is(err, repository.ErrAlreadyMember):
		return failure.WrapKind(op, failure.Semantic, failure.MsgAlreadyMember, err)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrSealed):
		return failure.WrapKind(op, failure.Semantic, failure.MsgInvalidSession, err)
	}
	return failure.Wrap(op, err)
}

// fail classifies err, logs internal failures and counts them.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	err = classify(op, err)
	if failure.KindOf(err) == failure.Internal {
		s.logger.Error(ctx, "operation failed", logger.String("op", op), logger.Error(err))
		metrics.RecordErrorByComponent("service", op)
	}
	return err
}

// outcome is the submission metric label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case failure.Is(err, failure.Semantic, failure.MsgInvalidProof):
		return metrics.OutcomeInvalid
	case failure.Is(err, failure.Semantic, failure.MsgAlreadySolved):
		return metrics.OutcomeAlreadySolved
	case failure.KindOf(err) == failure.Internal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
