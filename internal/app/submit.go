package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/ctfboard/internal/domain/failure"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/logger"
	"github.com/okian/ctfboard/pkg/metrics"
)

// attempt is an authorised submission target.
type attempt struct {
	uid       string
	team      model.Team
	challenge model.Challenge
}

// authorize runs the checks shared by every submission path: identity, event
// window, team, challenge, membership and the already-solved pre-check. The
// ledger still has the final say on duplicates.
func (s *Service) authorize(ctx context.Context, op, token, teamID, challengeID string) (attempt, error) {
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return attempt{}, err
	}
	if !s.inEventWindow() {
		return attempt{}, failure.SemanticErr(op, failure.MsgSubmissionsClosed)
	}
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return attempt{}, err
	}
	solved, err := s.store.SolvesOf(ctx, teamID)
	if err != nil {
		return attempt{}, err
	}
	challenge, err := s.store.Challenge(ctx, challengeID)
	if err != nil {
		return attempt{}, err
	}
	if !team.HasMember(id.UID) {
		return attempt{}, failure.AuthorizationErr(op, failure.MsgNotMember)
	}
	if _, ok := solved[challengeID]; ok {
		return attempt{}, failure.SemanticErr(op, failure.MsgAlreadySolved)
	}
	return attempt{uid: id.UID, team: team, challenge: challenge}, nil
}

// record stores an accepted proof and drops cached views.
func (s *Service) record(ctx context.Context, a attempt, stored string) (types.Solved, error) {
	set, err := s.store.RegisterSolve(ctx, a.team.ID, a.challenge.ID, stored)
	if err != nil {
		return nil, err
	}
	metrics.RecordSolve()
	s.Invalidate()
	s.logger.Info(ctx, "solve recorded",
		logger.String("team", a.team.ID),
		logger.String("challenge", a.challenge.ID),
		logger.String("variant", proof.VariantOf(stored)),
	)
	return types.Solved(set), nil
}

// SubmitSignedProof accepts a signed-hash proof for challengeID.
func (s *Service) SubmitSignedProof(ctx context.Context, token, teamID string, req types.SubmitRequest) (solved types.Solved, err error) {
	const op = "service.submit_signed"
	defer func() { metrics.RecordSubmission(proof.VariantSigned, outcome(err)) }()

	a, err := s.authorize(ctx, op, token, teamID, req.ChallengeID)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	if err := proof.VerifySignedHash(req.Proof, a.team.Name, a.challenge); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	solved, err = s.record(ctx, a, req.Proof)
	return solved, s.fail(ctx, op, err)
}

// BeginInteractive runs step 1: it stores the session and returns the server
// nonces.
func (s *Service) BeginInteractive(ctx context.Context, token, teamID, challengeID string, req types.Step1Request) (resp types.Step1Response, err error) {
	const op = "service.step1"
	defer func() {
		if err != nil {
			metrics.RecordSubmission(proof.VariantInteractive, outcome(err))
		}
	}()

	a, err := s.authorize(ctx, op, token, teamID, challengeID)
	if err != nil {
		return types.Step1Response{}, s.fail(ctx, op, err)
	}
	st, nonces, err := s.engine.Begin(a.challenge, req)
	if err != nil {
		return types.Step1Response{}, s.fail(ctx, op, err)
	}

	sessionID := sessionPrefix(teamID, challengeID) + uuid.NewString()
	raw, err := json.Marshal(st)
	if err != nil {
		return types.Step1Response{}, s.fail(ctx, op, err)
	}
	if s.sealer != nil {
		if raw, err = s.sealer.Seal(sessionID, raw); err != nil {
			return types.Step1Response{}, s.fail(ctx, op, err)
		}
	}
	if err := s.sessions.Set(ctx, sessionID, raw, s.sessionTTL); err != nil {
		return types.Step1Response{}, s.fail(ctx, op, fmt.Errorf("store session: %w", err))
	}
	metrics.RecordSession(metrics.SessionOpened)
	return types.Step1Response{SessionID: sessionID, ServerPublicNonce: nonces}, nil
}

// FinishInteractive runs step 2: it consumes the session, completes the
// multi-signature and records the resulting artifact.
func (s *Service) FinishInteractive(ctx context.Context, token, teamID, challengeID string, req types.Step2Request) (solved types.Solved, err error) {
	const op = "service.step2"
	defer func() { metrics.RecordSubmission(proof.VariantInteractive, outcome(err)) }()

	a, err := s.authorize(ctx, op, token, teamID, challengeID)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	if !ownsSession(req.SessionID, teamID, challengeID) {
		metrics.RecordSession(metrics.SessionRejected)
		return nil, failure.SemanticErr(op, failure.MsgInvalidSession)
	}
	raw, err := s.sessions.Take(ctx, req.SessionID)
	if err != nil {
		metrics.RecordSession(metrics.SessionMissing)
		return nil, s.fail(ctx, op, err)
	}
	metrics.RecordSession(metrics.SessionConsumed)
	if s.sealer != nil {
		if raw, err = s.sealer.Open(req.SessionID, raw); err != nil {
			return nil, s.fail(ctx, op, err)
		}
	}
	var st proof.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, failure.WrapKind(op, failure.Semantic, failure.MsgInvalidSession, err)
	}

	artifact, err := s.engine.Finish(a.challenge, st, req, teamID)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	solved, err = s.record(ctx, a, artifact.String())
	return solved, s.fail(ctx, op, err)
}

func sessionPrefix(teamID, challengeID string) string {
	return teamID + "_" + challengeID + "_"
}

// ownsSession reports whether id is the team and challenge prefix followed by
// a canonical uuid.
func ownsSession(id, teamID, challengeID string) bool {
	rest, ok := strings.CutPrefix(id, sessionPrefix(teamID, challengeID))
	if !ok {
		return false
	}
	u, err := uuid.Parse(rest)
	return err == nil && u.String() == rest
}
