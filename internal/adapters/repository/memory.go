package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/pkg/metrics"
)

const storeMemory = "memory"

// MemoryStore is an in-process Store. A single mutex serialises writes, which
// makes the (team, challenge) uniqueness check and insert atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	solves     map[string]map[string]model.Solve
	challenges map[string]model.Challenge
	teams      map[string]model.Team
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:        time.Now,
		solves:     make(map[string]map[string]model.Solve),
		challenges: make(map[string]model.Challenge),
		teams:      make(map[string]model.Team),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

// RegisterSolve implements Ledger.
func (s *MemoryStore) RegisterSolve(_ context.Context, teamID, challengeID, proof string) (model.SolveSet, error) {
	defer observe(storeMemory, "register_solve", time.Now())
	if teamID == "" || challengeID == "" {
		return nil, ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.solves[teamID]
	if !ok {
		set = make(map[string]model.Solve)
		s.solves[teamID] = set
	}
	if _, dup := set[challengeID]; dup {
		return nil, ErrAlreadySolved
	}
	moment := s.now().UnixMilli()
	set[challengeID] = model.Solve{TeamID: teamID, ChallengeID: challengeID, Moment: moment, Proof: proof}
	return model.SolveSet{challengeID: moment}, nil
}

// SolvesOf implements Ledger.
func (s *MemoryStore) SolvesOf(_ context.Context, teamID string) (model.SolveSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.SolveSet, len(s.solves[teamID]))
	for id, solve := range s.solves[teamID] {
		out[id] = solve.Moment
	}
	return out, nil
}

// AllSolves implements Ledger.
func (s *MemoryStore) AllSolves(_ context.Context) (model.Ledger, error) {
	defer observe(storeMemory, "all_solves", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.Ledger, len(s.solves))
	for teamID, set := range s.solves {
		if len(set) == 0 {
			continue
		}
		m := make(model.SolveSet, len(set))
		for id, solve := range set {
			m[id] = solve.Moment
		}
		out[teamID] = m
	}
	return out, nil
}

// SolvesWithProof implements Ledger.
func (s *MemoryStore) SolvesWithProof(_ context.Context) ([]model.Solve, error) {
	s.mu.RLock()
	out := make([]model.Solve, 0, len(s.solves))
	for _, set := range s.solves {
		for _, solve := range set {
			out = append(out, solve)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, compareSolves)
	return out, nil
}

// Challenge implements ChallengeStore.
func (s *MemoryStore) Challenge(_ context.Context, id string) (model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return model.Challenge{}, ErrChallengeNotFound
	}
	return c, nil
}

// Challenges implements ChallengeStore.
func (s *MemoryStore) Challenges(_ context.Context) ([]model.Challenge, error) {
	s.mu.RLock()
	out := make([]model.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		out = append(out, c)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Challenge) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// UpsertChallenge implements ChallengeStore.
func (s *MemoryStore) UpsertChallenge(_ context.Context, c model.Challenge) error {
	if c.ID == "" {
		return ErrInvalidRecord
	}
	s.mu.Lock()
	s.challenges[c.ID] = c
	s.mu.Unlock()
	return nil
}

// Team implements TeamStore.
func (s *MemoryStore) Team(_ context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, ErrTeamNotFound
	}
	return t, nil
}

// Teams implements TeamStore.
func (s *MemoryStore) Teams(_ context.Context) ([]model.Team, error) {
	s.mu.RLock()
	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Team) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// RegisterTeam implements TeamStore.
func (s *MemoryStore) RegisterTeam(_ context.Context, t model.Team) (model.Team, error) {
	if t.Name == "" {
		return model.Team{}, ErrInvalidRecord
	}
	t.ID = model.TeamID(t.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; ok {
		return model.Team{}, ErrTeamExists
	}
	for _, other := range s.teams {
		for _, uid := range t.Members {
			if other.HasMember(uid) {
				return model.Team{}, ErrAlreadyMember
			}
		}
	}
	s.teams[t.ID] = t
	return t, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func compareSolves(a, b model.Solve) int {
	return cmp.Or(
		cmp.Compare(a.Moment, b.Moment),
		strings.Compare(a.TeamID, b.TeamID),
		strings.Compare(a.ChallengeID, b.ChallengeID),
	)
}

func observe(store, op string, start time.Time) {
	metrics.RecordStoreLatency(store, op, float64(time.Since(start).Microseconds())/1000)
}
