// Package scoring turns solve counts into point values and ranks teams.
//
// A challenge is worth less the more teams solve it:
//
//	points(n) = max(min, floor(max - K*log2((n+V)/(1+V))))
//
// The upper bound is not clamped, so a challenge nobody has solved yet is
// worth slightly more than MaxPoints.
package scoring

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/types"
)

// Default decay parameters.
const (
	DefaultK         = 80
	DefaultV         = 3
	DefaultMinPoints = 50
	DefaultMaxPoints = 500
)

// Params configures the decay curve.
type Params struct {
	K         float64
	V         float64
	MinPoints float64
	MaxPoints float64
}

// DefaultParams returns the standard decay curve.
func DefaultParams() Params {
	return Params{K: DefaultK, V: DefaultV, MinPoints: DefaultMinPoints, MaxPoints: DefaultMaxPoints}
}

// Valid reports whether p describes a usable curve.
func (p Params) Valid() bool {
	return p.K >= 0 && p.V > 0 && p.MinPoints >= 0 && p.MaxPoints >= p.MinPoints
}

// Points returns the value of a challenge solved by n teams.
func (p Params) Points(n int) int {
	decay := p.K * math.Log2((float64(n)+p.V)/(1+p.V))
	return int(math.Trunc(math.Max(p.MinPoints, math.Floor(p.MaxPoints-decay))))
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams replaces the decay curve. Invalid params are ignored.
func WithParams(p Params) Option {
	return func(e *Engine) {
		if p.Valid() {
			e.params = p
		}
	}
}

// Engine computes standings. It holds no state besides its parameters and is
// safe for concurrent use.
type Engine struct {
	params Params
}

// New creates an Engine with the default curve unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{params: DefaultParams()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the active curve.
func (e *Engine) Params() Params { return e.params }

// Compute ranks every team with at least one solve. challenges lists all
// challenge ids and becomes the Tasks column; names maps team id to display
// name and falls back to the id.
func (e *Engine) Compute(challenges []string, solves model.Ledger, names map[string]string) types.Scoreboard {
	counts := make(map[string]int)
	for _, set := range solves {
		for challengeID := range set {
			counts[challengeID]++
		}
	}

	type row struct {
		types.Standing
		teamID string
	}
	rows := make([]row, 0, len(solves))
	for teamID, set := range solves {
		if len(set) == 0 {
			continue
		}
		r := row{teamID: teamID, Standing: types.Standing{
			Team:      teamID,
			TaskStats: make(map[string]types.TaskStat, len(set)),
		}}
		if name, ok := names[teamID]; ok && name != "" {
			r.Team = name
		}
		for challengeID, moment := range set {
			pts := e.params.Points(counts[challengeID])
			r.TaskStats[challengeID] = types.TaskStat{Points: pts, Time: moment}
			r.Score += pts
			r.LastAccept = max(r.LastAccept, moment)
		}
		rows = append(rows, r)
	}

	slices.SortFunc(rows, func(a, b row) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.LastAccept, b.LastAccept),
			cmp.Compare(a.Team, b.Team),
			cmp.Compare(a.teamID, b.teamID),
		)
	})

	board := types.Scoreboard{
		Tasks:     slices.Sorted(slices.Values(challenges)),
		Standings: make([]types.Standing, len(rows)),
	}
	for i, r := range rows {
		r.Pos = i + 1
		board.Standings[i] = r.Standing
	}
	return board
}
