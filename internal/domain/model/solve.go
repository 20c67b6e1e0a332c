package model

// Solve records a team's successful submission for a challenge. Moment is in
// epoch milliseconds and Proof is the artifact the submission was accepted
// with.
type Solve struct {
	TeamID      string `json:"teamId"`
	ChallengeID string `json:"challengeId"`
	Moment      int64  `json:"moment"`
	Proof       string `json:"proof"`
}

// SolveSet maps challenge id to solve moment for a single team.
type SolveSet map[string]int64

// Ledger maps team id to that team's solves.
type Ledger map[string]SolveSet
