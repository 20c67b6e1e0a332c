package solver

import (
	"time"

	"github.com/okian/ctfboard/internal/domain/types"
)

// Config holds configuration for one solve run
type Config struct {
	BaseURL        string        // Base URL of the scoreboard
	Token          string        // Identity token sent as a bearer token
	TeamID         string        // Team submitting the solve
	ChallengeID    string        // Challenge to solve
	Flag           string        // Flag the proof is derived from
	Protocol       string        // "interactive" or "signed"
	CombineContext string        // Public combine context of the scoreboard
	Workers        int           // Concurrent attempts; more than one races the ledger
	Timeout        time.Duration // HTTP request timeout
	Verbose        bool          // Enable verbose logging
}

// Stats holds the outcome of a solve run
type Stats struct {
	Attempts  int
	Accepted  int
	Rejected  int
	Failed    int
	Solved    types.Solved
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
