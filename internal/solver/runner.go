package solver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/logger"
)

// Errors returned before any proof is submitted.
var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrTeamUnknown     = errors.New("team is not registered")
	ErrNotAccepted     = errors.New("no attempt was accepted")
)

// attemptFunc submits one proof and returns the recorded solves.
type attemptFunc func(ctx context.Context) (types.Solved, error)

// Run fetches the challenge, derives the proof from the flag and submits it
// from config.Workers concurrent attempts. A wrong flag fails before any
// proof request is made.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if config.Workers < 1 {
		config.Workers = 1
	}

	logger.Get().Info(ctx, "starting solve",
		logger.String("baseURL", config.BaseURL),
		logger.String("team", config.TeamID),
		logger.String("challenge", config.ChallengeID),
		logger.String("protocol", config.Protocol),
		logger.Int("workers", config.Workers))

	client := NewClient(config.BaseURL, config.Token, config.Timeout)
	chal, err := client.Challenge(ctx, config.ChallengeID)
	if err != nil {
		return stats, fmt.Errorf("fetching challenge: %w", err)
	}

	attempt, err := prepare(ctx, client, config, chal)
	if err != nil {
		return stats, err
	}

	submitAttempts(ctx, config, attempt, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.Accepted == 0 {
		return stats, ErrNotAccepted
	}
	return stats, nil
}

// prepare checks the flag locally and returns the submission for the
// configured protocol.
func prepare(ctx context.Context, client *Client, config *Config, chal model.Challenge) (attemptFunc, error) {
	switch config.Protocol {
	case ProtocolSigned:
		name, err := teamName(ctx, client, config.TeamID)
		if err != nil {
			return nil, err
		}
		p, err := proof.NewSignedHashProof(name, config.Flag, chal)
		if err != nil {
			return nil, fmt.Errorf("deriving proof: %w", err)
		}
		req := types.SubmitRequest{ChallengeID: chal.ID, Proof: p}
		return func(ctx context.Context) (types.Solved, error) {
			return client.SubmitSigned(ctx, config.TeamID, req)
		}, nil

	case ProtocolInteractive:
		// Fail fast on a wrong flag; each attempt draws its own nonces.
		if _, err := proof.NewInteractiveClient(config.Flag, chal, []byte(config.CombineContext), nil); err != nil {
			return nil, fmt.Errorf("deriving client key: %w", err)
		}
		return func(ctx context.Context) (types.Solved, error) {
			cl, err := proof.NewInteractiveClient(config.Flag, chal, []byte(config.CombineContext), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Step1(ctx, config.TeamID, chal.ID, cl.Step1())
			if err != nil {
				return nil, err
			}
			req, err := cl.Step2(resp, config.TeamID)
			if err != nil {
				return nil, err
			}
			return client.Step2(ctx, config.TeamID, chal.ID, req)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, config.Protocol)
}

func teamName(ctx context.Context, client *Client, teamID string) (string, error) {
	teams, err := client.Teams(ctx)
	if err != nil {
		return "", fmt.Errorf("listing teams: %w", err)
	}
	for _, t := range teams {
		if t.ID == teamID {
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTeamUnknown, teamID)
}

// submitAttempts runs the attempts concurrently using a worker pool.
func submitAttempts(ctx context.Context, config *Config, attempt attemptFunc, stats *Stats) {
	var (
		accepted int64
		rejected int64
		failed   int64
		mu       sync.Mutex
		wg       sync.WaitGroup
	)

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			solved, err := attempt(ctx)
			result := classify(err)
			switch result {
			case outcomeAccepted:
				atomic.AddInt64(&accepted, 1)
				mu.Lock()
				stats.Solved = solved
				mu.Unlock()
			case outcomeRejected:
				atomic.AddInt64(&rejected, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}

			if config.Verbose {
				log.Printf("worker %d: %s (%v)", workerID, result, err)
			}
		}(i)
	}
	wg.Wait()

	stats.Attempts = config.Workers
	stats.Accepted = int(atomic.LoadInt64(&accepted))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	stats.Failed = int(atomic.LoadInt64(&failed))
}

// classify maps an attempt error to its outcome. Anything the scoreboard
// answered with a client error counts as a rejection.
func classify(err error) string {
	if err == nil {
		return outcomeAccepted
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
		return outcomeRejected
	}
	return outcomeFailed
}

// displayFinalStats prints the run summary.
func displayFinalStats(stats *Stats) {
	log.Printf(`Solve completed in %v:
   Attempts: %d
   Accepted: %d
   Rejected: %d
   Failed: %d
`, stats.Duration, stats.Attempts, stats.Accepted, stats.Rejected, stats.Failed)
	for id, moment := range stats.Solved {
		log.Printf("   solved %s at %s", id, time.UnixMilli(moment).UTC().Format(time.RFC3339))
	}
}
