package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ctfboard/internal/solver"
)

// Default configuration constants.
const (
	defaultURL         = "http://localhost:9080"
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	defaultDraftFile   = "challenges.draft.yaml"
	defaultCatalogFile = "challenges.yaml"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		solver.ShowHelp()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	var err error
	switch args[0] {
	case "solve":
		err = runSolve(ctx, args[1:])
	case "provision":
		err = runProvision(ctx, args[1:])
	case "help", "-h", "-help", "--help":
		solver.ShowHelp()
		return 0
	default:
		os.Stderr.WriteString("unknown command: " + args[0] + "\n")
		solver.ShowHelp()
		return 2
	}
	if err != nil {
		os.Stderr.WriteString("ctfctl " + args[0] + " failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}

func runSolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	var (
		baseURL   = fs.String("url", defaultURL, "Base URL of the scoreboard")
		token     = fs.String("token", os.Getenv("CTFBOARD_TOKEN"), "Identity token")
		team      = fs.String("team", "", "Team id")
		challenge = fs.String("challenge", "", "Challenge id")
		flagValue = fs.String("flag", os.Getenv("CTFBOARD_FLAG"), "Flag")
		protocol  = fs.String("protocol", solver.ProtocolInteractive, "interactive or signed")
		combine   = fs.String("context", os.Getenv("CTFBOARD_COMBINE_CONTEXT"), "Combine context published by the scoreboard")
		workers   = fs.Int("workers", 1, "Concurrent attempts")
		timeout   = fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = fs.String("log", "", "Also write the output to this file")
		verbose   = fs.Bool("verbose", false, "Log every attempt")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := solver.SetupLogging(*logFile); err != nil {
		return err
	}

	config := &solver.Config{
		BaseURL:        *baseURL,
		Token:          *token,
		TeamID:         *team,
		ChallengeID:    *challenge,
		Flag:           *flagValue,
		Protocol:       *protocol,
		CombineContext: *combine,
		Workers:        *workers,
		Timeout:        *timeout,
		Verbose:        *verbose,
	}
	_, err := solver.Run(ctx, config)
	return err
}

func runProvision(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	var (
		in      = fs.String("in", defaultDraftFile, "Draft file with flags")
		out     = fs.String("out", defaultCatalogFile, "Catalog file for the scoreboard")
		combine = fs.String("context", os.Getenv("CTFBOARD_COMBINE_CONTEXT"), "Combine context")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := solver.SetupLogging(""); err != nil {
		return err
	}

	_, err := solver.Provision(ctx, &solver.ProvisionConfig{Input: *in, Output: *out, CombineContext: *combine})
	return err
}
