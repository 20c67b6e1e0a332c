package solver

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/okian/ctfboard/pkg/logger"
)

// SetupLogging configures logging to the console and, when logFile is set,
// to that file as well.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if logFile == "" {
		return nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for ctfctl.
func ShowHelp() {
	os.Stdout.WriteString(`ctfctl
======

Solver and provisioning tool for the CTF scoreboard.

Usage:
  ctfctl solve [options]
  ctfctl provision [options]

solve options:
  -url string
        Base URL of the scoreboard (default "http://localhost:9080")
  -token string
        Identity token (default $CTFBOARD_TOKEN)
  -team string
        Team id
  -challenge string
        Challenge id
  -flag string
        Flag (default $CTFBOARD_FLAG)
  -protocol string
        "interactive" or "signed" (default "interactive")
  -context string
        Combine context published by the scoreboard (default $CTFBOARD_COMBINE_CONTEXT)
  -workers int
        Concurrent attempts (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Also write the output to this file
  -verbose
        Log every attempt

provision options:
  -in string
        Draft file with flags (default "challenges.draft.yaml")
  -out string
        Catalog file for the scoreboard (default "challenges.yaml")
  -context string
        Combine context; empty provisions signed-hash material only

Examples:
  # Solve interactively
  ctfctl solve -team 3c9a... -challenge warmup -flag 'CTF{...}' -context ctfboard

  # Check that concurrent submissions are accepted exactly once
  ctfctl solve -protocol signed -workers 16 -team 3c9a... -challenge warmup -flag 'CTF{...}'

  # Build the catalog
  ctfctl provision -in drafts.yaml -out challenges.yaml -context ctfboard
`)
}
