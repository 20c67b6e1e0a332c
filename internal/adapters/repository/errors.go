package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrAlreadySolved     = errors.New("challenge already solved by team")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamExists        = errors.New("team already exists")
	ErrAlreadyMember     = errors.New("member already belongs to a team")
	ErrInvalidRecord     = errors.New("invalid record")
)
