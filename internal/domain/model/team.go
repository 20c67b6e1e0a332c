package model

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// Team is a registered team. Members holds identity-provider uids.
type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	Countries []string `json:"countries,omitempty"`
}

// TeamID derives the team id from its name.
func TeamID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}

// NewTeam builds a team whose ID is derived from name.
func NewTeam(name string, countries []string, members ...string) Team {
	return Team{
		ID:        TeamID(name),
		Name:      name,
		Members:   slices.Clone(members),
		Countries: slices.Clone(countries),
	}
}

// HasMember reports whether uid belongs to the team.
func (t Team) HasMember(uid string) bool {
	return uid != "" && slices.Contains(t.Members, uid)
}
