package repository

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/ctfboard/internal/domain/model"
)

// catalog is the layout of a challenge catalog file:
//
//	challenges:
//	  - id: warmup
//	    name: Warm up
//	    public_key: <base64>
//	    salt: <base64>
//	    ops_limit: 2
//	    mem_limit: 67108864
type catalog struct {
	Challenges []model.Challenge `koanf:"challenges"`
}

// LoadCatalog reads challenges from a YAML file.
func LoadCatalog(path string) ([]model.Challenge, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	var c catalog
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(c.Challenges))
	for i, ch := range c.Challenges {
		if ch.ID == "" {
			return nil, fmt.Errorf("%w: catalog entry %d has no id", ErrInvalidRecord, i)
		}
		if _, dup := seen[ch.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate challenge id %q", ErrInvalidRecord, ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return c.Challenges, nil
}

// Seed upserts every challenge into store.
func Seed(ctx context.Context, store ChallengeStore, challenges []model.Challenge) error {
	for _, c := range challenges {
		if err := store.UpsertChallenge(ctx, c); err != nil {
			return fmt.Errorf("seeding challenge %s: %w", c.ID, err)
		}
	}
	return nil
}

// RosterEntry is one team of a roster file. Token identifies the member that
// registers the team.
type RosterEntry struct {
	Name      string   `koanf:"name"`
	Token     string   `koanf:"token"`
	Countries []string `koanf:"countries"`
}

// LoadRoster reads a team roster from a YAML file:
//
//	teams:
//	  - name: red
//	    token: tok-alice
//	    countries: [BR]
func LoadRoster(path string) ([]RosterEntry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading roster %s: %w", path, err)
	}
	var r struct {
		Teams []RosterEntry `koanf:"teams"`
	}
	if err := k.UnmarshalWithConf("", &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding roster %s: %w", path, err)
	}
	for i, t := range r.Teams {
		if t.Name == "" || t.Token == "" {
			return nil, fmt.Errorf("%w: roster entry %d needs a name and a token", ErrInvalidRecord, i)
		}
	}
	return r.Teams, nil
}
