package solver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/proof"
	"github.com/okian/ctfboard/pkg/logger"
)

// ErrMissingFlag is returned for a draft entry without a flag.
var ErrMissingFlag = errors.New("challenge has no flag")

// Derivation defaults for draft entries that leave them out.
const (
	defaultOpsLimit = 2
	defaultMemLimit = 64 << 20
)

// draft is one entry of a provisioning file: the catalog layout plus the
// flag. Flags never reach the output.
type draft struct {
	ID       string `koanf:"id"`
	Name     string `koanf:"name"`
	Flag     string `koanf:"flag"`
	Salt     string `koanf:"salt"`
	OpsLimit uint64 `koanf:"ops_limit"`
	MemLimit uint64 `koanf:"mem_limit"`
}

// ProvisionConfig holds configuration for catalog provisioning
type ProvisionConfig struct {
	Input          string // Draft file with flags
	Output         string // Catalog file loaded by the scoreboard
	CombineContext string // Empty provisions signed-hash material only
}

// Provision turns a draft file into a challenge catalog. Each challenge gets
// its salt (when missing), its Ed25519 public key and, with a combine
// context, a fresh server key and the combined public key.
func Provision(ctx context.Context, config *ProvisionConfig) ([]model.Challenge, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(config.Input), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading drafts %s: %w", config.Input, err)
	}
	var in struct {
		Challenges []draft `koanf:"challenges"`
	}
	if err := k.UnmarshalWithConf("", &in, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding drafts %s: %w", config.Input, err)
	}

	var combineContext []byte
	if config.CombineContext != "" {
		combineContext = []byte(config.CombineContext)
	}

	out := make([]model.Challenge, 0, len(in.Challenges))
	for i, d := range in.Challenges {
		if d.ID == "" {
			return nil, fmt.Errorf("draft %d has no id", i)
		}
		if d.Flag == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingFlag, d.ID)
		}
		c := model.Challenge{
			ID:       d.ID,
			Name:     d.Name,
			Salt:     d.Salt,
			OpsLimit: d.OpsLimit,
			MemLimit: d.MemLimit,
		}
		if c.OpsLimit == 0 {
			c.OpsLimit = defaultOpsLimit
		}
		if c.MemLimit == 0 {
			c.MemLimit = defaultMemLimit
		}
		provisioned, err := proof.Provision(c, d.Flag, combineContext)
		if err != nil {
			return nil, fmt.Errorf("provisioning %s: %w", d.ID, err)
		}
		logger.Get().Info(ctx, "provisioned challenge",
			logger.String("id", provisioned.ID),
			logger.Bool("interactive", provisioned.Interactive()))
		out = append(out, provisioned)
	}

	if err := writeCatalog(config.Output, out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeCatalog writes challenges in the layout the scoreboard loads.
func writeCatalog(path string, challenges []model.Challenge) error {
	entries := make([]map[string]any, 0, len(challenges))
	for _, c := range challenges {
		e := map[string]any{
			"id":         c.ID,
			"name":       c.Name,
			"public_key": c.PublicKey,
			"salt":       c.Salt,
			"ops_limit":  c.OpsLimit,
			"mem_limit":  c.MemLimit,
		}
		if c.Interactive() {
			e["combined_public_key"] = c.CombinedPublicKey
			e["server_public_key"] = c.ServerPublicKey
			e["server_private_key"] = c.ServerPrivateKey
		}
		entries = append(entries, e)
	}
	raw, err := yaml.Parser().Marshal(map[string]any{"challenges": entries})
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := os.WriteFile(path, raw, catalogFilePermission); err != nil {
		return fmt.Errorf("writing catalog %s: %w", path, err)
	}
	return nil
}
