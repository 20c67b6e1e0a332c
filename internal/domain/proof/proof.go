// Package proof implements the two flag-proof protocols.
//
// Both reduce "the team knows the flag" to "the team holds the private key
// derived from the flag". A challenge only publishes public material; the
// server never sees the flag.
//
// Signed hash: the client signs hex(sha256(teamName)) with the Ed25519 key
// derived from the flag and the server opens it with the published key.
//
// Interactive: the client key is a secp256k1 key derived from the flag and
// the challenge publishes the combination of that key with a server key.
// Client and server each contribute a partial signature over the team id;
// only the sum verifies under the combined key.
package proof

import (
	"errors"
	"strings"

	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/pkg/flagkey"
)

// Sentinel errors. ErrInvalidProof covers every client-side failure,
// including malformed encodings. ErrChallenge marks a challenge whose
// published material cannot be parsed.
var (
	ErrInvalidProof   = errors.New("proof: invalid proof")
	ErrWrongFlag      = errors.New("proof: flag does not match the challenge")
	ErrNotInteractive = errors.New("proof: challenge is not provisioned for interactive proofs")
	ErrChallenge      = errors.New("proof: malformed challenge parameters")
)

// Variant names, used for metrics and configuration.
const (
	VariantSigned      = "signed"
	VariantInteractive = "interactive"
)

// Params extracts the KDF parameters of c.
func Params(c model.Challenge) (flagkey.Params, error) {
	p, err := flagkey.DecodeParams(c.Salt, c.OpsLimit, c.MemLimit)
	if err != nil {
		return flagkey.Params{}, errors.Join(ErrChallenge, err)
	}
	return p, nil
}

// VariantOf reports which protocol produced a stored proof.
func VariantOf(stored string) string {
	if strings.HasPrefix(strings.TrimSpace(stored), "{") {
		return VariantInteractive
	}
	return VariantSigned
}

// VerifyStored re-verifies a proof recorded in the ledger for team.
func VerifyStored(stored string, team model.Team, c model.Challenge) error {
	if VariantOf(stored) == VariantInteractive {
		a, err := ParseArtifact(stored)
		if err != nil {
			return err
		}
		if a.Message != team.ID {
			return ErrInvalidProof
		}
		return VerifyArtifact(a, c.CombinedPublicKey)
	}
	return VerifySignedHash(stored, team.Name, c)
}
