package proof

import (
	"encoding/json"
	"errors"

	"github.com/okian/ctfboard/pkg/musig"
)

// Artifact is the durable proof of an interactive solve. It verifies on its
// own against the challenge's combined key.
type Artifact struct {
	Signature        string `json:"signature"`
	Message          string `json:"message"`
	FinalPublicNonce string `json:"finalPublicNonce"`
}

// String returns the JSON stored in the ledger.
func (a Artifact) String() string {
	raw, _ := json.Marshal(a)
	return string(raw)
}

// ParseArtifact decodes a stored artifact.
func ParseArtifact(s string) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Artifact{}, errors.Join(ErrInvalidProof, err)
	}
	return a, nil
}

// VerifyArtifact checks a against combinedKey (hex).
func VerifyArtifact(a Artifact, combinedKey string) error {
	key, err := musig.ParsePublicKey(combinedKey)
	if err != nil {
		return errors.Join(ErrChallenge, err)
	}
	sig, err := musig.ParseSignature(a.Signature)
	if err != nil {
		return errors.Join(ErrInvalidProof, err)
	}
	nonce, err := musig.ParsePublicKey(a.FinalPublicNonce)
	if err != nil {
		return errors.Join(ErrInvalidProof, err)
	}
	if !musig.Verify(sig, []byte(a.Message), nonce, key) {
		return ErrInvalidProof
	}
	return nil
}
