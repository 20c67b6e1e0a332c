package proof

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/pkg/flagkey"
)

// Claim is the message a signed-hash proof signs for teamName.
func Claim(teamName string) []byte {
	sum := sha256.Sum256([]byte(teamName))
	return []byte(hex.EncodeToString(sum[:]))
}

// NewSignedHashProof derives the challenge key from flag and signs the
// claim for teamName. It fails with ErrWrongFlag when the derived key is not
// the published one.
func NewSignedHashProof(teamName, flag string, c model.Challenge) (string, error) {
	p, err := Params(c)
	if err != nil {
		return "", err
	}
	published, err := flagkey.DecodePublicKey(c.PublicKey)
	if err != nil {
		return "", errors.Join(ErrChallenge, err)
	}
	kp, err := flagkey.Derive(flag, p)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare(kp.PublicKey, published) != 1 {
		return "", ErrWrongFlag
	}
	signed, err := flagkey.Sign(Claim(teamName), kp.PrivateKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}

// VerifySignedHash checks a base64 signed-hash proof against the challenge
// key and the claim recomputed from teamName.
func VerifySignedHash(proofB64, teamName string, c model.Challenge) error {
	pub, err := flagkey.DecodePublicKey(c.PublicKey)
	if err != nil {
		return errors.Join(ErrChallenge, err)
	}
	signed, err := base64.StdEncoding.DecodeString(proofB64)
	if err != nil {
		return errors.Join(ErrInvalidProof, err)
	}
	msg, err := flagkey.Open(signed, pub)
	if err != nil {
		return errors.Join(ErrInvalidProof, err)
	}
	if subtle.ConstantTimeCompare(msg, Claim(teamName)) != 1 {
		return ErrInvalidProof
	}
	return nil
}
