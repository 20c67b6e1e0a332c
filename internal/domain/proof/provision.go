package proof

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/pkg/flagkey"
	"github.com/okian/ctfboard/pkg/musig"
)

// Provision fills the published material of c for flag. A missing salt is
// generated. When combineContext is non-nil a fresh server key is drawn and
// the challenge is provisioned for interactive proofs as well.
func Provision(c model.Challenge, flag string, combineContext []byte) (model.Challenge, error) {
	if c.Salt == "" {
		salt := make([]byte, flagkey.SaltBytes)
		if _, err := rand.Read(salt); err != nil {
			return c, fmt.Errorf("proof: generate salt: %w", err)
		}
		c.Salt = base64.StdEncoding.EncodeToString(salt)
	}
	p, err := Params(c)
	if err != nil {
		return c, err
	}
	seed, err := flagkey.DeriveSeed(flag, p)
	if err != nil {
		return c, err
	}
	c.PublicKey = base64.StdEncoding.EncodeToString(flagkey.KeypairFromSeed(seed).PublicKey)

	if combineContext == nil {
		return c, nil
	}
	clientPriv, err := musig.PrivateKeyFromSeed(seed[:])
	if err != nil {
		return c, err
	}
	serverPriv, err := musig.GenerateKey()
	if err != nil {
		return c, err
	}
	ck, err := musig.CombinePublicKeys([]*secp256k1.PublicKey{clientPriv.PubKey(), serverPriv.PubKey()}, combineContext)
	if err != nil {
		return c, err
	}
	c.ServerPrivateKey = musig.EncodePrivateKey(serverPriv)
	c.ServerPublicKey = musig.EncodePoint(serverPriv.PubKey())
	c.CombinedPublicKey = musig.EncodePoint(ck.Key)
	return c, nil
}
