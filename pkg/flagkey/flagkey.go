// Package flagkey turns a low-entropy flag into a deterministic Ed25519
// keypair and provides the signing primitives used by signed-hash proofs.
//
// The derivation is compatible with libsodium: crypto_pwhash with
// ALG_ARGON2ID13 followed by crypto_sign_seed_keypair. Challenges published
// with libsodium tooling verify unchanged.
package flagkey

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"golang.org/x/crypto/argon2"
)

const (
	// SeedBytes is the size of the KDF output and of an Ed25519 seed.
	SeedBytes = ed25519.SeedSize
	// SaltBytes is the salt size libsodium's argon2id expects.
	SaltBytes = 16
	// MinMemLimit is the smallest accepted memory limit in bytes (8 KiB).
	MinMemLimit = 8 * 1024
	// lanes is fixed at one, like libsodium.
	lanes = 1
)

// Sentinel errors. ErrInvalidInput marks malformed caller input and is
// distinguishable from a cryptographic mismatch.
var (
	ErrInvalidInput = errors.New("flagkey: invalid input")
	ErrBadSignature = errors.New("flagkey: signature verification failed")
)

// Params are the public derivation parameters of a challenge.
type Params struct {
	Salt     []byte
	OpsLimit uint64
	MemLimit uint64
}

// Keypair is an Ed25519 keypair derived from a flag.
type Keypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// DecodeParams builds Params from the base64 salt stored with a challenge.
func DecodeParams(saltB64 string, opsLimit, memLimit uint64) (Params, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return Params{}, fmt.Errorf("%w: salt: %v", ErrInvalidInput, err)
	}
	p := Params{Salt: salt, OpsLimit: opsLimit, MemLimit: memLimit}
	if err := p.validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) validate() error {
	switch {
	case len(p.Salt) != SaltBytes:
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidInput, SaltBytes, len(p.Salt))
	case p.OpsLimit < 1 || p.OpsLimit > math.MaxUint32:
		return fmt.Errorf("%w: opslimit out of range", ErrInvalidInput)
	case p.MemLimit < MinMemLimit || p.MemLimit/1024 > math.MaxUint32:
		return fmt.Errorf("%w: memlimit out of range", ErrInvalidInput)
	}
	return nil
}

// DeriveSeed runs Argon2id over flag. memLimit is in bytes.
func DeriveSeed(flag string, p Params) ([SeedBytes]byte, error) {
	var seed [SeedBytes]byte
	if err := p.validate(); err != nil {
		return seed, err
	}
	out := argon2.IDKey([]byte(flag), p.Salt, uint32(p.OpsLimit), uint32(p.MemLimit/1024), lanes, SeedBytes)
	copy(seed[:], out)
	return seed, nil
}

// KeypairFromSeed deterministically expands seed into an Ed25519 keypair.
func KeypairFromSeed(seed [SeedBytes]byte) Keypair {
	priv := ed25519.NewKeyFromSeed(seed[:])
	return Keypair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}
}

// Derive is DeriveSeed followed by KeypairFromSeed.
func Derive(flag string, p Params) (Keypair, error) {
	seed, err := DeriveSeed(flag, p)
	if err != nil {
		return Keypair{}, err
	}
	return KeypairFromSeed(seed), nil
}

// Matches reports whether flag derives the published public key.
func Matches(flag string, p Params, published ed25519.PublicKey) (bool, error) {
	kp, err := Derive(flag, p)
	if err != nil {
		return false, err
	}
	return bytes.Equal(kp.PublicKey, published), nil
}

// Sign returns signature||message, the combined format of crypto_sign.
func Sign(message []byte, priv ed25519.PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key length %d", ErrInvalidInput, len(priv))
	}
	sig := ed25519.Sign(priv, message)
	out := make([]byte, 0, len(sig)+len(message))
	out = append(out, sig...)
	return append(out, message...), nil
}

// Open verifies a combined signed message and returns the embedded message.
func Open(signed []byte, pub ed25519.PublicKey) ([]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key length %d", ErrInvalidInput, len(pub))
	}
	if len(signed) < ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: signed message is too short", ErrInvalidInput)
	}
	sig, msg := signed[:ed25519.SignatureSize], signed[ed25519.SignatureSize:]
	if !ed25519.Verify(pub, msg, sig) {
		return nil, ErrBadSignature
	}
	return append([]byte(nil), msg...), nil
}

// DecodePublicKey parses a base64 Ed25519 public key.
func DecodePublicKey(b64 string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrInvalidInput, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key length %d", ErrInvalidInput, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
