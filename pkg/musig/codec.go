package musig

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// EncodePoint returns the hex of the compressed point.
func EncodePoint(p *secp256k1.PublicKey) string {
	return hex.EncodeToString(p.SerializeCompressed())
}

// ParsePublicKey decodes a hex-encoded compressed or uncompressed point.
func ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, err
	}
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return pk, nil
}

// EncodePrivateKey returns the hex of the private scalar.
func EncodePrivateKey(k *secp256k1.PrivateKey) string {
	return hex.EncodeToString(k.Serialize())
}

// ParsePrivateKey decodes a hex private scalar.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, err
	}
	k, err := scalarFromBytes(b)
	if err != nil {
		return nil, err
	}
	if k.IsZero() {
		return nil, fmt.Errorf("%w: zero private key", ErrInvalidInput)
	}
	return secp256k1.NewPrivateKey(&k), nil
}

// ParsePublicNonces decodes the pair of hex nonce points.
func ParsePublicNonces(kPublic, kTwoPublic string) (PublicNonces, error) {
	k1, err := ParsePublicKey(kPublic)
	if err != nil {
		return PublicNonces{}, fmt.Errorf("kPublic: %w", err)
	}
	k2, err := ParsePublicKey(kTwoPublic)
	if err != nil {
		return PublicNonces{}, fmt.Errorf("kTwoPublic: %w", err)
	}
	return PublicNonces{KPublic: k1, KTwoPublic: k2}, nil
}

// Hex returns the hex of the aggregate scalar.
func (s Signature) Hex() string {
	b := s.S.Bytes()
	return hex.EncodeToString(b[:])
}

// ParseSignature decodes a 32-byte hex scalar, either an aggregate or a
// partial signature.
func ParseSignature(s string) (Signature, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Signature{}, err
	}
	k, err := scalarFromBytes(b)
	if err != nil {
		return Signature{}, err
	}
	return Signature{S: k}, nil
}

// Hex returns the hex of the partial signature scalar.
func (p *PartialSignature) Hex() string {
	return Signature{S: p.S}.Hex()
}
