// Package musig implements a two-round Schnorr multi-signature over secp256k1
// in the style of MuSig2.
//
// Every signer publishes two nonce points per session. A signature under the
// combined key verifies only when all signers contributed a partial
// signature, so neither party can produce a valid proof alone.
//
//	L   = H_agg(ctx || sorted keys)
//	a_i = H_coef(L || P_i)
//	X   = sum(a_i * P_i)
//	b   = H_non(X || R1 || R2 || m)    with R1 = sum(K_i), R2 = sum(K2_i)
//	R   = R1 + b*R2
//	c   = H_sig(R || X || m)
//	s_i = k_i + b*k2_i + c*a_i*x_i
//
// Verification checks s*G == R + c*X with s = sum(s_i).
package musig

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// PublicKeySize is the size of a compressed point.
	PublicKeySize = secp256k1.PubKeyBytesLenCompressed
	// ScalarSize is the size of a serialized scalar.
	ScalarSize = 32

	tagAggregate = "ctfboard/musig/agg"
	tagCoef      = "ctfboard/musig/coef"
	tagNonce     = "ctfboard/musig/nonce"
	tagNonceGen  = "ctfboard/musig/noncegen"
	tagChallenge = "ctfboard/musig/challenge"
	tagSeedKey   = "ctfboard/musig/seedkey"

	maxNonceAttempts = 8
)

// Sentinel errors.
var (
	ErrInvalidInput = errors.New("musig: invalid input")
	ErrNotSigner    = errors.New("musig: key is not part of the combined key")
	ErrDegenerate   = errors.New("musig: degenerate point")
)

// PublicNonces is the pair of nonce points a signer publishes in round one.
type PublicNonces struct {
	KPublic    *secp256k1.PublicKey
	KTwoPublic *secp256k1.PublicKey
}

// SecretNonces holds the scalars behind PublicNonces. They must be used for
// exactly one signature.
type SecretNonces struct {
	K  secp256k1.ModNScalar
	K2 secp256k1.ModNScalar
}

// CombinedKey is the aggregate public key of a signer set.
type CombinedKey struct {
	Key   *secp256k1.PublicKey
	l     [32]byte
	coefs map[string]secp256k1.ModNScalar
}

// PartialSignature is one signer's share together with the final nonce it
// was computed against.
type PartialSignature struct {
	S          secp256k1.ModNScalar
	FinalNonce *secp256k1.PublicKey
}

// Signature is the aggregate of all partial signatures.
type Signature struct {
	S secp256k1.ModNScalar
}

// GenerateKey returns a fresh random private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("musig: generate key: %w", err)
	}
	return k, nil
}

// PrivateKeyFromSeed maps a 32-byte seed to a private key deterministically.
func PrivateKeyFromSeed(seed []byte) (*secp256k1.PrivateKey, error) {
	if len(seed) != 32 {
		return nil, fmt.Errorf("%w: seed must be 32 bytes", ErrInvalidInput)
	}
	s := hashToScalar(tagSeedKey, seed)
	if s.IsZero() {
		return nil, ErrDegenerate
	}
	return secp256k1.NewPrivateKey(&s), nil
}

// GeneratePublicNonces draws the two secret nonces for one signing session.
// Nonces are hedged: they mix fresh randomness with the private key.
func GeneratePublicNonces(priv *secp256k1.PrivateKey, r io.Reader) (*SecretNonces, PublicNonces, error) {
	if priv == nil {
		return nil, PublicNonces{}, fmt.Errorf("%w: nil private key", ErrInvalidInput)
	}
	if r == nil {
		r = rand.Reader
	}
	keyBytes := priv.Key.Bytes()

	draw := func(index byte) (secp256k1.ModNScalar, error) {
		var buf [32]byte
		for i := 0; i < maxNonceAttempts; i++ {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return secp256k1.ModNScalar{}, fmt.Errorf("musig: read randomness: %w", err)
			}
			s := hashToScalar(tagNonceGen, keyBytes[:], buf[:], []byte{index})
			if !s.IsZero() {
				return s, nil
			}
		}
		return secp256k1.ModNScalar{}, ErrDegenerate
	}

	sn := &SecretNonces{}
	var err error
	if sn.K, err = draw(1); err != nil {
		return nil, PublicNonces{}, err
	}
	if sn.K2, err = draw(2); err != nil {
		return nil, PublicNonces{}, err
	}
	return sn, sn.Public(), nil
}

// Public recomputes the nonce points for sn.
func (sn *SecretNonces) Public() PublicNonces {
	return PublicNonces{
		KPublic:    baseMult(&sn.K),
		KTwoPublic: baseMult(&sn.K2),
	}
}

// Zero wipes the secret nonces.
func (sn *SecretNonces) Zero() {
	sn.K.Zero()
	sn.K2.Zero()
}

// MarshalBinary encodes the nonces as k || k2.
func (sn *SecretNonces) MarshalBinary() ([]byte, error) {
	k, k2 := sn.K.Bytes(), sn.K2.Bytes()
	out := make([]byte, 0, 2*ScalarSize)
	out = append(out, k[:]...)
	return append(out, k2[:]...), nil
}

// UnmarshalBinary decodes nonces produced by MarshalBinary.
func (sn *SecretNonces) UnmarshalBinary(data []byte) error {
	if len(data) != 2*ScalarSize {
		return fmt.Errorf("%w: secret nonces must be %d bytes", ErrInvalidInput, 2*ScalarSize)
	}
	k, err := scalarFromBytes(data[:ScalarSize])
	if err != nil {
		return err
	}
	k2, err := scalarFromBytes(data[ScalarSize:])
	if err != nil {
		return err
	}
	if k.IsZero() || k2.IsZero() {
		return fmt.Errorf("%w: zero nonce", ErrInvalidInput)
	}
	sn.K, sn.K2 = k, k2
	return nil
}

// CombinePublicKeys aggregates keys into a combined key. The result does not
// depend on the order of keys. contextSecret domain-separates deployments:
// the same keys combined under a different secret give a different key.
func CombinePublicKeys(keys []*secp256k1.PublicKey, contextSecret []byte) (*CombinedKey, error) {
	if len(keys) < 2 {
		return nil, fmt.Errorf("%w: need at least two keys", ErrInvalidInput)
	}
	serialized := make([][]byte, len(keys))
	for i, k := range keys {
		if k == nil {
			return nil, fmt.Errorf("%w: nil public key", ErrInvalidInput)
		}
		serialized[i] = k.SerializeCompressed()
	}
	sorted := make([][]byte, len(serialized))
	copy(sorted, serialized)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	parts := make([][]byte, 0, len(sorted)+1)
	parts = append(parts, contextSecret)
	parts = append(parts, sorted...)

	ck := &CombinedKey{coefs: make(map[string]secp256k1.ModNScalar, len(keys))}
	ck.l = taggedHash(tagAggregate, parts...)

	var acc secp256k1.JacobianPoint
	for i, k := range keys {
		a := hashToScalar(tagCoef, ck.l[:], serialized[i])
		ck.coefs[string(serialized[i])] = a

		var p, term secp256k1.JacobianPoint
		k.AsJacobian(&p)
		secp256k1.ScalarMultNonConst(&a, &p, &term)
		if i == 0 {
			acc.Set(&term)
			continue
		}
		acc = addPoints(&acc, &term)
	}
	key, err := toPublicKey(&acc)
	if err != nil {
		return nil, err
	}
	ck.Key = key
	return ck, nil
}

// PartialSign produces the caller's share of the signature over message.
// allNonces must contain the public nonces of every signer, including the
// caller's own.
func PartialSign(priv *secp256k1.PrivateKey, sn *SecretNonces, message []byte, ck *CombinedKey, allNonces []PublicNonces) (*PartialSignature, error) {
	if priv == nil || sn == nil || ck == nil {
		return nil, fmt.Errorf("%w: missing signing material", ErrInvalidInput)
	}
	a, ok := ck.coefs[string(priv.PubKey().SerializeCompressed())]
	if !ok {
		return nil, ErrNotSigner
	}

	finalNonce, b, err := finalizeNonce(ck.Key, message, allNonces)
	if err != nil {
		return nil, err
	}
	c := challenge(finalNonce, ck.Key, message)

	// s = k + b*k2 + c*a*x
	var s, bk2, cax secp256k1.ModNScalar
	bk2.Mul2(&b, &sn.K2)
	cax.Mul2(&c, &a).Mul(&priv.Key)
	s.Set(&sn.K).Add(&bk2).Add(&cax)

	return &PartialSignature{S: s, FinalNonce: finalNonce}, nil
}

// SumSignatures adds partial signature scalars.
func SumSignatures(sigs ...secp256k1.ModNScalar) Signature {
	var s secp256k1.ModNScalar
	for i := range sigs {
		s.Add(&sigs[i])
	}
	return Signature{S: s}
}

// Verify checks an aggregate signature against the final nonce and the
// combined public key.
func Verify(sig Signature, message []byte, finalNonce, combinedKey *secp256k1.PublicKey) bool {
	if finalNonce == nil || combinedKey == nil || sig.S.IsZero() {
		return false
	}
	c := challenge(finalNonce, combinedKey, message)

	var lhs, r, x, cx, rhs secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&sig.S, &lhs)
	finalNonce.AsJacobian(&r)
	combinedKey.AsJacobian(&x)
	secp256k1.ScalarMultNonConst(&c, &x, &cx)
	secp256k1.AddNonConst(&r, &cx, &rhs)

	if isInfinity(&lhs) || isInfinity(&rhs) {
		return false
	}
	lhs.ToAffine()
	rhs.ToAffine()
	return lhs.X.Equals(&rhs.X) && lhs.Y.Equals(&rhs.Y)
}

func finalizeNonce(x *secp256k1.PublicKey, message []byte, allNonces []PublicNonces) (*secp256k1.PublicKey, secp256k1.ModNScalar, error) {
	var b secp256k1.ModNScalar
	if len(allNonces) < 2 {
		return nil, b, fmt.Errorf("%w: need nonces from every signer", ErrInvalidInput)
	}

	var r1, r2 secp256k1.JacobianPoint
	for i, n := range allNonces {
		if n.KPublic == nil || n.KTwoPublic == nil {
			return nil, b, fmt.Errorf("%w: nil nonce", ErrInvalidInput)
		}
		var p1, p2 secp256k1.JacobianPoint
		n.KPublic.AsJacobian(&p1)
		n.KTwoPublic.AsJacobian(&p2)
		if i == 0 {
			r1.Set(&p1)
			r2.Set(&p2)
			continue
		}
		r1 = addPoints(&r1, &p1)
		r2 = addPoints(&r2, &p2)
	}
	r1Key, err := toPublicKey(&r1)
	if err != nil {
		return nil, b, err
	}
	r2Key, err := toPublicKey(&r2)
	if err != nil {
		return nil, b, err
	}

	b = hashToScalar(tagNonce, x.SerializeCompressed(), r1Key.SerializeCompressed(), r2Key.SerializeCompressed(), message)

	var br2, r secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&b, &r2, &br2)
	secp256k1.AddNonConst(&r1, &br2, &r)
	final, err := toPublicKey(&r)
	if err != nil {
		return nil, b, err
	}
	return final, b, nil
}

func challenge(r, x *secp256k1.PublicKey, message []byte) secp256k1.ModNScalar {
	return hashToScalar(tagChallenge, r.SerializeCompressed(), x.SerializeCompressed(), message)
}

func taggedHash(tag string, parts ...[]byte) [32]byte {
	t := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(t[:])
	h.Write(t[:])
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashToScalar(tag string, parts ...[]byte) secp256k1.ModNScalar {
	d := taggedHash(tag, parts...)
	var s secp256k1.ModNScalar
	s.SetByteSlice(d[:])
	return s
}

func baseMult(k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &p)
	p.ToAffine()
	return secp256k1.NewPublicKey(&p.X, &p.Y)
}

// addPoints returns p1+p2 in a fresh point; AddNonConst must not alias its
// result with an input.
func addPoints(p1, p2 *secp256k1.JacobianPoint) secp256k1.JacobianPoint {
	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(p1, p2, &sum)
	return sum
}

func isInfinity(p *secp256k1.JacobianPoint) bool {
	return (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero()
}

func toPublicKey(p *secp256k1.JacobianPoint) (*secp256k1.PublicKey, error) {
	if isInfinity(p) {
		return nil, ErrDegenerate
	}
	var q secp256k1.JacobianPoint
	q.Set(p)
	q.ToAffine()
	return secp256k1.NewPublicKey(&q.X, &q.Y), nil
}

func scalarFromBytes(b []byte) (secp256k1.ModNScalar, error) {
	var s secp256k1.ModNScalar
	if len(b) != ScalarSize {
		return s, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrInvalidInput, ScalarSize, len(b))
	}
	if overflow := s.SetByteSlice(b); overflow {
		return s, fmt.Errorf("%w: scalar out of range", ErrInvalidInput)
	}
	return s, nil
}

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return b, nil
}
