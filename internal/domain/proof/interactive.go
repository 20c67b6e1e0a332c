package proof

import (
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/musig"
)

// Option applies a configuration option to the Interactive engine.
type Option func(*Interactive)

// WithRand sets the randomness source for server nonces.
func WithRand(r io.Reader) Option {
	return func(e *Interactive) {
		if r != nil {
			e.rand = r
		}
	}
}

// Interactive runs the server side of the two-party protocol. The combine
// context is shared with solvers; it is not a secret.
type Interactive struct {
	combineContext []byte
	rand           io.Reader
}

// NewInteractive creates the server side engine.
func NewInteractive(combineContext []byte, opts ...Option) *Interactive {
	e := &Interactive{combineContext: append([]byte(nil), combineContext...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State is what the server keeps between step 1 and step 2. ServerNonces
// holds secret scalars and must not leave the server unsealed.
type State struct {
	ClientPublicKey string       `json:"clientPublicKey"`
	ClientNonces    types.Nonces `json:"clientNonces"`
	ServerNonces    []byte       `json:"serverNonces"`
}

// Begin validates the client's round one material and draws the server
// nonces. The client key must combine with the server key into the
// challenge's published combined key, which only the flag holder can
// achieve.
func (e *Interactive) Begin(c model.Challenge, req types.Step1Request) (State, types.Nonces, error) {
	serverPriv, err := serverKey(c)
	if err != nil {
		return State{}, types.Nonces{}, err
	}
	clientPub, err := musig.ParsePublicKey(req.PublicKey)
	if err != nil {
		return State{}, types.Nonces{}, errors.Join(ErrInvalidProof, err)
	}
	clientNonces, err := musig.ParsePublicNonces(req.KPublic, req.KTwoPublic)
	if err != nil {
		return State{}, types.Nonces{}, errors.Join(ErrInvalidProof, err)
	}
	if _, err := e.bind(c, clientPub, serverPriv.PubKey()); err != nil {
		return State{}, types.Nonces{}, err
	}

	sn, pn, err := musig.GeneratePublicNonces(serverPriv, e.rand)
	if err != nil {
		return State{}, types.Nonces{}, err
	}
	defer sn.Zero()
	raw, err := sn.MarshalBinary()
	if err != nil {
		return State{}, types.Nonces{}, err
	}
	st := State{
		ClientPublicKey: musig.EncodePoint(clientPub),
		ClientNonces:    encodeNonces(clientNonces),
		ServerNonces:    raw,
	}
	return st, encodeNonces(pn), nil
}

// Finish completes the server signature, sums it with the client's and
// verifies the aggregate. The signed message must be teamID.
func (e *Interactive) Finish(c model.Challenge, st State, req types.Step2Request, teamID string) (Artifact, error) {
	serverPriv, err := serverKey(c)
	if err != nil {
		return Artifact{}, err
	}
	clientPub, err := musig.ParsePublicKey(st.ClientPublicKey)
	if err != nil {
		return Artifact{}, errors.Join(ErrInvalidProof, err)
	}
	clientNonces, err := musig.ParsePublicNonces(st.ClientNonces.KPublic, st.ClientNonces.KTwoPublic)
	if err != nil {
		return Artifact{}, errors.Join(ErrInvalidProof, err)
	}
	ck, err := e.bind(c, clientPub, serverPriv.PubKey())
	if err != nil {
		return Artifact{}, err
	}
	clientSig, err := musig.ParseSignature(req.Signature)
	if err != nil {
		return Artifact{}, errors.Join(ErrInvalidProof, err)
	}

	var sn musig.SecretNonces
	if err := sn.UnmarshalBinary(st.ServerNonces); err != nil {
		return Artifact{}, errors.Join(ErrInvalidProof, err)
	}
	defer sn.Zero()

	msg := []byte(req.Message)
	ps, err := musig.PartialSign(serverPriv, &sn, msg, ck, []musig.PublicNonces{sn.Public(), clientNonces})
	if err != nil {
		return Artifact{}, errors.Join(ErrInvalidProof, err)
	}
	sum := musig.SumSignatures(clientSig.S, ps.S)
	if !musig.Verify(sum, msg, ps.FinalNonce, ck.Key) || req.Message != teamID {
		return Artifact{}, ErrInvalidProof
	}
	return Artifact{
		Signature:        sum.Hex(),
		Message:          req.Message,
		FinalPublicNonce: musig.EncodePoint(ps.FinalNonce),
	}, nil
}

// bind combines the client and server keys and checks the result against
// the challenge.
func (e *Interactive) bind(c model.Challenge, clientPub, serverPub *secp256k1.PublicKey) (*musig.CombinedKey, error) {
	published, err := musig.ParsePublicKey(c.CombinedPublicKey)
	if err != nil {
		return nil, errors.Join(ErrChallenge, err)
	}
	ck, err := musig.CombinePublicKeys([]*secp256k1.PublicKey{clientPub, serverPub}, e.combineContext)
	if err != nil {
		return nil, errors.Join(ErrInvalidProof, err)
	}
	if !ck.Key.IsEqual(published) {
		return nil, ErrInvalidProof
	}
	return ck, nil
}

func serverKey(c model.Challenge) (*secp256k1.PrivateKey, error) {
	if !c.Interactive() {
		return nil, ErrNotInteractive
	}
	k, err := musig.ParsePrivateKey(c.ServerPrivateKey)
	if err != nil {
		return nil, errors.Join(ErrChallenge, err)
	}
	return k, nil
}

func encodeNonces(n musig.PublicNonces) types.Nonces {
	return types.Nonces{
		KPublic:    musig.EncodePoint(n.KPublic),
		KTwoPublic: musig.EncodePoint(n.KTwoPublic),
	}
}
