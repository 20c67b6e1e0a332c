package proof

import (
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/types"
	"github.com/okian/ctfboard/pkg/flagkey"
	"github.com/okian/ctfboard/pkg/musig"
)

// ClientKey derives the interactive client key for flag.
func ClientKey(flag string, c model.Challenge) (*secp256k1.PrivateKey, error) {
	p, err := Params(c)
	if err != nil {
		return nil, err
	}
	seed, err := flagkey.DeriveSeed(flag, p)
	if err != nil {
		return nil, err
	}
	return musig.PrivateKeyFromSeed(seed[:])
}

// InteractiveClient is the solver side of one interactive session.
type InteractiveClient struct {
	priv   *secp256k1.PrivateKey
	ck     *musig.CombinedKey
	secret *musig.SecretNonces
	public musig.PublicNonces
}

// NewInteractiveClient derives the client key from flag and checks it
// against the challenge. A wrong flag fails with ErrWrongFlag before any
// request is made.
func NewInteractiveClient(flag string, c model.Challenge, combineContext []byte, r io.Reader) (*InteractiveClient, error) {
	if c.CombinedPublicKey == "" || c.ServerPublicKey == "" {
		return nil, ErrNotInteractive
	}
	priv, err := ClientKey(flag, c)
	if err != nil {
		return nil, err
	}
	serverPub, err := musig.ParsePublicKey(c.ServerPublicKey)
	if err != nil {
		return nil, errors.Join(ErrChallenge, err)
	}
	published, err := musig.ParsePublicKey(c.CombinedPublicKey)
	if err != nil {
		return nil, errors.Join(ErrChallenge, err)
	}
	ck, err := musig.CombinePublicKeys([]*secp256k1.PublicKey{priv.PubKey(), serverPub}, combineContext)
	if err != nil {
		return nil, err
	}
	if !ck.Key.IsEqual(published) {
		return nil, ErrWrongFlag
	}
	sn, pn, err := musig.GeneratePublicNonces(priv, r)
	if err != nil {
		return nil, err
	}
	return &InteractiveClient{priv: priv, ck: ck, secret: sn, public: pn}, nil
}

// Step1 returns the round one request.
func (cl *InteractiveClient) Step1() types.Step1Request {
	return types.Step1Request{
		KPublic:    musig.EncodePoint(cl.public.KPublic),
		KTwoPublic: musig.EncodePoint(cl.public.KTwoPublic),
		PublicKey:  musig.EncodePoint(cl.priv.PubKey()),
	}
}

// Step2 signs message with the server's nonces from step 1. The client
// nonces are wiped afterwards; a client signs at most once.
func (cl *InteractiveClient) Step2(resp types.Step1Response, message string) (types.Step2Request, error) {
	if cl.secret == nil {
		return types.Step2Request{}, errors.New("proof: client nonces already used")
	}
	server, err := musig.ParsePublicNonces(resp.ServerPublicNonce.KPublic, resp.ServerPublicNonce.KTwoPublic)
	if err != nil {
		return types.Step2Request{}, err
	}
	ps, err := musig.PartialSign(cl.priv, cl.secret, []byte(message), cl.ck, []musig.PublicNonces{cl.public, server})
	cl.secret.Zero()
	cl.secret = nil
	if err != nil {
		return types.Step2Request{}, err
	}
	return types.Step2Request{
		SessionID: resp.SessionID,
		Signature: ps.Hex(),
		Message:   message,
	}, nil
}
