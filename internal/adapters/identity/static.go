package identity

import (
	"context"
	"sync"

	"github.com/okian/ctfboard/internal/domain/failure"
)

// Option configures a StaticVerifier.
type Option func(*StaticVerifier)

// WithToken maps token to uid.
func WithToken(token, uid string) Option {
	return func(v *StaticVerifier) { v.tokens[token] = uid }
}

// WithTokens maps every token in m to its uid.
func WithTokens(m map[string]string) Option {
	return func(v *StaticVerifier) {
		for t, uid := range m {
			v.tokens[t] = uid
		}
	}
}

// WithUnverified marks uids whose e-mail is not verified.
func WithUnverified(uids ...string) Option {
	return func(v *StaticVerifier) {
		for _, uid := range uids {
			v.unverified[uid] = struct{}{}
		}
	}
}

// StaticVerifier resolves tokens from a fixed table.
type StaticVerifier struct {
	mu         sync.RWMutex
	tokens     map[string]string
	unverified map[string]struct{}
}

var _ Verifier = (*StaticVerifier)(nil)

// NewStaticVerifier builds a verifier from options.
func NewStaticVerifier(opts ...Option) *StaticVerifier {
	v := &StaticVerifier{
		tokens:     make(map[string]string),
		unverified: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Add registers a token at runtime.
func (v *StaticVerifier) Add(token, uid string, verified bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = uid
	if verified {
		delete(v.unverified, uid)
	} else {
		v.unverified[uid] = struct{}{}
	}
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, failure.AuthorizationErr("identity.verify", failure.MsgMissingToken)
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	uid, ok := v.tokens[token]
	if !ok {
		return Identity{}, FromProviderCode(CodeInvalidToken, "")
	}
	_, unverified := v.unverified[uid]
	return Identity{UID: uid, Verified: !unverified}, nil
}
