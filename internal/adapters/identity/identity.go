// Package identity resolves bearer tokens to user identities. The real
// provider lives outside this service; StaticVerifier serves development and
// tests.
package identity

import (
	"context"
	"strings"

	"github.com/okian/ctfboard/internal/domain/failure"
)

// Identity is an authenticated user.
type Identity struct {
	UID      string
	Verified bool
}

// Verifier validates a token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// MsgInvalidToken is returned for any token the provider rejects.
const MsgInvalidToken = "Invalid token"

// Provider error codes.
const (
	CodeTokenExpired       = "auth/id-token-expired"
	CodeTokenRevoked       = "auth/id-token-revoked"
	CodeInvalidToken       = "auth/invalid-id-token"
	CodeArgumentError      = "auth/argument-error"
	CodeEmailExists        = "auth/email-already-exists"
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeInvalidArgument    = "auth/invalid-argument"
	CodeInvalidDisplayName = "auth/invalid-display-name"
	CodeInvalidEmail       = "auth/invalid-email"
	CodeInvalidPassword    = "auth/invalid-password"
	CodeUserNotFound       = "auth/user-not-found"
	CodeUIDExists          = "auth/uid-already-exists"
)

// FromProviderCode maps an identity provider error code to a classified
// error. Unknown codes are internal.
func FromProviderCode(code, message string) error {
	const op = "identity.provider"
	switch code {
	case CodeTokenExpired, CodeTokenRevoked, CodeInvalidToken, CodeArgumentError:
		return failure.AuthorizationErr(op, MsgInvalidToken)
	case CodeEmailExists, CodeEmailInUse, CodeInvalidArgument,
		CodeInvalidDisplayName, CodeInvalidEmail, CodeInvalidPassword:
		return failure.SemanticErr(op, message)
	case CodeUserNotFound, CodeUIDExists:
		return failure.NotFoundErr(op, message)
	default:
		return failure.New(op, failure.Internal, strings.TrimSpace(code+" "+message))
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
