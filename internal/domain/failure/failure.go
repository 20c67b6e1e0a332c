// Package failure defines the error taxonomy shared by the service and its
// adapters. Every error a caller can observe carries a Kind; the HTTP layer
// maps kinds to status codes and only ever echoes Message for non-internal
// errors.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	Internal Kind = iota
	Semantic
	Authorization
	NotFound
	Validation
	RateLimited
)

// String returns the wire code of k.
func (k Kind) String() string {
	switch k {
	case Semantic:
		return "semantic"
	case Authorization:
		return "authorization"
	case NotFound:
		return "not-found"
	case Validation:
		return "validation"
	case RateLimited:
		return "rate-limit"
	default:
		return "internal"
	}
}

// Stable user-facing messages.
const (
	MsgInvalidProof          = "Invalid proof"
	MsgInvalidSession        = "Invalid session"
	MsgAlreadySolved         = "Your team already solved this challenge"
	MsgSubmissionsClosed     = "Submissions not allowed!"
	MsgInvalidChallenge      = "Invalid challenge"
	MsgNotMember             = "you don't belong on this team"
	MsgEmailNotVerified      = "E-mail not verified!"
	MsgSubscriptionsDisabled = "Subscriptions not enabled!"
	MsgTeamExists            = "Already exists this team"
	MsgAlreadyMember         = "you are already member of a team"
	MsgNotFound              = "Not found"
	MsgInternal              = "Internal server error"
	MsgMissingToken          = "Missing token"
	MsgTooManyRequests       = "Too many requests"
)

// Error is a classified error. Op names the operation that produced it.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Message: msg}
}

// SemanticErr reports a well-formed request the domain rejects.
func SemanticErr(op, msg string) *Error { return New(op, Semantic, msg) }

// AuthorizationErr reports a caller that is not allowed to act.
func AuthorizationErr(op, msg string) *Error { return New(op, Authorization, msg) }

// NotFoundErr reports a missing resource.
func NotFoundErr(op, msg string) *Error { return New(op, NotFound, msg) }

// ValidationErr reports a malformed request.
func ValidationErr(op, msg string) *Error { return New(op, Validation, msg) }

// WrapKind classifies err under kind, keeping it in the chain.
func WrapKind(op string, kind Kind, msg string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

// Wrap annotates err with op. Classified errors keep their kind and message;
// anything else becomes Internal.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Op: op, Kind: fe.Kind, Message: fe.Message, Err: err}
	}
	return &Error{Op: op, Kind: Internal, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or Internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// MessageOf returns the message safe to show a client.
func MessageOf(err error) string {
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind == Internal || fe.Message == "" {
		return MsgInternal
	}
	return fe.Message
}

// Is reports whether err carries kind and msg.
func Is(err error, kind Kind, msg string) bool {
	return KindOf(err) == kind && MessageOf(err) == msg
}
