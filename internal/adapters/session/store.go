// Package session keeps short-lived interactive protocol state between the
// two protocol steps.
package session

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a session waits for step 2.
const DefaultTTL = 2 * time.Minute

// Sentinel errors.
var (
	ErrNotFound = errors.New("session not found")
	ErrSealed   = errors.New("session payload cannot be opened")
)

// Store is a TTL key-value store. Take is an atomic get-then-delete: of any
// number of concurrent Takes for one key, at most one returns the value.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Take(ctx context.Context, key string) ([]byte, error)
}
