// Package session maps opaque tokens to user ids for a bounded time.
package session

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"

	"github.com/Laisky/files-manager/internal/web/files/model"
)

// DefaultTTL is the lifetime of a session, it is not extended on use.
const DefaultTTL = 24 * time.Hour

// keyPrefix namespaces session keys in the shared cache.
const keyPrefix = "auth_"

// ErrSessionNotFound is returned when a token is unknown, revoked or expired.
var ErrSessionNotFound = errors.New("session not found")

// Store is the ephemeral token -> user id mapping.
type Store interface {
	// Create issues a new random token for userID that expires after ttl.
	Create(ctx context.Context, userID model.ID, ttl time.Duration) (token string, err error)
	// Resolve returns the user id of a live token, or ErrSessionNotFound.
	Resolve(ctx context.Context, token string) (model.ID, error)
	// Revoke removes the token, revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error
	IsAlive() bool
}

// Clock returns the current time in UTC.
type Clock func() time.Time

func newToken() string {
	return uuid.NewString()
}

func cacheKey(token string) string {
	return keyPrefix + token
}
