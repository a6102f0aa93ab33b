package session

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/library/db/redis"
)

// KV is the subset of the redis wrapper used to keep sessions.
type KV interface {
	SetItem(ctx context.Context, key, val string, ttl time.Duration) error
	GetItem(ctx context.Context, key string) (string, error)
	DelItem(ctx context.Context, key string) error
	IsAlive() bool
}

// Redis keeps sessions as `auth_<token>` keys, expiry is delegated to redis.
type Redis struct {
	kv KV
}

// NewRedis create new redis session store
func NewRedis(kv KV) *Redis {
	return &Redis{kv: kv}
}

// IsAlive reports whether redis answered the latest ping.
func (s *Redis) IsAlive() bool {
	return s.kv != nil && s.kv.IsAlive()
}

// Create issues a token for userID
func (s *Redis) Create(ctx context.Context, userID model.ID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := newToken()
	if err := s.kv.SetItem(ctx, cacheKey(token), userID.Hex(), ttl); err != nil {
		return "", errors.Wrap(err, "save session")
	}

	return token, nil
}

// Resolve load user id by token
func (s *Redis) Resolve(ctx context.Context, token string) (model.ID, error) {
	if token == "" {
		return model.RootID, errors.WithStack(ErrSessionNotFound)
	}

	val, err := s.kv.GetItem(ctx, cacheKey(token))
	if errors.Is(err, redis.ErrNil) {
		return model.RootID, errors.WithStack(ErrSessionNotFound)
	}
	if err != nil {
		return model.RootID, errors.Wrap(err, "load session")
	}

	uid, err := model.ParseID(val)
	if err != nil {
		return model.RootID, errors.Wrap(err, "corrupted session value")
	}

	return uid, nil
}

// Revoke delete the token
func (s *Redis) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	return errors.Wrap(s.kv.DelItem(ctx, cacheKey(token)), "delete session")
}
