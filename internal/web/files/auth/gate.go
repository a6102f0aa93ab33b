// Package auth registers users and gates every owner scoped operation
// behind a session token.
package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/internal/web/files/session"
)

// UserStore is the part of the document store used by the gate.
type UserStore interface {
	IsAlive() bool
	InsertUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id model.ID) (*model.User, error)
}

// Gate issues, resolves and revokes sessions.
type Gate struct {
	users      UserStore
	sessions   session.Store
	hasher     PasswordHasher
	sessionTTL time.Duration
	logger     logSDK.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithSessionTTL overrides session.DefaultTTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.sessionTTL = ttl
		}
	}
}

// WithHasher overrides the bcrypt hasher.
func WithHasher(hasher PasswordHasher) Option {
	return func(g *Gate) {
		if hasher != nil {
			g.hasher = hasher
		}
	}
}

// NewGate create new auth gate
func NewGate(users UserStore, sessions session.Store, logger logSDK.Logger, opts ...Option) (*Gate, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	g := &Gate{
		users:      users,
		sessions:   sessions,
		hasher:     NewBcryptHasher(0),
		sessionTTL: session.DefaultTTL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Register creates a new user. Duplicate emails are rejected by the store.
func (g *Gate) Register(ctx context.Context, email, password string) (*model.User, error) {
	if !g.users.IsAlive() {
		return nil, errors.WithStack(model.ErrStoreUnavailable())
	}

	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgMissingEmail))
	}
	if password == "" {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgMissingPassword))
	}
	if len(password) > MaxPasswordBytes {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, model.MsgPasswordTooLong))
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user, err := g.users.InsertUser(ctx, email, hash)
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}

	g.logger.Info("new user registered", zap.String("uid", user.ID.Hex()))
	return user, nil
}

// Authenticate checks the credentials and opens a new session.
// Unknown email and wrong password are the same UNAUTHORIZED error.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (token string, err error) {
	if !g.users.IsAlive() {
		return "", errors.WithStack(model.ErrStoreUnavailable())
	}

	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", errors.WithStack(model.ErrUnauthorized())
	}

	user, err := g.users.FindUserByEmail(ctx, email)
	if err != nil {
		if model.IsCode(err, model.ErrCodeNotFound) {
			return "", errors.WithStack(model.ErrUnauthorized())
		}
		return "", errors.Wrap(err, "find user")
	}

	if err = g.hasher.Verify(user.PasswordHash, password); err != nil {
		g.logger.Debug("password mismatch", zap.String("uid", user.ID.Hex()))
		return "", errors.WithStack(model.ErrUnauthorized())
	}

	if !g.sessions.IsAlive() {
		return "", errors.WithStack(model.ErrStoreUnavailable())
	}
	token, err = g.sessions.Create(ctx, user.ID, g.sessionTTL)
	if err != nil {
		return "", errors.Wrap(err, "create session")
	}

	return token, nil
}

// RequireUser resolves token to its user id.
// Every failure, including an unreachable session store, is UNAUTHORIZED.
func (g *Gate) RequireUser(ctx context.Context, token string) (model.ID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.RootID, errors.WithStack(model.ErrUnauthorized())
	}

	uid, err := g.sessions.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			g.logger.Warn("resolve session", zap.Error(err))
		}
		return model.RootID, errors.WithStack(model.ErrUnauthorized())
	}
	if uid.IsZero() {
		return model.RootID, errors.WithStack(model.ErrUnauthorized())
	}

	return uid, nil
}

// EndSession revokes token, it never fails.
func (g *Gate) EndSession(ctx context.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	if err := g.sessions.Revoke(ctx, token); err != nil {
		g.logger.Warn("revoke session", zap.Error(err))
	}
}

// CurrentUser loads the user behind token.
func (g *Gate) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	uid, err := g.RequireUser(ctx, token)
	if err != nil {
		return nil, err
	}

	return g.UserByID(ctx, uid)
}

// UserByID loads the user of an already resolved session.
// A user missing from the store is UNAUTHORIZED.
func (g *Gate) UserByID(ctx context.Context, uid model.ID) (*model.User, error) {
	if uid.IsZero() {
		return nil, errors.WithStack(model.ErrUnauthorized())
	}

	user, err := g.users.FindUserByID(ctx, uid)
	if err != nil {
		if model.IsCode(err, model.ErrCodeNotFound) {
			return nil, errors.WithStack(model.ErrUnauthorized())
		}
		return nil, errors.Wrap(err, "find user")
	}

	return user, nil
}

// ParseBasicAuth decodes an `Authorization: Basic base64(email:password)` header.
func ParseBasicAuth(header string) (email, password string, err error) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", errors.WithStack(model.ErrUnauthorized())
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", errors.WithStack(model.ErrUnauthorized())
	}

	email, password, ok := strings.Cut(string(raw), ":")
	if !ok || email == "" || password == "" {
		return "", "", errors.WithStack(model.ErrUnauthorized())
	}

	return email, password, nil
}
