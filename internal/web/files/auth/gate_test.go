package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/internal/web/files/session"
	"github.com/Laisky/files-manager/internal/web/files/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

// brokenSessions is a session store whose backend is unreachable.
type brokenSessions struct{}

func (brokenSessions) Create(context.Context, model.ID, time.Duration) (string, error) {
	return "", errors.New("connection refused")
}

func (brokenSessions) Resolve(context.Context, string) (model.ID, error) {
	return model.RootID, errors.New("connection refused")
}

func (brokenSessions) Revoke(context.Context, string) error {
	return errors.New("connection refused")
}

func (brokenSessions) IsAlive() bool { return false }

func newTestGate(t *testing.T, sessions session.Store) (*Gate, *store.Memory) {
	t.Helper()
	users := store.NewMemory()
	gate, err := NewGate(users, sessions, logSDK.Shared.Named("test_auth"),
		WithHasher(NewBcryptHasher(bcrypt.MinCost)),
	)
	require.NoError(t, err)
	return gate, users
}

// TestGateScenario verifies register, login, resolve and logout in sequence.
func TestGateScenario(t *testing.T) {
	gate, _ := newTestGate(t, session.NewMemory(nil))
	ctx := context.Background()

	alice, err := gate.Register(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)
	require.False(t, alice.ID.IsZero())
	require.NotEqual(t, "pw1", alice.PasswordHash)

	_, err = gate.Register(ctx, "Alice@Example.com ", "pw2")
	require.True(t, model.IsCode(err, model.ErrCodeConflict), "%+v", err)

	_, err = gate.Authenticate(ctx, "alice@example.com", "wrong")
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))

	token, err := gate.Authenticate(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	uid, err := gate.RequireUser(ctx, token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, uid)

	me, err := gate.CurrentUser(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", me.Email)

	me, err = gate.UserByID(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, alice.ID, me.ID)
	_, err = gate.UserByID(ctx, model.NewID())
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))
	_, err = gate.UserByID(ctx, model.RootID)
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))

	gate.EndSession(ctx, token)
	_, err = gate.RequireUser(ctx, token)
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))

	// logout is idempotent
	gate.EndSession(ctx, token)
	gate.EndSession(ctx, "")
}

// TestGateRegisterValidation verifies missing email and password are reported in order.
func TestGateRegisterValidation(t *testing.T) {
	gate, _ := newTestGate(t, session.NewMemory(nil))
	ctx := context.Background()

	_, err := gate.Register(ctx, "  ", "")
	typed, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrCodeValidation, typed.Code)
	require.Equal(t, model.MsgMissingEmail, typed.Message)

	_, err = gate.Register(ctx, "bob@example.com", "")
	typed, ok = model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.MsgMissingPassword, typed.Message)

	_, err = gate.Register(ctx, "bob@example.com", strings.Repeat("p", MaxPasswordBytes+8))
	typed, ok = model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.ErrCodeValidation, typed.Code)
	require.Equal(t, model.MsgPasswordTooLong, typed.Message)

	user, err := gate.Register(ctx, "bob@example.com", strings.Repeat("p", MaxPasswordBytes))
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", user.Email)
}

// TestGateRequireUserFailsClosed verifies every unresolvable token is UNAUTHORIZED.
func TestGateRequireUserFailsClosed(t *testing.T) {
	clock := &testClock{now: time.Now()}
	gate, _ := newTestGate(t, session.NewMemory(clock.Now))
	ctx := context.Background()

	_, err := gate.Register(ctx, "carol@example.com", "pw")
	require.NoError(t, err)
	token, err := gate.Authenticate(ctx, "carol@example.com", "pw")
	require.NoError(t, err)

	clock.now = clock.now.Add(session.DefaultTTL + time.Second)

	for name, tok := range map[string]string{
		"absent":     "",
		"never":      "6b0a1e7e-2d8e-4b55-9a35-3f1a0f0b6c11",
		"expired":    token,
		"whitespace": "   ",
	} {
		_, err := gate.RequireUser(ctx, tok)
		typed, ok := model.AsError(err)
		require.True(t, ok, name)
		require.Equal(t, model.ErrCodeUnauthorized, typed.Code, name)
		require.Equal(t, model.MsgUnauthorized, typed.Message, name)
	}

	broken, _ := newTestGate(t, brokenSessions{})
	_, err = broken.RequireUser(ctx, "anything")
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))

	// revoke failures are swallowed
	broken.EndSession(ctx, "anything")
}

// TestGateAuthenticateUnknownEmail verifies an unknown email looks like a wrong password.
func TestGateAuthenticateUnknownEmail(t *testing.T) {
	gate, _ := newTestGate(t, session.NewMemory(nil))

	_, err := gate.Authenticate(context.Background(), "nobody@example.com", "pw")
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))

	_, err = gate.Authenticate(context.Background(), "", "")
	require.True(t, model.IsCode(err, model.ErrCodeUnauthorized))
}

// TestGateStoreUnavailable verifies a disconnected document store short-circuits.
func TestGateStoreUnavailable(t *testing.T) {
	gate, users := newTestGate(t, session.NewMemory(nil))
	users.SetAlive(false)

	_, err := gate.Register(context.Background(), "", "")
	require.True(t, model.IsCode(err, model.ErrCodeStoreUnavailable))

	_, err = gate.Authenticate(context.Background(), "a@example.com", "pw")
	require.True(t, model.IsCode(err, model.ErrCodeStoreUnavailable))
}

// TestGateSessionTTL verifies sessions expire after the configured ttl.
func TestGateSessionTTL(t *testing.T) {
	clock := &testClock{now: time.Now()}
	users := store.NewMemory()
	gate, err := NewGate(users, session.NewMemory(clock.Now), logSDK.Shared.Named("test_auth"),
		WithHasher(NewBcryptHasher(bcrypt.MinCost)),
		WithSessionTTL(time.Minute),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = gate.Register(ctx, "dave@example.com", "pw")
	require.NoError(t, err)
	token, err := gate.Authenticate(ctx, "dave@example.com", "pw")
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Second)
	_, err = gate.RequireUser(ctx, token)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = gate.RequireUser(ctx, token)
	require.Error(t, err)
}

// TestNewGateRequiresDependencies verifies missing collaborators are rejected.
func TestNewGateRequiresDependencies(t *testing.T) {
	_, err := NewGate(nil, session.NewMemory(nil), logSDK.Shared)
	require.Error(t, err)
	_, err = NewGate(store.NewMemory(), nil, logSDK.Shared)
	require.Error(t, err)
}

// TestParseBasicAuth verifies the Authorization header decoding.
func TestParseBasicAuth(t *testing.T) {
	encode := func(s string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(s))
	}

	email, password, err := ParseBasicAuth(encode("alice@example.com:p:w"))
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", email)
	require.Equal(t, "p:w", password)

	for _, header := range []string{
		"",
		"Bearer abc",
		"Basic !!!",
		encode("no-colon"),
		encode(":pw"),
		encode("alice@example.com:"),
	} {
		_, _, err := ParseBasicAuth(header)
		require.True(t, model.IsCode(err, model.ErrCodeUnauthorized), header)
	}
}

// TestBcryptHasher verifies hashes verify only their own password.
func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret")
	require.NoError(t, err)
	require.NoError(t, h.Verify(hash, "secret"))
	require.Error(t, h.Verify(hash, "Secret"))
	require.Error(t, h.Verify("", "secret"))

	_, err = h.Hash("")
	require.Error(t, err)

	require.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
}
