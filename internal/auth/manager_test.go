package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardan/internal/store"
	"wardan/internal/types"
)

type fakeBackend struct {
	token    string
	user     types.CurrentUser
	loginErr error
	meToken  string
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*types.TokenResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &types.TokenResponse{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (*types.CurrentUser, error) {
	f.meToken = token
	return &f.user, nil
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "warden",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestLoginPersistsCredentials(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	m := NewManager(mem, nil)
	backend := &fakeBackend{token: "tok-1", user: types.CurrentUser{Username: "warden", Role: "admin"}}

	creds, err := m.Login(ctx, backend, " warden ", "pw")
	require.NoError(t, err)
	assert.Equal(t, types.Credentials{Token: "tok-1", Username: "warden", Role: "admin"}, creds)
	assert.Equal(t, "tok-1", backend.meToken)

	role, ok, err := mem.Get(ctx, RoleKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", role)

	stored, err := m.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds, stored)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "Bearer tok-1", m.AuthHeader())
}

func TestLoginFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	m := NewManager(mem, nil)

	_, err := m.Login(ctx, &fakeBackend{loginErr: errors.New("bad password")}, "warden", "pw")
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	_, err = m.Credentials(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

type failingStore struct {
	*store.MemoryStore
	failKey string
	sets    []string
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	f.sets = append(f.sets, key)
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestLoginWritesTokenLast(t *testing.T) {
	fs := &failingStore{MemoryStore: store.NewMemoryStore()}
	m := NewManager(fs, nil)
	backend := &fakeBackend{token: "tok-1", user: types.CurrentUser{Username: "warden", Role: "admin"}}

	_, err := m.Login(context.Background(), backend, "warden", "pw")
	require.NoError(t, err)
	assert.Equal(t, []string{UsernameKey, RoleKey, TokenKey}, fs.sets)
}

func TestLoginRollsBackPartialWrite(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{MemoryStore: store.NewMemoryStore(), failKey: TokenKey}
	m := NewManager(fs, nil)
	backend := &fakeBackend{token: "tok-1", user: types.CurrentUser{Username: "warden", Role: "admin"}}

	_, err := m.Login(ctx, backend, "warden", "pw")
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	for _, key := range []string{TokenKey, UsernameKey, RoleKey} {
		_, ok, err := fs.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestLoginRequiresUsernameAndPassword(t *testing.T) {
	m := NewManager(store.NewMemoryStore(), nil)
	_, err := m.Login(context.Background(), &fakeBackend{token: "x"}, "  ", "pw")
	assert.Error(t, err)
	_, err = m.Login(context.Background(), &fakeBackend{token: "x"}, "warden", "")
	assert.Error(t, err)
}

func TestLogoutClearsCredentials(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	m := NewManager(mem, nil)
	_, err := m.Login(ctx, &fakeBackend{token: "tok", user: types.CurrentUser{Role: "staff"}}, "warden", "pw")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.AuthHeader())
	for _, key := range []string{TokenKey, UsernameKey, RoleKey} {
		_, ok, err := mem.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestExpiredJWTIsNotAuthenticated(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	m := NewManager(mem, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, mem.Set(ctx, TokenKey, signed(t, now.Add(-time.Minute))))
	assert.False(t, m.IsAuthenticated())
	assert.NotEmpty(t, m.AuthHeader(), "the header is still offered; the backend decides")

	require.NoError(t, mem.Set(ctx, TokenKey, signed(t, now.Add(time.Hour))))
	assert.True(t, m.IsAuthenticated())
}

func TestOpaqueTokenIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, TokenKey, "not-a-jwt"))
	assert.True(t, NewManager(mem, nil).IsAuthenticated())
}
