// Package auth keeps the stored login credential and answers the agent's
// pre-flight question of whether a one-shot call may be attempted.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wardan/internal/logging"
	"wardan/internal/types"
)

const (
	TokenKey    = "auth_token"
	UsernameKey = "username"
	RoleKey     = "user_role"
)

const storageTimeout = 3 * time.Second

var ErrNotAuthenticated = errors.New("not authenticated")

type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend is the subset of the HTTP client used to log in.
type Backend interface {
	Login(ctx context.Context, username, password string) (*types.TokenResponse, error)
	Me(ctx context.Context, token string) (*types.CurrentUser, error)
}

type Manager struct {
	storage Storage
	logger  logging.Logger
	now     func() time.Time
}

func NewManager(storage Storage, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{storage: storage, logger: logger, now: time.Now}
}

// Login exchanges the password for a token, looks up the role behind it and
// persists all three values. A failed write removes the keys already stored.
func (m *Manager) Login(ctx context.Context, backend Backend, username, password string) (types.Credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.Credentials{}, errors.New("username and password are required")
	}
	token, err := backend.Login(ctx, username, password)
	if err != nil {
		return types.Credentials{}, err
	}
	creds := types.Credentials{Token: token.AccessToken, Username: username}
	user, err := backend.Me(ctx, token.AccessToken)
	if err != nil {
		return types.Credentials{}, err
	}
	if user.Username != "" {
		creds.Username = user.Username
	}
	creds.Role = user.Role

	// The token goes last so a partial write never looks like a login.
	fields := []struct{ key, value string }{
		{UsernameKey, creds.Username},
		{RoleKey, creds.Role},
		{TokenKey, creds.Token},
	}
	for i, field := range fields {
		if err := m.storage.Set(ctx, field.key, field.value); err != nil {
			for _, written := range fields[:i] {
				if derr := m.storage.Delete(context.WithoutCancel(ctx), written.key); derr != nil {
					m.logger.Warn("login rollback failed", logging.F("key", written.key), logging.Err(derr))
				}
			}
			return types.Credentials{}, err
		}
	}
	m.logger.Info("logged in", logging.F("user", creds.Username), logging.F("role", creds.Role))
	return creds, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	var errs []error
	for _, key := range []string{TokenKey, UsernameKey, RoleKey} {
		if err := m.storage.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.logger.Info("logged out")
	return nil
}

func (m *Manager) Credentials(ctx context.Context) (types.Credentials, error) {
	var creds types.Credentials
	targets := []struct {
		key string
		dst *string
	}{
		{TokenKey, &creds.Token},
		{UsernameKey, &creds.Username},
		{RoleKey, &creds.Role},
	}
	for _, target := range targets {
		value, _, err := m.storage.Get(ctx, target.key)
		if err != nil {
			return types.Credentials{}, err
		}
		*target.dst = value
	}
	if creds.Empty() {
		return creds, ErrNotAuthenticated
	}
	return creds, nil
}

// IsAuthenticated reports whether a usable token is stored. A JWT whose exp
// claim has passed counts as absent; signatures are the backend's business.
func (m *Manager) IsAuthenticated() bool {
	token := m.token()
	if token == "" {
		return false
	}
	return !m.expired(token)
}

// AuthHeader implements client.TokenSource.
func (m *Manager) AuthHeader() string {
	token := m.token()
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

func (m *Manager) token() string {
	if m == nil || m.storage == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	value, _, err := m.storage.Get(ctx, TokenKey)
	if err != nil {
		m.logger.Warn("auth token read failed", logging.Err(err))
		return ""
	}
	return strings.TrimSpace(value)
}

func (m *Manager) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens carry no expiry we can read.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(m.now())
}
