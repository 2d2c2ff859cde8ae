// Package session provides the stable correlation token that groups a user's
// utterances across turns and transports.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wardan/internal/logging"
)

// StorageKey is the fixed key the token is persisted under.
const StorageKey = "agentSessionId"

const (
	tokenLength    = 16
	storageTimeout = 3 * time.Second
)

type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Provider struct {
	storage Storage
	logger  logging.Logger
	newID   func() string

	mu     sync.Mutex
	cached string
}

func NewProvider(storage Storage, logger logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{storage: storage, logger: logger, newID: newToken}
}

// ID returns the session token, minting and persisting one on first use.
// Storage failures are logged; the token then lives for this process only.
func (p *Provider) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" {
		return p.cached
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	if p.storage != nil {
		stored, ok, err := p.storage.Get(ctx, StorageKey)
		if err != nil {
			p.logger.Warn("session token read failed", logging.Err(err))
		} else if ok && strings.TrimSpace(stored) != "" {
			p.cached = strings.TrimSpace(stored)
			return p.cached
		}
	}

	token := p.newID()
	if p.storage != nil {
		if err := p.storage.Set(ctx, StorageKey, token); err != nil {
			p.logger.Warn("session token not persisted", logging.Err(err))
		} else {
			p.logger.Info("session token created", logging.F("session", token))
		}
	}
	p.cached = token
	return token
}

// Reset forgets the token. The next ID call mints a new one.
func (p *Provider) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = ""
	if p.storage == nil {
		return nil
	}
	return p.storage.Delete(ctx, StorageKey)
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}
