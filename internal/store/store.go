package store

import (
	"context"
	"errors"
	"strings"
)

const (
	BackendFile  = "file"
	BackendBbolt = "bbolt"
)

// Store is durable client-side key/value storage, the terminal counterpart of
// a browser profile's local storage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Backend() string
	Close() error
}

type Paths struct {
	DBPath   string
	JSONPath string
}

func Open(paths Paths, backend string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt store")
		}
		return NewBboltStore(paths.DBPath)
	case BackendFile:
		if strings.TrimSpace(paths.JSONPath) == "" {
			return nil, errors.New("json path is required for file store")
		}
		return NewFileStore(paths.JSONPath), nil
	default:
		return nil, errors.New("unsupported store backend: " + backend)
	}
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("key is required")
	}
	return key, nil
}
