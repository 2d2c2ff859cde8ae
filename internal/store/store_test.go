package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	bbolt, err := Open(Paths{DBPath: filepath.Join(dir, "state.db")}, BackendBbolt)
	if err != nil {
		t.Fatalf("open bbolt: %v", err)
	}
	file, err := Open(Paths{JSONPath: filepath.Join(dir, "state.json")}, BackendFile)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	return map[string]Store{
		BackendBbolt: bbolt,
		BackendFile:  file,
		"memory":     NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			if _, ok, err := s.Get(ctx, "agentSessionId"); err != nil || ok {
				t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
			}
			if err := s.Set(ctx, "agentSessionId", "k3j2h1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			value, ok, err := s.Get(ctx, "agentSessionId")
			if err != nil || !ok || value != "k3j2h1" {
				t.Fatalf("unexpected get: value=%q ok=%v err=%v", value, ok, err)
			}
			if err := s.Set(ctx, "agentSessionId", "other"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			if value, _, _ := s.Get(ctx, "agentSessionId"); value != "other" {
				t.Fatalf("expected overwrite, got %q", value)
			}
			if err := s.Delete(ctx, "agentSessionId"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "agentSessionId"); ok {
				t.Fatalf("expected key to be deleted")
			}
			if err := s.Delete(ctx, "never-set"); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
			if err := s.Set(ctx, "  ", "x"); err == nil {
				t.Fatalf("expected blank key to be rejected")
			}
		})
	}
}

func TestBboltStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	first, err := NewBboltStore(path)
	if err != nil {
		t.Fatalf("NewBboltStore: %v", err)
	}
	if err := first.Set(ctx, "auth_token", "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = first.Close()

	second, err := NewBboltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, ok, err := second.Get(ctx, "auth_token")
	if err != nil || !ok || value != "tok" {
		t.Fatalf("unexpected value after reopen: %q ok=%v err=%v", value, ok, err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open(Paths{DBPath: "x"}, "pebble"); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	if _, err := Open(Paths{}, BackendBbolt); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			if err := s.Set(ctx, "agentSessionId", "x"); !errors.Is(err, context.Canceled) {
				t.Fatalf("Set: expected context.Canceled, got %v", err)
			}
			if _, _, err := s.Get(ctx, "agentSessionId"); !errors.Is(err, context.Canceled) {
				t.Fatalf("Get: expected context.Canceled, got %v", err)
			}
			if err := s.Delete(ctx, "agentSessionId"); !errors.Is(err, context.Canceled) {
				t.Fatalf("Delete: expected context.Canceled, got %v", err)
			}
			if _, ok, err := s.Get(context.Background(), "agentSessionId"); err != nil || ok {
				t.Fatalf("expected nothing stored, ok=%v err=%v", ok, err)
			}
		})
	}
}
