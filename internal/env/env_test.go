package env

import (
	"context"
	"testing"

	"github.com/opaquefs/freedom/internal/config"
)

func TestStatus_EmptyRootIsAllInactive(t *testing.T) {
	cfg := config.Defaults()
	cfg.Root = t.TempDir()
	e := New(&cfg)

	state, err := e.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.BackingActive {
		t.Error("expected BackingActive=false on an empty root")
	}
	if state.MDName != "" {
		t.Errorf("expected no MD array, got %q", state.MDName)
	}
	if state.LUKSOpen {
		t.Error("expected LUKSOpen=false with no mapper present")
	}
}

func TestKeysCreate_DefaultsToConfigCount(t *testing.T) {
	cfg := config.Defaults()
	cfg.Root = t.TempDir()
	cfg.KeyCount = 3
	e := New(&cfg)

	keys, err := e.KeysCreate(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys from config default, got %d", len(keys))
	}
}
