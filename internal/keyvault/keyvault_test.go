package keyvault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opaquefs/freedom/internal/pdeerr"
)

func TestCreate_GeneratesRequestedCount(t *testing.T) {
	root := t.TempDir()
	v := NewVault(root, 8192, 512)

	keys, err := v.Create(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	for _, k := range keys {
		info, err := os.Stat(k.Path)
		if err != nil {
			t.Fatalf("expected key file to exist: %v", err)
		}
		if info.Size() != 8192 {
			t.Errorf("expected 8192 bytes, got %d", info.Size())
		}
	}
}

func TestList_EmptyVaultReturnsNil(t *testing.T) {
	root := t.TempDir()
	v := NewVault(root, 8192, 512)

	infos, err := v.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no keys, got %d", len(infos))
	}
}

func TestRemove_RefusedWithoutConfirmation(t *testing.T) {
	root := t.TempDir()
	v := NewVault(root, 8192, 512)
	if _, err := v.Create(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := v.Remove(false)
	var refused *pdeerr.RefusedUnconfirmed
	if !errors.As(err, &refused) {
		t.Fatalf("expected *pdeerr.RefusedUnconfirmed, got %T: %v", err, err)
	}

	entries, _ := os.ReadDir(filepath.Join(root, SubDir))
	if len(entries) != 1 {
		t.Fatalf("expected key to survive refused remove, found %d entries", len(entries))
	}
}

func TestRemove_ConfirmedUnlinksEverything(t *testing.T) {
	root := t.TempDir()
	v := NewVault(root, 8192, 512)
	if _, err := v.Create(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := v.Remove(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(root, SubDir))
	if len(entries) != 0 {
		t.Fatalf("expected vault to be empty, found %d entries", len(entries))
	}
}
