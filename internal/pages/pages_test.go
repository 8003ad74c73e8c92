package pages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opaquefs/freedom/internal/pdeerr"
)

func TestAllocate_InsufficientSpaceRaisesBeforeCreatingFiles(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root)

	// A page size far larger than any plausible free space on the test
	// filesystem forces InsufficientSpace without needing to fake statvfs.
	_, err := st.Allocate(context.Background(), 1<<62, 0, false)
	if err == nil {
		t.Fatal("expected InsufficientSpace, got nil")
	}
	var spaceErr *pdeerr.InsufficientSpace
	if !errors.As(err, &spaceErr) {
		t.Fatalf("expected *pdeerr.InsufficientSpace, got %T: %v", err, err)
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("expected no files created on InsufficientSpace, found %d", len(entries))
	}
}

func TestAllocate_SimulatedReportsPlanWithoutWriting(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root)

	alloc, err := st.Allocate(context.Background(), 1<<20, 3, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alloc.Created) != 3 {
		t.Fatalf("expected 3 planned pages, got %d", len(alloc.Created))
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("simulated allocation must not write files, found %d", len(entries))
	}
}

func TestRediscover_IgnoresNonUUIDNames(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "not-a-uuid.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "4f9c6b8a-2e3d-4a1b-9c7e-1a2b3c4d5e6f"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	st := NewStore(root)
	set, err := st.Rediscover(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Pages) != 1 {
		t.Fatalf("expected 1 UUID-shaped page, got %d", len(set.Pages))
	}
	if set.Pages[0].Name != "4f9c6b8a-2e3d-4a1b-9c7e-1a2b3c4d5e6f" {
		t.Errorf("unexpected page name: %s", set.Pages[0].Name)
	}
}

func TestRediscover_Idempotent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "4f9c6b8a-2e3d-4a1b-9c7e-1a2b3c4d5e6f"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	st := NewStore(root)

	first, err := st.Rediscover(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := st.Rediscover(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Pages) != len(second.Pages) {
		t.Fatalf("rediscover not idempotent: %d vs %d pages", len(first.Pages), len(second.Pages))
	}
}

func TestRemove_RefusedWithoutConfirmation(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "4f9c6b8a-2e3d-4a1b-9c7e-1a2b3c4d5e6f")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	st := NewStore(root)

	err := st.Remove(context.Background(), false)
	if err == nil {
		t.Fatal("expected RefusedUnconfirmed, got nil")
	}
	var refused *pdeerr.RefusedUnconfirmed
	if !errors.As(err, &refused) {
		t.Fatalf("expected *pdeerr.RefusedUnconfirmed, got %T: %v", err, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should still exist after refused remove: %v", err)
	}
}
