package mapper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	execpkg "github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/pdeerr"
)

func TestOpen_MissingHeaderReportsNotFound(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key")
	if err := os.WriteFile(keyPath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewMapper("/dev/md/freedom", "freedom", 64)
	err := m.Open(context.Background(), filepath.Join(dir, "missing-header"), keyPath, 0, false)
	var notFound *pdeerr.NotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *pdeerr.NotFound, got %T: %v", err, err)
	}
}

func TestOpen_RejectedTupleReportsWrongTuple(t *testing.T) {
	dir := t.TempDir()
	headerPath := filepath.Join(dir, "header")
	keyPath := filepath.Join(dir, "key")
	if err := os.WriteFile(headerPath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	original := execpkg.ExecCommand
	execpkg.ExecCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	}
	defer func() { execpkg.ExecCommand = original }()

	m := NewMapper("/dev/md/freedom", "freedom", 64)
	err := m.Open(context.Background(), headerPath, keyPath, 0, false)
	var wrongTuple *pdeerr.WrongTuple
	if !errors.As(err, &wrongTuple) {
		t.Fatalf("expected *pdeerr.WrongTuple, got %T: %v", err, err)
	}
}

func TestClose_NoOpWhenNotOpen(t *testing.T) {
	m := NewMapper("/dev/md/freedom", "definitely-not-open-xyz", 64)
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("expected idempotent no-op, got %v", err)
	}
}
