package mdarray

import (
	"context"
	"errors"
	"testing"

	"github.com/opaquefs/freedom/internal/pages"
	"github.com/opaquefs/freedom/internal/pdeerr"
)

func TestStart_NoPagesReportsPreconditionUnmet(t *testing.T) {
	root := t.TempDir()
	store := pages.NewStore(root)
	c := NewController(store, "freedom-test")

	_, err := c.Start(context.Background())
	var unmet *pdeerr.PreconditionUnmet
	if !errors.As(err, &unmet) {
		t.Fatalf("expected *pdeerr.PreconditionUnmet, got %T: %v", err, err)
	}
}

func TestStatus_NoArrayReturnsNilWithoutError(t *testing.T) {
	root := t.TempDir()
	store := pages.NewStore(root)
	c := NewController(store, "definitely-not-a-real-md-xyz")

	array, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if array != nil {
		t.Fatalf("expected no array owned by an empty root, got %+v", array)
	}
}

func TestStop_IdempotentWhenNeverStarted(t *testing.T) {
	root := t.TempDir()
	store := pages.NewStore(root)
	c := NewController(store, "definitely-not-a-real-md-xyz")

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("expected idempotent no-op, got %v", err)
	}
}
