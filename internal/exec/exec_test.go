package exec

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/opaquefs/freedom/internal/pdeerr"
)

func TestRun_Success(t *testing.T) {
	ExecCommand = exec.CommandContext
	result, err := Run(context.Background(), "true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Exit != 0 {
		t.Errorf("expected exit 0, got %d", result.Exit)
	}
}

func TestRun_NonZeroExitSurfacesToolFailure(t *testing.T) {
	ExecCommand = exec.CommandContext
	_, err := Run(context.Background(), "false")
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	var toolErr *pdeerr.ToolFailure
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *pdeerr.ToolFailure, got %T: %v", err, err)
	}
	if toolErr.Tool != "false" {
		t.Errorf("expected tool=false, got %q", toolErr.Tool)
	}
}

func TestRun_BinaryNotFound(t *testing.T) {
	ExecCommand = exec.CommandContext
	_, err := Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary, got nil")
	}
	var toolErr *pdeerr.ToolFailure
	if errors.As(err, &toolErr) {
		t.Fatal("a binary that never started should not be a ToolFailure")
	}
}

func TestPreflight_MissingTool(t *testing.T) {
	err := Preflight("definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected PreflightFailure, got nil")
	}
	var preErr *pdeerr.PreflightFailure
	if !errors.As(err, &preErr) {
		t.Fatalf("expected *pdeerr.PreflightFailure, got %T: %v", err, err)
	}
	if preErr.MissingTool != "definitely-not-a-real-binary-xyz" {
		t.Errorf("unexpected MissingTool: %q", preErr.MissingTool)
	}
}

func TestPreflight_AllPresent(t *testing.T) {
	if err := Preflight("true", "false"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
