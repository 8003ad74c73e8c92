// Package exec is the Tool Invoker: it runs external binaries, captures
// their stdout/stderr/exit status, and surfaces every non-zero exit as a
// typed pdeerr.ToolFailure. No error from an external tool is ever
// swallowed.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/pdeerr"
)

// ExecCommand is exec.CommandContext by default; tests substitute a fake
// to stage kernel-dependent properties without touching real devices.
var ExecCommand = exec.CommandContext

// Result holds the captured output of a single tool invocation.
type Result struct {
	Stdout string
	Stderr string
	Exit   int
}

// Run executes programName with programArgs, waits for it to finish, and
// returns its captured output. A non-zero exit is returned as
// *pdeerr.ToolFailure, never silently ignored.
func Run(ctx context.Context, programName string, programArgs ...string) (Result, error) {
	cmd := ExecCommand(ctx, programName, programArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithFields(log.Fields{"tool": programName, "args": programArgs}).Debug("running external tool")

	runErr := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if runErr == nil {
		result.Exit = 0
		return result, nil
	}

	exitErr, isExit := runErr.(*exec.ExitError)
	if !isExit {
		// The binary never started (not found, permission denied, ...).
		return result, fmt.Errorf("starting %s: %w", programName, runErr)
	}
	result.Exit = exitErr.ExitCode()

	log.WithFields(log.Fields{
		"tool":   programName,
		"args":   programArgs,
		"exit":   result.Exit,
		"stderr": result.Stderr,
	}).Error("external tool failed")

	return result, &pdeerr.ToolFailure{
		Tool:   programName,
		Args:   programArgs,
		Exit:   result.Exit,
		Stderr: result.Stderr,
	}
}

// Preflight verifies every named binary is resolvable on PATH. It must be
// called before the first use of any component that shells out.
func Preflight(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return &pdeerr.PreflightFailure{MissingTool: name}
		}
	}
	return nil
}
