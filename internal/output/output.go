package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/opaquefs/freedom/internal/pdeerr"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitNetwork      = 2
	ExitTimeout      = 3
	ExitNotFound     = 4
	ExitPrecondition = 5
	ExitRefused      = 6
	ExitInterrupted  = 130
)

// ExitFor maps a core error to the process exit code the outer shell
// should return. Unrecognized errors fall back to ExitError.
func ExitFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var notFound *pdeerr.NotFound
	if errors.As(err, &notFound) {
		return ExitNotFound
	}
	var precondition *pdeerr.PreconditionUnmet
	if errors.As(err, &precondition) {
		return ExitPrecondition
	}
	var refused *pdeerr.RefusedUnconfirmed
	if errors.As(err, &refused) {
		return ExitRefused
	}
	return ExitError
}

var (
	flagJSON    bool
	flagQuiet   bool
	flagVerbose bool
)

// SetFlags is called by the root command's PersistentPreRun to propagate flag values.
func SetFlags(jsonMode, quiet, verbose bool) {
	flagJSON = jsonMode
	flagQuiet = quiet
	flagVerbose = verbose
}

// IsJSON returns true when --json mode is active.
func IsJSON() bool { return flagJSON }

// IsQuiet returns true when --quiet mode is active.
func IsQuiet() bool { return flagQuiet }

// IsVerbose returns true when --verbose mode is active.
func IsVerbose() bool { return flagVerbose }

// PrintJSON marshals v as JSON and writes it to w.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintError writes a JSON error envelope to w.
func PrintError(w io.Writer, code string, message string) error {
	return PrintJSON(w, map[string]string{
		"error":   code,
		"message": message,
	})
}
