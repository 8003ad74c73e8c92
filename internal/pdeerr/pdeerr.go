// Package pdeerr defines the typed error taxonomy shared by every core
// component. Callers distinguish error kinds with errors.As, never by
// matching on message text.
package pdeerr

import "fmt"

// ToolFailure wraps a non-zero exit from an external tool invocation.
type ToolFailure struct {
	Tool   string
	Args   []string
	Exit   int
	Stderr string
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("%s %v: exit %d: %s", e.Tool, e.Args, e.Exit, e.Stderr)
}

// InsufficientSpace reports that an allocation request exceeds available space.
type InsufficientSpace struct {
	Needed    uint64
	Available uint64
}

func (e *InsufficientSpace) Error() string {
	return fmt.Sprintf("insufficient space: needed %d bytes, available %d bytes", e.Needed, e.Available)
}

// PreflightFailure reports a required external binary missing from PATH.
type PreflightFailure struct {
	MissingTool string
}

func (e *PreflightFailure) Error() string {
	return fmt.Sprintf("required tool %q not found on PATH", e.MissingTool)
}

// PreconditionUnmet reports an operation invoked before its precondition holds.
type PreconditionUnmet struct {
	What string
}

func (e *PreconditionUnmet) Error() string {
	return fmt.Sprintf("precondition unmet: %s", e.What)
}

// ArrayInconsistent reports that MD assembly observed a different member
// count than expected. Callers must re-run rediscover and retry explicitly.
type ArrayInconsistent struct {
	Expected int
	Found    int
}

func (e *ArrayInconsistent) Error() string {
	return fmt.Sprintf("array inconsistent: expected %d members, found %d", e.Expected, e.Found)
}

// WrongTuple reports that luksOpen rejected a (header, key, keyfile-offset) tuple.
type WrongTuple struct {
	Header string
	Key    string
	Offset int64
}

func (e *WrongTuple) Error() string {
	return fmt.Sprintf("wrong tuple: header=%s key=%s offset=%d did not open", e.Header, e.Key, e.Offset)
}

// RefusedUnconfirmed reports a destructive operation attempted without
// explicit confirmation.
type RefusedUnconfirmed struct {
	Operation string
}

func (e *RefusedUnconfirmed) Error() string {
	return fmt.Sprintf("refused: %s requires explicit confirmation", e.Operation)
}

// NotFound reports a named key, header, or page absent from its vault.
type NotFound struct {
	Path string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}
