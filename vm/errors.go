package vm

import "fmt"

// FatalError reports a violated machine invariant: a tape that does not
// match its precomputed size, an unknown opcode, or a stack that does not
// end with exactly one value. These indicate a compiler bug, never bad
// user input, and are raised with panic.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return "vm: fatal: " + e.Reason
}

func fatalf(format string, args ...any) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...)}
}
