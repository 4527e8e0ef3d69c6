package exec

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyRunning is the cause of starting a command twice.
	ErrAlreadyRunning = stderrors.New("command already started")

	// ErrNotStarted is the cause of signaling a command that was never started.
	ErrNotStarted = stderrors.New("command not started")
)

// ExecError represents a command that finished with a non-zero return code.
// It includes the exit code, the command that was run, and any captured output.
type ExecError struct {
	// Command is the full command that was executed (including arguments)
	Command []string

	// ExitCode is the return code of the command
	ExitCode int

	// Stdout is the captured standard output
	Stdout []string

	// Stderr is the captured standard error
	Stderr []string

	// Err is the underlying error from the execution
	Err error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	cmd := strings.Join(e.Command, " ")
	if e.Err != nil {
		return fmt.Sprintf("command %q failed with exit code %d: %v", cmd, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command %q failed with exit code %d", cmd, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}
