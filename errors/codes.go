package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and readable log output.
type ErrorCode string

const (
	// Validation errors.

	// CodeInvalidInput indicates a malformed command, stdio configuration or mock rule.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Lifecycle errors.

	// CodeAlreadyRunning indicates a command was started while live or after it finished.
	CodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// CodeTimeout indicates a wait exceeded its deadline. The command keeps running.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeCanceled indicates a wait was abandoned because its context was canceled.
	CodeCanceled ErrorCode = "CANCELED"

	// Stream errors.

	// CodeBrokenPipe indicates a strict write to, or a pipe into, a closed stream.
	CodeBrokenPipe ErrorCode = "BROKEN_PIPE"

	// CodeEOF indicates a pipe was requested from a stream that is already closed.
	CodeEOF ErrorCode = "EOF"

	// Execution errors.

	// CodeCallableFailed indicates an in-process callable returned an error or panicked.
	CodeCallableFailed ErrorCode = "CALLABLE_FAILED"

	// CodeExecutionFailed indicates a program could not be spawned or exited non-zero.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeNotFound indicates no registered mock pattern matched an invocation.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// System errors.

	// CodeInternal indicates an internal error, such as an unexpected pump failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
