// Package errors provides the structured errors used throughout subproc.
//
// Every failure surfaced by the stream, exec and mock packages is a
// PlatformError: an error carrying a stable ErrorCode, a retry classification,
// optional context metadata and (when wrapping) the original cause. The package
// stays compatible with the standard library, so errors.Is, errors.As and
// errors.Unwrap traverse the chain as usual.
//
// # Error Codes
//
// Codes map onto the failure taxonomy of process and stream orchestration:
//
//   - CodeInvalidInput: malformed command, stdio configuration or mock rule
//   - CodeAlreadyRunning: a command was started twice
//   - CodeBrokenPipe: a write to, or pipe into, a closed stream
//   - CodeEOF: a pipe from a stream that has already reached end of data
//   - CodeCallableFailed: an in-process callable returned an error or panicked
//   - CodeTimeout, CodeCanceled: a wait gave up before the command finished
//   - CodeNotFound: no mock rule matched an invoked argv
//   - CodeExecutionFailed: the OS refused to spawn a program, or it exited non-zero
//   - CodeInternal, CodeUnknown: everything else
//
// # Usage
//
//	err := errors.New(errors.CodeAlreadyRunning, "command already running")
//	err = errors.WithContext(err, "argv", []string{"sleep", "1"})
//
//	if errors.GetCode(err) == errors.CodeTimeout {
//	    // the command is still running and may be killed
//	}
//
// Timeouts are classified as retryable; all other codes are permanent.
package errors
