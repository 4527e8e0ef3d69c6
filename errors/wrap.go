package errors

import "fmt"

// Wrap wraps err with a code and message while preserving it as the cause.
//
// If err already carries a PlatformError, its classification is preserved.
// Returns nil if err is nil.
//
// Example:
//
//	if err := cmd.Start(); err != nil {
//	    return errors.Wrap(err, errors.CodeExecutionFailed, "failed to spawn program")
//	}
func Wrap(err error, code ErrorCode, message string) PlatformError {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var platformErr PlatformError
	if As(err, &platformErr) {
		classification = platformErr.Classification()
	}

	return &platformError{
		code:           code,
		classification: classification,
		message:        message,
		cause:          err,
	}
}

// Wrapf wraps err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...any) PlatformError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps err and attaches a copy of ctx in one step.
// Returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]any) PlatformError {
	if err == nil {
		return nil
	}
	return WithContextMap(Wrap(err, code, message), ctx)
}
