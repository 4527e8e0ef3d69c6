package errors

// PlatformError extends the standard error interface with a code, a retry
// classification and context metadata.
type PlatformError interface {
	error

	// Code returns the error code identifying the type of error.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Message returns the human-readable error message without the cause.
	Message() string

	// Context returns a copy of the attached metadata, or nil if there is none.
	Context() map[string]any

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}
