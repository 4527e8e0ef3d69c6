package errors

// ErrorClassification indicates whether the failed operation may succeed if repeated.
type ErrorClassification string

const (
	// ClassificationRetryable indicates a temporary failure, such as a wait that timed out
	// while the command was still making progress.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates a failure that will recur, such as a malformed
	// command or an unregistered mock.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeTimeout: ClassificationRetryable,

	CodeInvalidInput:    ClassificationPermanent,
	CodeAlreadyRunning:  ClassificationPermanent,
	CodeCanceled:        ClassificationPermanent,
	CodeBrokenPipe:      ClassificationPermanent,
	CodeEOF:             ClassificationPermanent,
	CodeCallableFailed:  ClassificationPermanent,
	CodeExecutionFailed: ClassificationPermanent,
	CodeNotFound:        ClassificationPermanent,
	CodeInternal:        ClassificationPermanent,
	CodeUnknown:         ClassificationPermanent,
}

// getDefaultClassification returns the default classification for an error code.
// Unlisted codes are permanent.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
