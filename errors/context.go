package errors

import "maps"

// WithContext returns a copy of err with one context field added.
// Existing fields are preserved. Foreign errors become CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "command_id", c.ID())
func WithContext(err error, key string, value any) PlatformError {
	if err == nil {
		return nil
	}
	return WithContextMap(err, map[string]any{key: value})
}

// WithContextMap returns a copy of err with ctx merged into its context.
// New fields override existing ones with the same key. Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]any) PlatformError {
	if err == nil {
		return nil
	}

	platformErr := asPlatform(err)
	merged := platformErr.Context()
	if merged == nil {
		merged = make(map[string]any, len(ctx))
	}
	maps.Copy(merged, ctx)

	return &platformError{
		code:           platformErr.Code(),
		classification: platformErr.Classification(),
		message:        platformErr.Message(),
		context:        merged,
		cause:          platformErr.Unwrap(),
	}
}

// WithClassification returns a copy of err with its classification overridden.
// Returns nil if err is nil.
func WithClassification(err error, classification ErrorClassification) PlatformError {
	if err == nil {
		return nil
	}

	platformErr := asPlatform(err)
	return &platformError{
		code:           platformErr.Code(),
		classification: classification,
		message:        platformErr.Message(),
		context:        platformErr.Context(),
		cause:          platformErr.Unwrap(),
	}
}
