package errors

import (
	stderrors "errors"
	"fmt"
)

// ClassifiedError is an error carrying a category, a severity, a retry
// strategy, and structured context. Adapters map these onto HTTP status
// codes, CLI exit codes, and log levels without string matching.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.category, e.severity, e.message, e.cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.category, e.severity, e.message)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// Is treats two classified errors as equal when category and message match.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Cause() error                 { return e.cause }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// WithContext returns a copy with one more context entry. The receiver is
// never mutated; classified errors are safe to share.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	clone := *e
	clone.context = e.context.Set(key, value)
	return &clone
}

// WithContextMap returns a copy with all entries of ctx merged in.
func (e *ClassifiedError) WithContextMap(ctx ErrorContext) *ClassifiedError {
	clone := *e
	clone.context = e.context.Merge(ctx)
	return &clone
}

// IsCategory reports whether the error carries the given category.
func (e *ClassifiedError) IsCategory(category ErrorCategory) bool {
	return e.category == category
}

// IsSeverity reports whether the error carries the given severity.
func (e *ClassifiedError) IsSeverity(severity ErrorSeverity) bool {
	return e.severity == severity
}

// CanRetry reports whether retrying could help at all.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry != RetryNever && e.retry != RetryUserAction
}

// IsFatal reports whether execution should stop.
func (e *ClassifiedError) IsFatal() bool {
	return e.severity == SeverityFatal
}

// IsTransient reports whether the condition is expected to clear on its own.
func (e *ClassifiedError) IsTransient() bool {
	switch e.retry {
	case RetryImmediate, RetryBackoff, RetryRateLimit:
		return true
	}
	return false
}

// IsClassified reports whether err has a classified error in its chain.
func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

// AsClassified finds the first classified error in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory reports whether err's chain contains a classified error of
// the given category.
func HasCategory(err error, category ErrorCategory) bool {
	c, ok := AsClassified(err)
	return ok && c.IsCategory(category)
}

// HasSeverity reports whether err's chain contains a classified error of
// the given severity.
func HasSeverity(err error, severity ErrorSeverity) bool {
	c, ok := AsClassified(err)
	return ok && c.IsSeverity(severity)
}

// GetCategory extracts the category, defaulting to CategoryInternal for
// unclassified errors.
func GetCategory(err error) ErrorCategory {
	if c, ok := AsClassified(err); ok {
		return c.Category()
	}
	return CategoryInternal
}

// GetSeverity extracts the severity, defaulting to SeverityError.
func GetSeverity(err error) ErrorSeverity {
	if c, ok := AsClassified(err); ok {
		return c.Severity()
	}
	return SeverityError
}

// GetRetryStrategy extracts the retry strategy, defaulting to RetryNever.
func GetRetryStrategy(err error) RetryStrategy {
	if c, ok := AsClassified(err); ok {
		return c.RetryStrategy()
	}
	return RetryNever
}
