package usecase

import "fmt"

type ErrorCode string

const (
	ErrorCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	ErrorInferenceFailed    ErrorCode = "INFERENCE_FAILED"
	ErrorUnhandled          ErrorCode = "UNHANDLED"
)

// Error tags a failure with the kind it is logged under. None of these reach
// the caller; they are degraded to an empty catalog or a spoken apology.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func NewError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LogAttrs returns the slog key/value pairs a failure is recorded with,
// followed by any extra pairs.
func (e *Error) LogAttrs(extra ...any) []any {
	attrs := make([]any, 0, 6+len(extra))
	attrs = append(attrs, "error_code", string(e.Code), "reason", e.Reason, "err", e)
	return append(attrs, extra...)
}
