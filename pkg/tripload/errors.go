package tripload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := svc.Ingest(ctx, cfg)
//	if errors.Is(err, tripload.ErrEmptySource) {
//	    // nothing was written
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSourceUnavailable indicates the source could not be opened or decoded.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmptySource indicates the source produced no batch at all.
	ErrEmptySource = errors.New("source is empty")

	// ErrTypeCoercion indicates a source value does not fit its column type.
	ErrTypeCoercion = errors.New("type coercion failed")

	// ErrWriteFailed indicates creating the table or appending rows failed.
	ErrWriteFailed = errors.New("write failed")
)

// CoercionError describes a single value that could not be converted.
// It matches ErrTypeCoercion with errors.Is.
type CoercionError struct {
	Row    int64 // 1-based data row number, header excluded
	Column string
	Value  string
	Type   ColumnType
	Err    error
}

func (e *CoercionError) Error() string {
	value := e.Value
	if len(value) > MaxErrorPreviewLength {
		value = value[:MaxErrorPreviewLength] + "..."
	}
	msg := fmt.Sprintf("row %d, column %q: cannot convert %q to %s", e.Row, e.Column, value, e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTypeCoercion.
func (e *CoercionError) Is(target error) bool { return target == ErrTypeCoercion }

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrEmptySource):
		return ExitEmptySource
	case errors.Is(err, ErrTypeCoercion):
		return ExitCoercionError
	case errors.Is(err, ErrSourceUnavailable):
		return ExitSourceUnavailable
	case errors.Is(err, ErrWriteFailed):
		return ExitWriteFailed
	}

	errStr := err.Error()

	// cobra reports flag and argument misuse as plain errors
	for _, prefix := range []string{"unknown flag", "unknown shorthand flag", "unknown command", "accepts ", "required flag", "invalid argument"} {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
