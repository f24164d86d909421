package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSource      = errors.New("invalid source")
	ErrFormatNotSupported = errors.New("format not supported")
	ErrRemoteService      = errors.New("remote service failure")
	ErrTimeout            = errors.New("processing timeout")
	ErrNotFound           = errors.New("not found")
	ErrOverloaded         = errors.New("job queue at capacity")
	ErrTemporary          = errors.New("temporary failure")
)

// Wire-level error codes exposed in the error envelope.
const (
	CodeFormatNotSupported = "FORMAT_NOT_SUPPORTED"
	CodeInvalidSource      = "INVALID_SOURCE"
	CodeRemoteService      = "REMOTE_SERVICE_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeOverloaded         = "OVERLOADED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorCode translates a pipeline error into its wire code. Unexpected
// defects collapse to CodeInternal so internals never leak to callers.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrFormatNotSupported):
		return CodeFormatNotSupported
	case IsKind(err, ErrInvalidSource):
		return CodeInvalidSource
	case IsKind(err, ErrTimeout):
		return CodeTimeout
	case IsKind(err, ErrRemoteService):
		return CodeRemoteService
	case IsKind(err, ErrOverloaded):
		return CodeOverloaded
	case IsKind(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
