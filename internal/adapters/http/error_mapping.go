package httpadapter

import (
	"net/http"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidSource):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrFormatNotSupported):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTimeout):
		return http.StatusRequestTimeout
	case domain.IsKind(err, domain.ErrOverloaded):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrRemoteService):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorEnvelope struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// writeError renders the uniform error envelope. Unclassified errors are
// reported as INTERNAL with a generic message so internals never reach the
// caller.
func writeError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	message := err.Error()
	if code == domain.CodeInternal {
		message = "internal error"
	}
	writeJSON(w, mapErrorToHTTPStatus(err), errorEnvelope{
		ErrorCode: code,
		Message:   message,
	})
}
