package remote

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/vbelyaev/docgate/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "remote status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("remote %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("remote %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// classifyRemoteError grades HTTP failures for the executor. Server-side
// and throttling statuses are worth retrying and count against the
// breaker; client errors are permanent and say nothing about the remote's
// health. Context errors never reach this classifier.
func classifyRemoteError(err error) resilience.Outcome {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		retryable := isRetryableHTTPStatus(statusErr.StatusCode)
		return resilience.Outcome{Retry: retryable, CountAsFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Outcome{Retry: true, CountAsFailure: true}
	}

	return resilience.Outcome{CountAsFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
