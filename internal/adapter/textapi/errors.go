package textapi

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNoLocation = errors.New("accepted response missing operation location header")

// PollTimeoutError is returned when an operation is still pending after the
// configured number of status checks. Tries is the number of checks actually
// performed.
type PollTimeoutError struct {
	Tries int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("operation still pending after %d status checks", e.Tries)
}

// UnknownStatusError is returned when a status body carries a state outside
// the known vocabulary, or no recognizable status field at all. It is never
// coerced to pending or ready; it usually means a protocol or version
// mismatch with the remote service.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	if e.Status == "" {
		return "status response has no recognizable status field"
	}
	return fmt.Sprintf("unknown remote status %q", e.Status)
}

// retryableStatus reports whether a response status code is worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
