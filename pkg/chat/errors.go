package chat

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingParameters is wrapped by the RequestError for a request
	// without message or household.
	ErrMissingParameters = errors.New("message and household_id are required")

	// ErrExchangeFailed is returned by Chat when the provider or the
	// conversation store failed after work started.
	ErrExchangeFailed = errors.New("chat exchange failed")

	errClientGone = errors.New("client disconnected")
)

// RequestError rejects a request before any stream is opened.
type RequestError struct {
	Status      int
	Fingerprint string
	Message     string
	Err         error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Fingerprint, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusOf maps an error from the orchestrator to an HTTP status.
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return http.StatusInternalServerError
}
