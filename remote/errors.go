package remote

import (
	"errors"
	"fmt"

	"DetOverlay/monitor"
)

var (
	// ErrTimeout is returned when the prediction deadline expires.
	ErrTimeout = errors.New("remote: request timed out")
	// ErrCanceled is returned when the caller cancels, e.g. a newer file was selected.
	ErrCanceled = errors.New("remote: request canceled")
	// ErrMalformedResponse matches any *MalformedResponseError.
	ErrMalformedResponse = errors.New("remote: malformed response")
)

// HTTPError carries a non-2xx status and the raw body.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// MalformedResponseError wraps a JSON decode failure.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

const (
	TimeoutMessage   = "Timeout: the model took too long. Lower the confidence or try a smaller image."
	MalformedMessage = "Could not parse the server response."
)

// Message turns an error from this package into the text shown in the
// results panel.
func Message(err error) string {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return TimeoutMessage
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.Is(err, ErrMalformedResponse):
		return MalformedMessage
	default:
		return err.Error()
	}
}

// Outcome names err for the prediction metrics.
func Outcome(err error) string {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return monitor.OutcomeOK
	case errors.Is(err, ErrTimeout):
		return monitor.OutcomeTimeout
	case errors.Is(err, ErrCanceled):
		return monitor.OutcomeCanceled
	case errors.As(err, &httpErr):
		return monitor.OutcomeHTTPError
	case errors.Is(err, ErrMalformedResponse):
		return monitor.OutcomeMalformed
	default:
		return monitor.OutcomeError
	}
}
