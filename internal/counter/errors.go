package counter

import (
	"errors"
	"fmt"
)

// ErrAlreadyMounted is returned by Mount on a poller that is already running.
var ErrAlreadyMounted = errors.New("counter: poller already mounted")

// TransportError means the request never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("counter: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError means the endpoint answered with a non-success status.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("counter: remote status %d", e.StatusCode)
	}
	return fmt.Sprintf("counter: remote status %d: %s", e.StatusCode, e.Body)
}

// DecodeError means the body was not a non-negative integer or an object carrying one.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("counter: decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("counter: decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorKind names the class of a poll failure for logs and metrics.
func ErrorKind(err error) string {
	var (
		transport *TransportError
		status    *HTTPStatusError
		decode    *DecodeError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &status):
		return "http_status"
	case errors.As(err, &decode):
		return "decode"
	default:
		return "unknown"
	}
}
