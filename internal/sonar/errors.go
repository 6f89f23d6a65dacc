package sonar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedJSON is returned when a body is not JSON or lacks a required field.
	ErrMalformedJSON = errors.New("malformed response from server")

	// ErrHostNotFound is matched by every HostError.
	ErrHostNotFound = errors.New("host not found")
)

// HostError reports a server name that could not be resolved.
type HostError struct {
	Host string
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("Host %s not found", e.Host)
}

// Unwrap exposes both the sentinel and the resolver error.
func (e *HostError) Unwrap() []error {
	return []error{ErrHostNotFound, e.Err}
}

// StatusError is any non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx HTTP status code: %d %s", e.Code, http.StatusText(e.Code))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedJSON, fmt.Sprintf(format, args...))
}

// Describe turns err into the short cause shown to an interactive user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var hostErr *HostError
	var statusErr *StatusError
	switch {
	case errors.As(err, &hostErr):
		return hostErr.Error()
	case errors.Is(err, ErrMalformedJSON):
		return ErrMalformedJSON.Error()
	case errors.As(err, &statusErr):
		return fmt.Sprintf("server returned %d %s", statusErr.Code, http.StatusText(statusErr.Code))
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return err.Error()
	}
}
