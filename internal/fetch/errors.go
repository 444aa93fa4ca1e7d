package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means every attempt failed with a retryable status.
	ErrUnavailable = errors.New("upstream data unavailable")

	// ErrRateLimited classifies a 429 response.
	ErrRateLimited = errors.New("rate limited")

	// ErrServerError classifies any other non-success status.
	ErrServerError = errors.New("unexpected status")

	// ErrDataUnavailable means the call succeeded but the payload lacked the expected content.
	ErrDataUnavailable = errors.New("response lacks expected data")
)

// StatusError describes a non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Is maps the status to its retryable class.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Code == http.StatusTooManyRequests
	case ErrServerError:
		return e.Code != http.StatusTooManyRequests
	}
	return false
}

// UnavailableError is returned once the retry ceiling is reached.
type UnavailableError struct {
	Endpoint string
	Attempts int
	Last     *StatusError
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%s: giving up after %d attempt(s)", e.Endpoint, e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *UnavailableError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// TransportError is a connection-level failure. It aborts the retry loop
// immediately.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
