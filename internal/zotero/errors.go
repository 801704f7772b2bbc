package zotero

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrVersionConflict indicates the library changed since the sent version (HTTP 412).
var ErrVersionConflict = errors.New("library version conflict")

// ErrRequestTooLarge indicates the batch exceeded the request size limit (HTTP 413).
var ErrRequestTooLarge = errors.New("request entity too large")

// ErrMissingVersion indicates a response without a Last-Modified-Version header.
var ErrMissingVersion = errors.New("response carries no library version")

// RateLimitError is returned on HTTP 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// ServerError represents a 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: HTTP %d", e.StatusCode)
}

// APIError is any other unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps a failure to get any response at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a failed request may succeed when repeated
// unchanged: timeouts, connection failures and 5xx responses.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var (
		serverErr *ServerError
		apiErr    *APIError
		rateErr   *RateLimitError
	)
	switch {
	case errors.Is(err, ErrVersionConflict):
		return 412
	case errors.Is(err, ErrRequestTooLarge):
		return 413
	case errors.As(err, &rateErr):
		return 429
	case errors.As(err, &serverErr):
		return serverErr.StatusCode
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	}
	return 0
}
