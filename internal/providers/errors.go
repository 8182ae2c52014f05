package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitError reports a 429. RetryAfter carries the server's hint when
// one was given, zero otherwise.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return "rate limited" }

// AuthError reports rejected credentials. Never retryable.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "authentication error: " + e.Message
}

// ServerError reports a 5xx.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Body)
}

// TransportError reports a failure before any HTTP status arrived.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a non-auth 4xx. The request itself is bad, so
// repeating it cannot help.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

// IsRetryable reports whether a fresh attempt could plausibly succeed.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var se *ServerError
	var te *TransportError
	return errors.As(err, &rl) || errors.As(err, &se) || errors.As(err, &te)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// statusError maps a non-200 response to its typed error.
func statusError(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfterHint(resp)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Message: strings.TrimSpace(string(body))}
	case resp.StatusCode >= 500:
		return &ServerError{Status: resp.StatusCode, Body: string(body)}
	default:
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
}

func retryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
