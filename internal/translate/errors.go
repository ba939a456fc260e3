package translate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// AuthError reports rejected credentials (HTTP 401 or 403).
type AuthError struct {
	Provider Provider
	Status   int
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed (status %d): %s", e.Provider, e.Status, e.Message)
}

// RateLimitError reports HTTP 429. RetryAfter is zero when the service did
// not say.
type RateLimitError struct {
	Provider   Provider
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s: %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Provider Provider
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is any other non-success response.
type APIError struct {
	Provider Provider
	Status   int
	Code     int // service specific, 0 when absent
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: API error %d (status %d): %s", e.Provider, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.Status, e.Message)
}

func statusError(provider Provider, status, code int, msg string, header http.Header) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: provider, Status: status, Message: msg}
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Provider: provider, RetryAfter: parseRetryAfter(header), Message: msg}
	default:
		return &APIError{Provider: provider, Status: status, Code: code, Message: msg}
	}
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classifyError maps SDK and transport errors onto the error types above.
// Context cancellation is returned unchanged.
func classifyError(provider Provider, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		var header http.Header
		if oaiErr.Response != nil {
			header = oaiErr.Response.Header
		}
		return statusError(provider, oaiErr.StatusCode, 0, oaiErr.Message, header)
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		var header http.Header
		if antErr.Response != nil {
			header = antErr.Response.Header
		}
		return statusError(provider, antErr.StatusCode, 0, antErr.Error(), header)
	}

	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return statusError(provider, genErr.Code, 0, genErr.Message, nil)
	}
	var genErrPtr *genai.APIError
	if errors.As(err, &genErrPtr) {
		return statusError(provider, genErrPtr.Code, 0, genErrPtr.Message, nil)
	}

	if isTransportError(err) {
		return &NetworkError{Provider: provider, Err: err}
	}
	return fmt.Errorf("%s: %w", provider, err)
}
