package notion

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	// ErrRateLimited is wrapped by APIError when the source answered 429.
	ErrRateLimited = errors.New("notion: rate limited")
	// ErrUnavailable is wrapped by APIError for 5xx answers.
	ErrUnavailable = errors.New("notion: service unavailable")
)

// APIError is a non-2xx answer from the remote source.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		e.Code = doc.Get("code").String()
		e.Message = doc.Get("message").String()
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.Err = ErrRateLimited
	case status >= http.StatusInternalServerError:
		e.Err = ErrUnavailable
	}
	return e
}
