// Package client provides a Go client for the Luma HTTP API.
package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error from the Luma API with the HTTP status code
// and the server's error message.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("luma: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func statusIs(err error, code int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == code
	}
	return false
}

// IsRateLimited returns true if the error is a 429 (Too Many Requests).
func IsRateLimited(err error) bool {
	return statusIs(err, http.StatusTooManyRequests)
}

// IsUnavailable returns true if the server has no chat model configured or
// the layer catalog could not be fetched (503).
func IsUnavailable(err error) bool {
	return statusIs(err, http.StatusServiceUnavailable)
}

// IsInvalidInput returns true if the request was rejected as malformed (400).
func IsInvalidInput(err error) bool {
	return statusIs(err, http.StatusBadRequest)
}
