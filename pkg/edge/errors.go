package edge

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResponse indicates a 2xx response whose body is not a JSON object.
	ErrInvalidResponse = errors.New("invalid response body")

	// ErrMissingDatastream indicates a Requester built without a datastream id.
	ErrMissingDatastream = errors.New("datastream id is required")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the start of the response body.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// RequestError reports a request that could not be sent or whose response
// could not be read.
type RequestError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("failed to make request for %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Cause
}
