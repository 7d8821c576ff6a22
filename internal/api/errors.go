package api

import (
	"errors"
	"fmt"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Status  int
	Message string
	// Payload is the decoded JSON body, the raw text when the body was not
	// JSON, or nil when the body was empty.
	Payload any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

func newHTTPError(status int, payload any) *HTTPError {
	msg := fmt.Sprintf("request failed (status %d)", status)
	if m, ok := payload.(map[string]any); ok {
		if s, ok := m["message"].(string); ok && s != "" {
			msg = s
		}
	}
	return &HTTPError{Status: status, Message: msg, Payload: payload}
}

// ParseError is returned when a response body cannot be decoded.
type ParseError struct {
	Status int
	Body   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode failed (status %d): %v", e.Status, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NetworkError is returned when the request never produced a response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

// Message returns a user-facing message for err: the server-provided
// message for HTTP errors and a generic text otherwise.
func Message(err error) string {
	var he *HTTPError
	var ne *NetworkError
	var pe *ParseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &he):
		return he.Message
	case errors.As(err, &ne):
		return "network connection failed; check that the server is running"
	case errors.As(err, &pe):
		return "the server sent a response that could not be read"
	default:
		return err.Error()
	}
}
