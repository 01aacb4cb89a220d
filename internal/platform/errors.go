package platform

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured     = errors.New("platform base url is empty")
	ErrMissingToken      = errors.New("platform token is empty")
	ErrMalformedResponse = errors.New("malformed platform response")
)

// EnvelopeError is a reply whose envelope status was not 200.
type EnvelopeError struct {
	Op      string
	Status  int64
	Message string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%s: platform status %d: %s", e.Op, e.Status, e.Message)
}

// Rejection returns the server message for display.
func (e *EnvelopeError) Rejection() string {
	return e.Message
}

// RequestError is a failed exchange: network, timeout, non-envelope HTTP
// error or undecodable body.
type RequestError struct {
	Op         string
	Kind       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status=%d body=%s", e.Op, e.Kind, e.StatusCode, truncate(e.Body, 256))
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.Op, e.Kind)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Payload returns the raw response body, if any.
func (e *RequestError) Payload() []byte {
	return e.Body
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
