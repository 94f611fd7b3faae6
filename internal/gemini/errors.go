package gemini

import (
	"errors"
	"fmt"
)

// ErrUnexpectedResponse means a successful response did not carry candidate text.
var ErrUnexpectedResponse = errors.New("unexpected response from Gemini API")

// APIError is a non-2xx answer from the API. Message is the server's
// error.message when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Detail includes the status code, for logs.
func (e *APIError) Detail() string {
	return fmt.Sprintf("gemini API error (status %d): %s", e.StatusCode, e.Message)
}
