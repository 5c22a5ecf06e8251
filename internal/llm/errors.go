package llm

import (
	"errors"
	"fmt"
)

// ErrNoJSONObject is returned when a response contains no decodable JSON object
var ErrNoJSONObject = errors.New("no JSON object found in response")

// APICallError represents a failed provider call
type APICallError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Cause      error
}

func (e *APICallError) Error() string {
	prefix := fmt.Sprintf("%s API call failed", e.Provider)
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("%s (status %d)", prefix, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// retryable reports whether the provider's own retry loop should try again
func (e *APICallError) retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsAuthError checks if an error is an authentication failure
func IsAuthError(err error) bool {
	var apiErr *APICallError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}
