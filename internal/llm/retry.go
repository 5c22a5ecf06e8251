package llm

import (
	"context"
	"errors"
	"time"
)

// retryWithBackoff retries fn on rate limits and server errors with exponential backoff.
// Auth and other client errors are returned immediately.
func retryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var apiErr *APICallError
		if !errors.As(lastErr, &apiErr) || !apiErr.retryable() {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := base * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
