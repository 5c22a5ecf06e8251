package aggregation

import "fmt"

// AggregationError represents a failed organization review call
type AggregationError struct {
	Message string
	Cause   error
}

func (e *AggregationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("aggregation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("aggregation failed: %s", e.Message)
}

func (e *AggregationError) Unwrap() error {
	return e.Cause
}
