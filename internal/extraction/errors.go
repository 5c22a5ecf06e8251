// Package extraction turns one report into one normalized PersonRecord via a model call.
// Per-file failures never abort a batch: they degrade to a record that only
// carries its source path and the failure reason.
package extraction

import "fmt"

// ExtractionParseError represents a model response with no usable JSON object
type ExtractionParseError struct {
	Message string
	Cause   error
}

func (e *ExtractionParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ExtractionParseError) Unwrap() error {
	return e.Cause
}
