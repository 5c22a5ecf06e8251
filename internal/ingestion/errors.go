// Package ingestion discovers report files under an input root and decodes their text content.
package ingestion

import "fmt"

// UnreadableFileError is returned when a file's content cannot be decoded or parsed
type UnreadableFileError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *UnreadableFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unreadable file %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("unreadable file %s: %s", e.Path, e.Reason)
}

func (e *UnreadableFileError) Unwrap() error {
	return e.Cause
}
