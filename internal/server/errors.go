package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrInvalidPath indicates a path that escapes its root
type ErrInvalidPath struct {
	Path string
}

func (e *ErrInvalidPath) Error() string {
	return fmt.Sprintf("invalid path: %s", e.Path)
}

// ErrNotFound indicates a missing file, directory or run
type ErrNotFound struct {
	What string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

// ErrUnavailable indicates a feature that is not configured
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		invalidPath *ErrInvalidPath
		notFound    *ErrNotFound
		unavailable *ErrUnavailable
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &invalidPath):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
