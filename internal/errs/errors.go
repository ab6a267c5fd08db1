package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned when a property or image index does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failed call to the MLS feed or a media host.
type UpstreamError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s unavailable: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
// Client errors other than 429 are permanent.
func (e *UpstreamError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// StorageConfigError is a fatal startup error for missing storage settings.
type StorageConfigError struct {
	Missing []string
}

func (e *StorageConfigError) Error() string {
	return "object storage is not configured: missing " + strings.Join(e.Missing, ", ")
}

// HTTPStatus maps an error onto the response code the API uses for it.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		upstreamErr   *UpstreamError
		storageErr    *StorageConfigError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.As(err, &storageErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
