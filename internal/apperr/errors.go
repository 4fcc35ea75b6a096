// Package apperr holds the error taxonomy shared by the service layers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConfig   = errors.New("invalid configuration")

	// ErrValidation marks caller errors that should map to a 4xx response.
	ErrValidation  = errors.New("validation failed")
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrNotMonday   = fmt.Errorf("%w: not a Monday", ErrValidation)
)

// UpstreamError reports a failed call to the workspace data source. The core
// never retries; Retryable tells the caller whether trying again may help.
type UpstreamError struct {
	Op      string
	Status  int
	Body    string
	Timeout bool
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets a 404 from the source satisfy errors.Is(err, ErrNotFound).
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Retryable reports whether the failure is transient.
func (e *UpstreamError) Retryable() bool {
	if e.Timeout || e.Status == 0 {
		return true
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsRetryable reports whether err carries a retryable UpstreamError.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Retryable()
}
