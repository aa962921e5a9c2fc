package jobs

import (
	"errors"
	"net/http"
)

// Domain errors for job operations.
var (
	ErrNotFound      = errors.New("job not found")
	ErrDuplicate     = errors.New("job already exists")
	ErrNoSourceText  = errors.New("document has no source text attached")
	ErrNotCancelable = errors.New("job is not queued or running")
	ErrNoProgress    = errors.New("no progress available for job")
)

// MapHTTPStatus maps job domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoProgress):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotCancelable):
		return http.StatusConflict
	case errors.Is(err, ErrNoSourceText):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
