package docclasses

import (
	"errors"
	"net/http"
)

// Domain errors for document class operations.
var (
	ErrNotFound   = errors.New("document class not found")
	ErrDuplicate  = errors.New("document class key already exists")
	ErrInvalidKey = errors.New("document class key must not be empty")
	ErrInUse      = errors.New("document class is referenced by steps")
)

// MapHTTPStatus maps document class domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInUse) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidKey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
