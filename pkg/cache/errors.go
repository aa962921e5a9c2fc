package cache

import (
	"errors"
	"net/http"
)

// ErrNotFound indicates the requested key does not exist in the cache.
var ErrNotFound = errors.New("cache key not found")

// MapHTTPStatus maps cache errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
