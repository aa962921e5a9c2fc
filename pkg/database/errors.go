package database

import "errors"

// ErrNotReady is returned when a connection is requested before Start.
var ErrNotReady = errors.New("database not ready")
