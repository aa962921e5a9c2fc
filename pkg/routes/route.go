// Package routes declares HTTP route tables that handlers expose and
// modules register against a mux.
package routes

import "net/http"

// Route maps one method and pattern to its handler func.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
