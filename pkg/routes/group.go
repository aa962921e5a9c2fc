package routes

import "net/http"

// Group collects the routes of one resource under a shared path prefix.
// Nested groups inherit the prefixes of their ancestors.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register wires every route in the given groups into the mux, joining
// prefixes along the way.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		registerGroup(mux, "", g)
	}
}

func registerGroup(mux *http.ServeMux, parent string, g Group) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		mux.HandleFunc(r.Method+" "+prefix+r.Pattern, r.Handler)
	}
	for _, child := range g.Children {
		registerGroup(mux, prefix, child)
	}
}
