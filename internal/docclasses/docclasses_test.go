package docclasses_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/JaimeStill/lucid/internal/docclasses"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", docclasses.ErrNotFound, http.StatusNotFound},
		{"duplicate key", docclasses.ErrDuplicate, http.StatusConflict},
		{"in use", docclasses.ErrInUse, http.StatusConflict},
		{"invalid key", docclasses.ErrInvalidKey, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := docclasses.MapHTTPStatus(tc.err); got != tc.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantKey    *string
		wantActive *bool
	}{
		{
			name:  "empty query",
			query: "",
		},
		{
			name:    "key filter",
			query:   "key=lab_report",
			wantKey: strptr("lab_report"),
		},
		{
			name:       "active filter",
			query:      "active=true",
			wantActive: boolptr(true),
		},
		{
			name:       "invalid active ignored",
			query:      "active=maybe",
			wantActive: nil,
		},
		{
			name:       "combined",
			query:      "key=discharge_summary&active=false",
			wantKey:    strptr("discharge_summary"),
			wantActive: boolptr(false),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}

			f := docclasses.FiltersFromQuery(values)

			if !eq(f.Key, tc.wantKey) {
				t.Errorf("key = %v, want %v", deref(f.Key), deref(tc.wantKey))
			}
			if !eq(f.Active, tc.wantActive) {
				t.Errorf("active = %v, want %v", deref(f.Active), deref(tc.wantActive))
			}
		})
	}
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func eq[T comparable](a, b *T) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
