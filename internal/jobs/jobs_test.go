package jobs_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/internal/jobs"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", jobs.ErrNotFound, http.StatusNotFound},
		{"no progress", jobs.ErrNoProgress, http.StatusNotFound},
		{"duplicate", jobs.ErrDuplicate, http.StatusConflict},
		{"not cancelable", jobs.ErrNotCancelable, http.StatusConflict},
		{"no source text", jobs.ErrNoSourceText, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := jobs.MapHTTPStatus(tc.err); got != tc.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	docID := uuid.New()

	tests := []struct {
		name     string
		query    string
		wantNilD bool
		wantS    string
		wantL    string
	}{
		{
			name:     "empty query",
			query:    "",
			wantNilD: true,
		},
		{
			name:     "status filter",
			query:    "status=running",
			wantNilD: true,
			wantS:    "running",
		},
		{
			name:  "document filter",
			query: "document_id=" + docID.String(),
		},
		{
			name:     "invalid document id ignored",
			query:    "document_id=not-a-uuid",
			wantNilD: true,
		},
		{
			name:     "language filter",
			query:    "language=es",
			wantNilD: true,
			wantL:    "es",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}

			f := jobs.FiltersFromQuery(values)

			if (f.DocumentID == nil) != tc.wantNilD {
				t.Errorf("document_id = %v, want nil=%v", f.DocumentID, tc.wantNilD)
			}
			if !tc.wantNilD && *f.DocumentID != docID {
				t.Errorf("document_id = %v, want %v", *f.DocumentID, docID)
			}
			if tc.wantS == "" && f.Status != nil {
				t.Errorf("status = %v, want nil", *f.Status)
			}
			if tc.wantS != "" && (f.Status == nil || *f.Status != tc.wantS) {
				t.Errorf("status = %v, want %q", f.Status, tc.wantS)
			}
			if tc.wantL != "" && (f.Language == nil || *f.Language != tc.wantL) {
				t.Errorf("language = %v, want %q", f.Language, tc.wantL)
			}
		})
	}
}
