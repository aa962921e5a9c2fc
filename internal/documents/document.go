// Package documents implements the document domain for Lucid.
// It provides types, data access, and business logic for medical
// document upload, source text attachment, and blob storage
// integration. Translation runs read the attached source text.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a registered medical document with its metadata,
// blob storage reference, and extracted source text.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	PageCount   *int      `json:"page_count"`
	StorageKey  string    `json:"storage_key"`
	SourceText  *string   `json:"source_text"`
	Language    string    `json:"language"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasSourceText reports whether extracted text has been attached.
// Only documents with source text can be submitted for translation.
func (d Document) HasSourceText() bool {
	return d.SourceText != nil && *d.SourceText != ""
}

// CreateCommand carries the data needed to upload and register a new
// document. Data holds the raw file bytes. PageCount is optional and
// may be extracted by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	Language    string
	PageCount   *int
}

// AttachTextCommand carries extracted source text for a document.
// Language identifies the language the text is written in.
type AttachTextCommand struct {
	SourceText string `json:"source_text"`
	Language   string `json:"language"`
}
