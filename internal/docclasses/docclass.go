// Package docclasses implements the document class domain for Lucid.
// Document classes label the kinds of medical documents the pipeline
// understands (lab report, discharge summary, radiology report) and
// anchor the class-specific steps of a translation run.
package docclasses

import (
	"time"

	"github.com/google/uuid"
)

// DocumentClass represents a category of medical document. The Key is
// the stable identifier the branching step's output is matched against.
type DocumentClass struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to create a document class.
type CreateCommand struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateCommand carries the data needed to update a document class.
type UpdateCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
