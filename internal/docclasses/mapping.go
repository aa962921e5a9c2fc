package docclasses

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/lucid/pkg/query"
	"github.com/JaimeStill/lucid/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "document_classes", "dc").
	Project("id", "ID").
	Project("key", "Key").
	Project("name", "Name").
	Project("description", "Description").
	Project("active", "Active").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Key",
}

// Filters contains optional filtering criteria for document class queries.
// Nil fields are ignored.
type Filters struct {
	Key    *string `json:"key,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Key", f.Key).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if k := values.Get("key"); k != "" {
		f.Key = &k
	}

	if a := values.Get("active"); a != "" {
		if active, err := strconv.ParseBool(a); err == nil {
			f.Active = &active
		}
	}

	return f
}

func scanDocumentClass(s repository.Scanner) (DocumentClass, error) {
	var dc DocumentClass

	err := s.Scan(
		&dc.ID,
		&dc.Key,
		&dc.Name,
		&dc.Description,
		&dc.Active,
		&dc.CreatedAt,
		&dc.UpdatedAt,
	)

	return dc, err
}
