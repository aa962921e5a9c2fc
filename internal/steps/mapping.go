package steps

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/pkg/query"
	"github.com/JaimeStill/lucid/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "steps", "s").
	Project("id", "ID").
	Project("name", "Name").
	Project("step_order", "Order").
	Project("enabled", "Enabled").
	Project("document_class_id", "DocumentClassID").
	Project("post_branching", "PostBranching").
	Project("branching", "Branching").
	Project("branching_field", "BranchingField").
	Project("source_language", "SourceLanguage").
	Project("required", "Required").
	Project("required_context", "RequiredContext").
	Project("stop_conditions", "StopConditions").
	Project("prompt_template", "PromptTemplate").
	Project("output_variable", "OutputVariable").
	Project("max_attempts", "MaxAttempts").
	Project("timeout_seconds", "TimeoutSeconds").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Order",
}

// Filters contains optional filtering criteria for step queries.
// Nil fields are ignored.
type Filters struct {
	Enabled         *bool      `json:"enabled,omitempty"`
	DocumentClassID *uuid.UUID `json:"document_class_id,omitempty"`
	PostBranching   *bool      `json:"post_branching,omitempty"`
	Branching       *bool      `json:"branching,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Enabled", f.Enabled).
		WhereEquals("DocumentClassID", f.DocumentClassID).
		WhereEquals("PostBranching", f.PostBranching).
		WhereEquals("Branching", f.Branching)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if e := values.Get("enabled"); e != "" {
		if enabled, err := strconv.ParseBool(e); err == nil {
			f.Enabled = &enabled
		}
	}

	if d := values.Get("document_class_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentClassID = &id
		}
	}

	if p := values.Get("post_branching"); p != "" {
		if post, err := strconv.ParseBool(p); err == nil {
			f.PostBranching = &post
		}
	}

	if b := values.Get("branching"); b != "" {
		if branching, err := strconv.ParseBool(b); err == nil {
			f.Branching = &branching
		}
	}

	return f
}

func scanStep(s repository.Scanner) (Step, error) {
	var st Step
	var contextRaw, conditionsRaw []byte

	err := s.Scan(
		&st.ID,
		&st.Name,
		&st.Order,
		&st.Enabled,
		&st.DocumentClassID,
		&st.PostBranching,
		&st.Branching,
		&st.BranchingField,
		&st.SourceLanguage,
		&st.Required,
		&contextRaw,
		&conditionsRaw,
		&st.PromptTemplate,
		&st.OutputVariable,
		&st.MaxAttempts,
		&st.TimeoutSeconds,
		&st.CreatedAt,
		&st.UpdatedAt,
	)

	if err != nil {
		return st, err
	}

	if len(contextRaw) > 0 {
		if err := json.Unmarshal(contextRaw, &st.RequiredContext); err != nil {
			return st, fmt.Errorf("unmarshal required_context: %w", err)
		}
	}

	if len(conditionsRaw) > 0 {
		if err := json.Unmarshal(conditionsRaw, &st.StopConditions); err != nil {
			return st, fmt.Errorf("unmarshal stop_conditions: %w", err)
		}
	}

	if st.RequiredContext == nil {
		st.RequiredContext = []string{}
	}

	return st, nil
}
