package jobs

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/pkg/query"
	"github.com/JaimeStill/lucid/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "pipeline_jobs", "j").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("status", "Status").
	Project("language", "Language").
	Project("seed", "Seed").
	Project("resolved_class_id", "ResolvedClassID").
	Project("final_output", "FinalOutput").
	Project("error", "Error").
	Project("submitted_at", "SubmittedAt").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "SubmittedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for job queries.
// Nil fields are ignored.
type Filters struct {
	Status     *string    `json:"status,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Language   *string    `json:"language,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("Language", f.Language)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if l := values.Get("language"); l != "" {
		f.Language = &l
	}

	return f
}

func scanJob(s repository.Scanner) (Job, error) {
	var j Job
	var seedRaw, outputRaw []byte

	err := s.Scan(
		&j.ID,
		&j.DocumentID,
		&j.Status,
		&j.Language,
		&seedRaw,
		&j.ResolvedClassID,
		&outputRaw,
		&j.Error,
		&j.SubmittedAt,
		&j.StartedAt,
		&j.CompletedAt,
	)

	if err != nil {
		return j, err
	}

	if len(seedRaw) > 0 {
		if err := json.Unmarshal(seedRaw, &j.Seed); err != nil {
			return j, fmt.Errorf("unmarshal seed: %w", err)
		}
	}

	if len(outputRaw) > 0 {
		if err := json.Unmarshal(outputRaw, &j.FinalOutput); err != nil {
			return j, fmt.Errorf("unmarshal final_output: %w", err)
		}
	}

	return j, nil
}

func scanStepRecord(s repository.Scanner) (StepRecord, error) {
	var r StepRecord

	err := s.Scan(
		&r.ID,
		&r.JobID,
		&r.StepID,
		&r.StepName,
		&r.Phase,
		&r.Position,
		&r.Status,
		&r.Attempts,
		&r.Input,
		&r.Output,
		&r.Error,
		&r.SkipReason,
		&r.StartedAt,
		&r.CompletedAt,
	)

	return r, err
}
