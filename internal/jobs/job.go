// Package jobs implements the pipeline job domain for Lucid. A job
// ties a document to one sequential translation run: submission queues
// the job, a bounded worker pool claims and executes it against the
// engine, and the terminal result is persisted with its per-step
// records.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
)

// Job represents a queued or executed pipeline run for a document.
type Job struct {
	ID              uuid.UUID      `json:"id"`
	DocumentID      uuid.UUID      `json:"document_id"`
	Status          engine.Status  `json:"status"`
	Language        string         `json:"language"`
	Seed            map[string]any `json:"seed"`
	ResolvedClassID *uuid.UUID     `json:"resolved_class_id"`
	FinalOutput     map[string]any `json:"final_output"`
	Error           *string        `json:"error"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	StartedAt       *time.Time     `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
}

// StepRecord is a persisted trace of one step execution within a job.
type StepRecord struct {
	ID          uuid.UUID         `json:"id"`
	JobID       uuid.UUID         `json:"job_id"`
	StepID      uuid.UUID         `json:"step_id"`
	StepName    string            `json:"step_name"`
	Phase       engine.Phase      `json:"phase"`
	Position    int               `json:"position"`
	Status      engine.StepStatus `json:"status"`
	Attempts    int               `json:"attempts"`
	Input       string            `json:"input,omitempty"`
	Output      string            `json:"output,omitempty"`
	Error       string            `json:"error,omitempty"`
	SkipReason  engine.SkipReason `json:"skip_reason,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// SubmitCommand carries the data needed to submit a translation run.
// Seed values are merged into the run's initial context alongside the
// document's source text and language.
type SubmitCommand struct {
	DocumentID uuid.UUID      `json:"document_id"`
	Seed       map[string]any `json:"seed,omitempty"`
}
