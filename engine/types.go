package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Phase identifies one of the three execution phases of a pipeline run.
type Phase int

// Execution phases. Universal steps run in PhasePre, class-scoped steps run
// in PhaseClass after the document class resolves, and post-branching
// universal steps run in PhasePost.
const (
	PhasePre Phase = iota + 1
	PhaseClass
	PhasePost
)

// Step is the engine's per-run view of a configured transformation step.
// The prompt template is an opaque payload: the engine performs variable
// substitution and forwards it untouched.
type Step struct {
	ID              uuid.UUID
	Name            string
	Order           int
	Enabled         bool
	DocumentClassID *uuid.UUID
	PostBranching   bool
	Branching       bool
	BranchingField  string
	SourceLanguage  *string
	Required        bool
	RequiredContext []string
	StopConditions  []StopCondition
	PromptTemplate  string
	OutputVariable  string
	MaxAttempts     int           // 0 = runner default
	Timeout         time.Duration // 0 = runner default
}

// PhaseOf returns the execution phase a step belongs to, derived from its
// document class scope and post-branching flag.
func PhaseOf(s Step) Phase {
	switch {
	case s.DocumentClassID != nil:
		return PhaseClass
	case s.PostBranching:
		return PhasePost
	default:
		return PhasePre
	}
}

// DocumentClass is a runtime-configured document category. Key is the stable
// value matched against the branching step's output.
type DocumentClass struct {
	ID   uuid.UUID
	Key  string
	Name string
}

// Output is the result of a single model invocation.
type Output struct {
	Text     string
	Metadata map[string]any
}

// Invoker is the external AI invocation collaborator. Implementations must
// classify failures via Retryable and Fatal so the runner's retry policy can
// distinguish transient faults from permanent ones.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, timeout time.Duration) (*Output, error)
}

// StepStatus tracks the lifecycle of a single step execution.
type StepStatus string

// Step execution statuses.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// SkipReason explains why a gated step was not attempted.
type SkipReason string

// Skip reasons recorded on skipped steps.
const (
	SkipLanguageMismatch SkipReason = "language-mismatch"
	SkipMissingContext   SkipReason = "missing-context"
)

// StepRecord captures one attempted step within a run. Created when the step
// begins and immutable afterward except for retry-attempt updates.
type StepRecord struct {
	StepID      uuid.UUID  `json:"step_id"`
	StepName    string     `json:"step_name"`
	Phase       Phase      `json:"phase"`
	Position    int        `json:"position"`
	Status      StepStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	Input       string     `json:"input,omitempty"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	SkipReason  SkipReason `json:"skip_reason,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Status is the run-level pipeline state.
type Status string

// Pipeline run statuses. StatusStopped is a success outcome: a configured
// stop condition ended the run early with the accumulated output as final.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimeout   Status = "timeout"
	StatusStopped   Status = "stopped_by_condition"
)

// Terminal reports whether a run status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout, StatusStopped:
		return true
	}
	return false
}

// Run is the input to a single pipeline execution: the per-run snapshot of
// configured steps and document classes, the detected source language, and
// initial context values.
type Run struct {
	ID       uuid.UUID
	Steps    []Step
	Classes  []DocumentClass
	Language string
	Seed     map[string]any
}

// Result is the terminal outcome of a pipeline execution. Records are
// preserved regardless of outcome; FinalOutput is the context snapshot at
// the moment the run reached its terminal state.
type Result struct {
	Status        Status
	ResolvedClass *DocumentClass
	Records       []StepRecord
	FinalOutput   map[string]any
	Elapsed       time.Duration
	Failure       error
}
