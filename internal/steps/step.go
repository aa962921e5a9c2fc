// Package steps implements the pipeline step configuration domain for
// Lucid. Steps are stored rows that describe each unit of work in a
// translation run: the prompt template sent to the model, the phase
// the step belongs to, its gating rules, and its stop conditions. The
// engine consumes a snapshot of this configuration at run submission.
package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
)

// Step represents a configured pipeline step. A nil DocumentClassID
// with PostBranching false places the step before the branch; a set
// DocumentClassID places it in that class's branch segment; PostBranching
// places it after the branch.
type Step struct {
	ID              uuid.UUID              `json:"id"`
	Name            string                 `json:"name"`
	Order           int                    `json:"order"`
	Enabled         bool                   `json:"enabled"`
	DocumentClassID *uuid.UUID             `json:"document_class_id"`
	PostBranching   bool                   `json:"post_branching"`
	Branching       bool                   `json:"branching"`
	BranchingField  string                 `json:"branching_field"`
	SourceLanguage  *string                `json:"source_language"`
	Required        bool                   `json:"required"`
	RequiredContext []string               `json:"required_context"`
	StopConditions  []engine.StopCondition `json:"stop_conditions"`
	PromptTemplate  string                 `json:"prompt_template"`
	OutputVariable  string                 `json:"output_variable"`
	MaxAttempts     int                    `json:"max_attempts"`
	TimeoutSeconds  int                    `json:"timeout_seconds"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// ToEngine converts the stored step into its engine representation.
func (s Step) ToEngine() engine.Step {
	return engine.Step{
		ID:              s.ID,
		Name:            s.Name,
		Order:           s.Order,
		Enabled:         s.Enabled,
		DocumentClassID: s.DocumentClassID,
		PostBranching:   s.PostBranching,
		Branching:       s.Branching,
		BranchingField:  s.BranchingField,
		SourceLanguage:  s.SourceLanguage,
		Required:        s.Required,
		RequiredContext: s.RequiredContext,
		StopConditions:  s.StopConditions,
		PromptTemplate:  s.PromptTemplate,
		OutputVariable:  s.OutputVariable,
		MaxAttempts:     s.MaxAttempts,
		Timeout:         time.Duration(s.TimeoutSeconds) * time.Second,
	}
}

// CreateCommand carries the data needed to create a pipeline step.
type CreateCommand struct {
	Name            string                 `json:"name"`
	Order           int                    `json:"order"`
	DocumentClassID *uuid.UUID             `json:"document_class_id"`
	PostBranching   bool                   `json:"post_branching"`
	Branching       bool                   `json:"branching"`
	BranchingField  string                 `json:"branching_field"`
	SourceLanguage  *string                `json:"source_language"`
	Required        bool                   `json:"required"`
	RequiredContext []string               `json:"required_context"`
	StopConditions  []engine.StopCondition `json:"stop_conditions"`
	PromptTemplate  string                 `json:"prompt_template"`
	OutputVariable  string                 `json:"output_variable"`
	MaxAttempts     int                    `json:"max_attempts"`
	TimeoutSeconds  int                    `json:"timeout_seconds"`
}

// UpdateCommand carries the data needed to update a pipeline step. All
// fields overwrite the stored values.
type UpdateCommand struct {
	Name            string                 `json:"name"`
	Order           int                    `json:"order"`
	DocumentClassID *uuid.UUID             `json:"document_class_id"`
	PostBranching   bool                   `json:"post_branching"`
	Branching       bool                   `json:"branching"`
	BranchingField  string                 `json:"branching_field"`
	SourceLanguage  *string                `json:"source_language"`
	Required        bool                   `json:"required"`
	RequiredContext []string               `json:"required_context"`
	StopConditions  []engine.StopCondition `json:"stop_conditions"`
	PromptTemplate  string                 `json:"prompt_template"`
	OutputVariable  string                 `json:"output_variable"`
	MaxAttempts     int                    `json:"max_attempts"`
	TimeoutSeconds  int                    `json:"timeout_seconds"`
}

func (c CreateCommand) validate() error {
	return validateStep(
		c.Name, c.PromptTemplate, c.OutputVariable,
		c.Branching, c.BranchingField,
		c.DocumentClassID, c.PostBranching,
		c.StopConditions,
		c.MaxAttempts, c.TimeoutSeconds,
	)
}

func (c UpdateCommand) validate() error {
	return validateStep(
		c.Name, c.PromptTemplate, c.OutputVariable,
		c.Branching, c.BranchingField,
		c.DocumentClassID, c.PostBranching,
		c.StopConditions,
		c.MaxAttempts, c.TimeoutSeconds,
	)
}

func validateStep(
	name, promptTemplate, outputVariable string,
	branching bool,
	branchingField string,
	documentClassID *uuid.UUID,
	postBranching bool,
	stopConditions []engine.StopCondition,
	maxAttempts, timeoutSeconds int,
) error {
	if name == "" {
		return ErrNameRequired
	}
	if promptTemplate == "" {
		return ErrTemplateRequired
	}
	if outputVariable == "" {
		return ErrOutputRequired
	}
	if documentClassID != nil && postBranching {
		return ErrPhaseConflict
	}
	if branching {
		if documentClassID != nil || postBranching {
			return ErrBranchingPhase
		}
		if branchingField == "" {
			return ErrBranchingField
		}
	}
	for _, sc := range stopConditions {
		if sc.Variable == "" {
			return ErrStopVariable
		}
		if !sc.Operator.Valid() {
			return ErrStopOperator
		}
	}
	if maxAttempts < 0 {
		return ErrInvalidAttempts
	}
	if timeoutSeconds < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
