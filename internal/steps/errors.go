package steps

import (
	"errors"
	"net/http"
)

// Domain errors for step operations.
var (
	ErrNotFound         = errors.New("step not found")
	ErrDuplicate        = errors.New("step name already exists")
	ErrNameRequired     = errors.New("step name must not be empty")
	ErrTemplateRequired = errors.New("prompt_template must not be empty")
	ErrOutputRequired   = errors.New("output_variable must not be empty")
	ErrPhaseConflict    = errors.New("document_class_id and post_branching are mutually exclusive")
	ErrBranchingPhase   = errors.New("branching step must precede the branch")
	ErrBranchingField   = errors.New("branching step requires branching_field")
	ErrBranchingExists  = errors.New("an enabled branching step already exists")
	ErrStopVariable     = errors.New("stop condition variable must not be empty")
	ErrStopOperator     = errors.New("stop condition operator not recognized")
	ErrInvalidAttempts  = errors.New("max_attempts must not be negative")
	ErrInvalidTimeout   = errors.New("timeout_seconds must not be negative")
	ErrUnknownClass     = errors.New("document_class_id does not reference a known class")
)

// MapHTTPStatus maps step domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrBranchingExists):
		return http.StatusConflict
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrTemplateRequired),
		errors.Is(err, ErrOutputRequired),
		errors.Is(err, ErrPhaseConflict),
		errors.Is(err, ErrBranchingPhase),
		errors.Is(err, ErrBranchingField),
		errors.Is(err, ErrStopVariable),
		errors.Is(err, ErrStopOperator),
		errors.Is(err, ErrInvalidAttempts),
		errors.Is(err, ErrInvalidTimeout),
		errors.Is(err, ErrUnknownClass):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
