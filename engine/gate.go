package engine

import (
	"strconv"
	"strings"
)

// Eligible decides whether a step runs. A source-language filter that
// mismatches the run's detected language skips the step, as does any
// declared required context variable that is absent or empty. A skip is an
// intentional no-op, never a failure.
func Eligible(s Step, language string, ec *Context) (bool, SkipReason) {
	if s.SourceLanguage != nil && !strings.EqualFold(*s.SourceLanguage, language) {
		return false, SkipLanguageMismatch
	}

	for _, key := range s.RequiredContext {
		if !ec.HasValue(key) {
			return false, SkipMissingContext
		}
	}

	return true, ""
}

// StopOperator identifies a comparison applied by a stop condition.
type StopOperator string

// Stop condition operators. Numeric operators parse both sides as floats
// and are never satisfied by non-numeric values.
const (
	StopEquals      StopOperator = "equals"
	StopNotEquals   StopOperator = "not_equals"
	StopContains    StopOperator = "contains"
	StopLessThan    StopOperator = "lt"
	StopAtMost      StopOperator = "lte"
	StopGreaterThan StopOperator = "gt"
	StopAtLeast     StopOperator = "gte"
	StopEmpty       StopOperator = "empty"
	StopNotEmpty    StopOperator = "not_empty"
)

// Valid reports whether o is a recognized stop condition operator.
func (o StopOperator) Valid() bool {
	switch o {
	case StopEquals, StopNotEquals, StopContains,
		StopLessThan, StopAtMost, StopGreaterThan, StopAtLeast,
		StopEmpty, StopNotEmpty:
		return true
	}
	return false
}

// StopCondition is a configured predicate over context state. When satisfied
// after a step completes, the run ends early as a success with the
// accumulated output as final.
type StopCondition struct {
	Variable string       `json:"variable"`
	Operator StopOperator `json:"operator"`
	Value    string       `json:"value,omitempty"`
}

// Satisfied evaluates the condition against the current context.
func (sc StopCondition) Satisfied(ec *Context) bool {
	switch sc.Operator {
	case StopEmpty:
		return !ec.HasValue(sc.Variable)
	case StopNotEmpty:
		return ec.HasValue(sc.Variable)
	}

	actual := ec.GetString(sc.Variable)

	switch sc.Operator {
	case StopEquals:
		return strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(sc.Value))
	case StopNotEquals:
		return !strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(sc.Value))
	case StopContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(sc.Value))
	case StopLessThan, StopAtMost, StopGreaterThan, StopAtLeast:
		return compareNumeric(sc.Operator, actual, sc.Value)
	}

	return false
}

// FirstSatisfied returns the first condition in declaration order that holds
// against the context.
func FirstSatisfied(conds []StopCondition, ec *Context) (StopCondition, bool) {
	for _, sc := range conds {
		if sc.Satisfied(ec) {
			return sc, true
		}
	}
	return StopCondition{}, false
}

func compareNumeric(op StopOperator, actual, threshold string) bool {
	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(threshold), 64)
	if err != nil {
		return false
	}

	switch op {
	case StopLessThan:
		return a < t
	case StopAtMost:
		return a <= t
	case StopGreaterThan:
		return a > t
	case StopAtLeast:
		return a >= t
	}
	return false
}
