// Package engine implements the document translation pipeline for Lucid.
// It turns a medical document into a patient-friendly translation by running
// an ordered, database-configured sequence of AI-backed transformation steps:
// plan construction, per-step gating, retried model invocation, one-shot
// document class resolution, and early termination on configured stop
// conditions.
package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline execution.
var (
	ErrUnresolvedClass    = errors.New("document class could not be resolved")
	ErrRequiredStepFailed = errors.New("required step failed")
	ErrMultipleBranching  = errors.New("more than one branching step enabled")
)

// RetryableError marks a step failure as transient. The step runner consumes
// these with additional attempts under its backoff policy.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// FatalError marks a step failure as permanent. The step runner fails the
// step immediately without consuming further attempts.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a transient failure.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Fatal wraps err as a permanent failure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf wraps a formatted message as a permanent failure.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsRetryable reports whether err is marked transient. Unclassified errors
// are treated as permanent.
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}
