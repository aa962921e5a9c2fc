package model

import (
	"context"
	"errors"

	"github.com/openai/openai-go"

	"github.com/JaimeStill/lucid/engine"
)

// classify wraps a provider error as retryable or fatal for the engine's
// retry loop. Rate limits, server errors, timeouts, and network failures
// are retryable; authentication, authorization, and malformed-request
// responses are not.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return engine.Fatal(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return engine.Retryable(err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if retryableStatus(apiErr.StatusCode) {
			return engine.Retryable(err)
		}
		return engine.Fatal(err)
	}

	// Transport-level failure with no HTTP response.
	return engine.Retryable(err)
}

func retryableStatus(status int) bool {
	switch {
	case status == 408, status == 429:
		return true
	case status >= 500:
		return true
	}
	return false
}
