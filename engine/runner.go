package engine

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/JaimeStill/lucid/pkg/formatting"
)

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Runner executes one eligible step: it substitutes context variables into
// the step's prompt payload, invokes the model under the retry policy, and
// on success projects the output into the execution context.
type Runner struct {
	invoker Invoker
	policy  RetryPolicy
	timeout time.Duration
	logger  *slog.Logger

	// sleep is replaceable in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner with the given invoker, default retry policy,
// and default per-call timeout.
func NewRunner(invoker Invoker, policy RetryPolicy, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		invoker: invoker,
		policy:  policy,
		timeout: timeout,
		logger:  logger.With("system", "runner"),
		sleep:   sleepContext,
	}
}

// Run attempts the step until it succeeds, exhausts its attempts, or hits a
// permanent failure. The record's attempt count, snapshots, and status are
// updated in place. Only transient failures consume extra attempts. The
// returned error is nil on success; context errors surface unchanged so the
// orchestrator can map them to cancellation or timeout.
func (r *Runner) Run(ctx context.Context, s Step, ec *Context, rec *StepRecord) error {
	prompt := Substitute(s.PromptTemplate, ec)
	rec.Input = prompt
	rec.Status = StepRunning

	policy := r.policy.ForStep(s)
	timeout := r.timeout
	if s.Timeout > 0 {
		timeout = s.Timeout
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		rec.Attempts = attempt + 1

		out, err := r.invoker.Invoke(ctx, prompt, timeout)
		if err == nil {
			r.apply(s, out, ec, rec)
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.DelayForAttempt(attempt)
		r.logger.Warn(
			"step attempt failed, retrying",
			"step", s.Name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		if err := r.sleep(ctx, delay); err != nil {
			rec.Status = StepFailed
			rec.Error = err.Error()
			rec.CompletedAt = time.Now()
			return err
		}
	}

	rec.Status = StepFailed
	rec.Error = lastErr.Error()
	rec.CompletedAt = time.Now()
	return lastErr
}

// apply writes the step's declared output into the context. The raw text
// lands under the step's output variable; when the text parses as a JSON
// object its top-level fields are also projected into the context so stop
// conditions and the branch resolver can read them. Invocation metadata
// merges last.
func (r *Runner) apply(s Step, out *Output, ec *Context, rec *StepRecord) {
	rec.Output = out.Text
	rec.Status = StepCompleted
	rec.CompletedAt = time.Now()

	if s.OutputVariable != "" {
		ec.Set(s.OutputVariable, out.Text)
	}

	if fields, err := formatting.Parse[map[string]any](out.Text); err == nil {
		for k, v := range fields {
			ec.Set(k, v)
		}
	}

	for k, v := range out.Metadata {
		ec.Set(k, v)
	}
}

// Substitute replaces {{variable}} placeholders in the opaque prompt payload
// with context values. Missing variables become empty strings.
func Substitute(template string, ec *Context) string {
	return varPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := varPattern.FindStringSubmatch(match)[1]
		return ec.GetString(key)
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
