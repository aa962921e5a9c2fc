package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Orchestrator drives one pipeline run: it builds the plan, gates and
// executes each step in order, resolves the document class once the
// branching step completes, splices the class-scoped segment into the
// remaining plan, and finalizes the run's terminal state exactly once.
type Orchestrator struct {
	runner     *Runner
	publisher  ProgressPublisher
	unresolved UnresolvedPolicy
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil publisher defaults to the
// no-op implementation.
func NewOrchestrator(
	runner *Runner,
	publisher ProgressPublisher,
	unresolved UnresolvedPolicy,
	logger *slog.Logger,
) *Orchestrator {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if unresolved == "" {
		unresolved = UnresolvedFallback
	}
	return &Orchestrator{
		runner:     runner,
		publisher:  publisher,
		unresolved: unresolved,
		logger:     logger.With("system", "orchestrator"),
	}
}

// execution holds the mutable state of a single run while it advances.
type execution struct {
	run      Run
	ec       *Context
	plan     *Plan
	records  []StepRecord
	resolved *DocumentClass
	branched bool
	total    int
	done     int
	position int
	failure  error
}

// Execute runs the pipeline to a terminal state. Cancellation and timeout
// are observed cooperatively between steps, never mid-invocation. All
// accumulated step records and the context snapshot are returned regardless
// of outcome.
func (o *Orchestrator) Execute(ctx context.Context, run Run) *Result {
	start := time.Now()

	ec := NewContext()
	ec.Seed(run.Seed)

	plan, err := BuildPlan(run.Steps)
	if err != nil {
		return &Result{
			Status:      StatusFailed,
			FinalOutput: ec.Snapshot(),
			Elapsed:     time.Since(start),
			Failure:     err,
		}
	}

	x := &execution{
		run:   run,
		ec:    ec,
		plan:  plan,
		total: plan.BaseTotal(),
	}

	o.logger.Info(
		"run started",
		"run_id", run.ID,
		"steps", x.total,
		"branching", plan.Branching != nil,
	)

	terminal := o.segment(ctx, x, plan.Pre, PhasePre)

	if terminal == "" && x.resolved != nil {
		class := plan.ClassSteps(x.resolved.ID)
		x.total += len(class)
		terminal = o.segment(ctx, x, class, PhaseClass)
	}

	if terminal == "" {
		terminal = o.segment(ctx, x, plan.Post, PhasePost)
	}

	if terminal == "" {
		terminal = StatusCompleted
	}

	result := &Result{
		Status:        terminal,
		ResolvedClass: x.resolved,
		Records:       x.records,
		FinalOutput:   ec.Snapshot(),
		Elapsed:       time.Since(start),
		Failure:       x.failure,
	}

	o.logger.Info(
		"run finished",
		"run_id", run.ID,
		"status", terminal,
		"records", len(x.records),
		"elapsed", result.Elapsed,
	)

	return result
}

// segment processes one phase's ordered steps. It returns the run's terminal
// status when the segment ends the run, or empty to continue with the next
// segment.
func (o *Orchestrator) segment(ctx context.Context, x *execution, steps []Step, phase Phase) Status {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return terminalFromContext(err)
		}

		x.position++
		rec := StepRecord{
			StepID:    s.ID,
			StepName:  s.Name,
			Phase:     phase,
			Position:  x.position,
			Status:    StepPending,
			StartedAt: time.Now(),
		}

		if ok, reason := Eligible(s, x.run.Language, x.ec); !ok {
			rec.Status = StepSkipped
			rec.SkipReason = reason
			rec.CompletedAt = time.Now()
			x.records = append(x.records, rec)
			x.done++

			o.logger.Info("step skipped", "run_id", x.run.ID, "step", s.Name, "reason", reason)
			o.publish(ctx, x, s.Name, phase)
			continue
		}

		err := o.runner.Run(ctx, s, x.ec, &rec)
		x.records = append(x.records, rec)
		x.done++
		o.publish(ctx, x, s.Name, phase)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return terminalFromContext(ctxErr)
			}
			if s.Required {
				x.failure = fmt.Errorf("%w: %s: %v", ErrRequiredStepFailed, s.Name, err)
				return StatusFailed
			}

			// Non-required failures are tolerated like a skip.
			o.logger.Warn("optional step failed", "run_id", x.run.ID, "step", s.Name, "error", err)
			continue
		}

		if s.Branching && !x.branched {
			// One-way latch: the class is resolved exactly once and never
			// re-evaluated, even if later context changes would alter the
			// branching field.
			x.branched = true

			class, rerr := ResolveClass(rec.Output, s.BranchingField, x.run.Classes)
			switch {
			case rerr != nil && o.unresolved == UnresolvedFail:
				x.failure = rerr
				return StatusFailed
			case rerr != nil:
				o.logger.Warn(
					"document class unresolved, continuing without class steps",
					"run_id", x.run.ID,
					"error", rerr,
				)
			default:
				x.resolved = class
				o.logger.Info("document class resolved", "run_id", x.run.ID, "class", class.Key)
			}
		}

		if sc, ok := FirstSatisfied(s.StopConditions, x.ec); ok {
			o.logger.Info(
				"stop condition satisfied",
				"run_id", x.run.ID,
				"step", s.Name,
				"variable", sc.Variable,
				"operator", sc.Operator,
			)
			return StatusStopped
		}
	}

	return ""
}

func (o *Orchestrator) publish(ctx context.Context, x *execution, current string, phase Phase) {
	o.publisher.Publish(ctx, ProgressUpdate{
		RunID:       x.run.ID,
		CurrentStep: current,
		Completed:   x.done,
		Total:       x.total,
		Phase:       phase,
	})
}

func terminalFromContext(err error) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusCancelled
}
