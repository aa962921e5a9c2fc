package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lucid/engine"
)

// routedInvoker dispatches on the step token at the front of each prompt, so
// one fake serves every step in a plan. Step templates in these tests start
// with "name:".
type routedInvoker struct {
	responses map[string]func() (*engine.Output, error)
}

func (r *routedInvoker) Invoke(_ context.Context, prompt string, _ time.Duration) (*engine.Output, error) {
	token, _, _ := strings.Cut(prompt, ":")
	fn, ok := r.responses[token]
	if !ok {
		return &engine.Output{Text: "unrouted"}, nil
	}
	return fn()
}

func text(s string) func() (*engine.Output, error) {
	return func() (*engine.Output, error) {
		return &engine.Output{Text: s}, nil
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []engine.ProgressUpdate
}

func (p *recordingPublisher) Publish(_ context.Context, update engine.ProgressUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
}

func (p *recordingPublisher) all() []engine.ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]engine.ProgressUpdate(nil), p.updates...)
}

func planStep(name string, order int, mutate ...func(*engine.Step)) engine.Step {
	s := step(name, order, mutate...)
	s.PromptTemplate = name + ": {{source_text}}"
	return s
}

func newOrchestrator(inv engine.Invoker, pub engine.ProgressPublisher, policy engine.UnresolvedPolicy) *engine.Orchestrator {
	runner := engine.NewRunner(inv, fastPolicy(1), time.Minute, testLogger())
	return engine.NewOrchestrator(runner, pub, policy, testLogger())
}

func statuses(records []engine.StepRecord) map[string]engine.StepStatus {
	out := make(map[string]engine.StepStatus, len(records))
	for _, rec := range records {
		out[rec.StepName] = rec.Status
	}
	return out
}

func TestExecuteFullPipeline(t *testing.T) {
	labID := uuid.New()
	dischargeID := uuid.New()
	es := "es"

	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"extract":  text("Hemoglobin 13.5 g/dL, WBC 7.2"),
		"classify": text(`{"document_class": "lab_report", "confidence": 0.94}`),
		"explain":  text("Your blood counts are in the normal range."),
		"simplify": text("Todo normal."),
		"finalize": text("Summary: everything looks healthy."),
	}}
	pub := &recordingPublisher{}

	run := engine.Run{
		ID:       uuid.New(),
		Language: "en",
		Seed:     map[string]any{"source_text": "CBC PANEL ..."},
		Classes: []engine.DocumentClass{
			{ID: labID, Key: "lab_report", Name: "Lab Report"},
			{ID: dischargeID, Key: "discharge_summary", Name: "Discharge Summary"},
		},
		Steps: []engine.Step{
			planStep("extract", 10),
			planStep("classify", 20, branching("document_class")),
			planStep("explain", 10, classScoped(labID)),
			planStep("wrong-class", 10, classScoped(dischargeID)),
			planStep("simplify", 10, postBranching, func(s *engine.Step) { s.SourceLanguage = &es }),
			planStep("finalize", 20, postBranching),
		},
	}

	result := newOrchestrator(inv, pub, engine.UnresolvedFail).Execute(context.Background(), run)

	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %q, want completed (failure: %v)", result.Status, result.Failure)
	}
	if result.ResolvedClass == nil || result.ResolvedClass.ID != labID {
		t.Fatalf("resolved class = %+v, want lab_report", result.ResolvedClass)
	}

	// Pre, then the resolved class segment, then post. The other class's
	// steps never appear; the language-gated post step is recorded skipped.
	wantOrder := []string{"extract", "classify", "explain", "simplify", "finalize"}
	if len(result.Records) != len(wantOrder) {
		t.Fatalf("records = %v", statuses(result.Records))
	}
	for i, name := range wantOrder {
		if result.Records[i].StepName != name {
			t.Errorf("record[%d] = %q, want %q", i, result.Records[i].StepName, name)
		}
		if result.Records[i].Position != i+1 {
			t.Errorf("record[%d] position = %d, want %d", i, result.Records[i].Position, i+1)
		}
	}

	got := statuses(result.Records)
	if got["simplify"] != engine.StepSkipped {
		t.Errorf("simplify status = %q, want skipped", got["simplify"])
	}

	if result.FinalOutput["extract_out"] != "Hemoglobin 13.5 g/dL, WBC 7.2" {
		t.Errorf("extract output missing from final context")
	}
	if result.FinalOutput["document_class"] != "lab_report" {
		t.Errorf("structured classify fields missing from final context")
	}

	updates := pub.all()
	if len(updates) != len(wantOrder) {
		t.Fatalf("published %d updates, want %d", len(updates), len(wantOrder))
	}
	// Total starts from the universal steps and grows once the class
	// segment splices in.
	if updates[0].Total != 4 {
		t.Errorf("initial total = %d, want 4", updates[0].Total)
	}
	last := updates[len(updates)-1]
	if last.Total != 5 || last.Completed != 5 {
		t.Errorf("final progress = %d/%d, want 5/5", last.Completed, last.Total)
	}
	if last.CurrentStep != "finalize" {
		t.Errorf("final step = %q, want finalize", last.CurrentStep)
	}
}

func TestExecuteStopCondition(t *testing.T) {
	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"screen": text(`{"needs_translation": "no"}`),
		"never":  text("should not run"),
	}}

	screen := planStep("screen", 10)
	screen.StopConditions = []engine.StopCondition{
		{Variable: "needs_translation", Operator: engine.StopEquals, Value: "no"},
	}

	run := engine.Run{
		ID:    uuid.New(),
		Seed:  map[string]any{"source_text": "doc"},
		Steps: []engine.Step{screen, planStep("never", 20)},
	}

	result := newOrchestrator(inv, nil, engine.UnresolvedFallback).Execute(context.Background(), run)

	if result.Status != engine.StatusStopped {
		t.Fatalf("status = %q, want stopped_by_condition", result.Status)
	}
	if result.Failure != nil {
		t.Errorf("failure = %v, want nil on early stop", result.Failure)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %v, want only screen", statuses(result.Records))
	}
	if result.FinalOutput["screen_out"] == nil {
		t.Error("accumulated output missing from stopped run")
	}
}

func TestExecuteRequiredStepFails(t *testing.T) {
	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"extract": text("text"),
		"vital": func() (*engine.Output, error) {
			return nil, engine.Fatal(errors.New("model rejected request"))
		},
		"after": text("should not run"),
	}}

	run := engine.Run{
		ID:   uuid.New(),
		Seed: map[string]any{"source_text": "doc"},
		Steps: []engine.Step{
			planStep("extract", 10),
			planStep("vital", 20, func(s *engine.Step) { s.Required = true }),
			planStep("after", 30),
		},
	}

	result := newOrchestrator(inv, nil, engine.UnresolvedFallback).Execute(context.Background(), run)

	if result.Status != engine.StatusFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if !errors.Is(result.Failure, engine.ErrRequiredStepFailed) {
		t.Errorf("failure = %v, want ErrRequiredStepFailed", result.Failure)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %v, want extract and vital preserved", statuses(result.Records))
	}
	if result.Records[1].Status != engine.StepFailed {
		t.Errorf("vital status = %q, want failed", result.Records[1].Status)
	}
}

func TestExecuteOptionalStepFailureTolerated(t *testing.T) {
	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"nice-to-have": func() (*engine.Output, error) {
			return nil, engine.Fatal(errors.New("unavailable"))
		},
		"finalize": text("done"),
	}}

	run := engine.Run{
		ID:   uuid.New(),
		Seed: map[string]any{"source_text": "doc"},
		Steps: []engine.Step{
			planStep("nice-to-have", 10),
			planStep("finalize", 20),
		},
	}

	result := newOrchestrator(inv, nil, engine.UnresolvedFallback).Execute(context.Background(), run)

	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	got := statuses(result.Records)
	if got["nice-to-have"] != engine.StepFailed {
		t.Errorf("optional step status = %q, want failed", got["nice-to-have"])
	}
	if got["finalize"] != engine.StepCompleted {
		t.Errorf("finalize status = %q, want completed", got["finalize"])
	}
}

func TestExecuteMissingContextSkip(t *testing.T) {
	// No step ever writes target_language, so the gated step is skipped
	// in full and the run still completes.
	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"extract":   text("text"),
		"translate": text("should not run"),
		"finalize":  text("done"),
	}}

	run := engine.Run{
		ID:   uuid.New(),
		Seed: map[string]any{"source_text": "doc"},
		Steps: []engine.Step{
			planStep("extract", 10),
			planStep("translate", 20, func(s *engine.Step) {
				s.RequiredContext = []string{"target_language"}
			}),
			planStep("finalize", 30),
		},
	}

	result := newOrchestrator(inv, nil, engine.UnresolvedFallback).Execute(context.Background(), run)

	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %q, want completed (failure: %v)", result.Status, result.Failure)
	}

	got := statuses(result.Records)
	if got["translate"] != engine.StepSkipped {
		t.Fatalf("translate status = %q, want skipped", got["translate"])
	}
	for _, rec := range result.Records {
		if rec.StepName == "translate" && rec.SkipReason != engine.SkipMissingContext {
			t.Errorf("skip reason = %q, want missing-context", rec.SkipReason)
		}
	}
	if got["finalize"] != engine.StepCompleted {
		t.Errorf("finalize status = %q, want completed", got["finalize"])
	}
	if result.FinalOutput["translate_out"] != nil {
		t.Error("skipped step wrote output to context")
	}
}

func TestExecuteUnresolvedClass(t *testing.T) {
	labID := uuid.New()

	newRun := func() engine.Run {
		return engine.Run{
			ID:      uuid.New(),
			Seed:    map[string]any{"source_text": "doc"},
			Classes: []engine.DocumentClass{{ID: labID, Key: "lab_report", Name: "Lab Report"}},
			Steps: []engine.Step{
				planStep("classify", 10, branching("document_class")),
				planStep("explain", 10, classScoped(labID)),
				planStep("finalize", 20, postBranching),
			},
		}
	}

	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"classify": text(`{"document_class": "prescription"}`),
		"finalize": text("done"),
	}}

	t.Run("fail policy fails the run", func(t *testing.T) {
		result := newOrchestrator(inv, nil, engine.UnresolvedFail).Execute(context.Background(), newRun())

		if result.Status != engine.StatusFailed {
			t.Fatalf("status = %q, want failed", result.Status)
		}
		if !errors.Is(result.Failure, engine.ErrUnresolvedClass) {
			t.Errorf("failure = %v, want ErrUnresolvedClass", result.Failure)
		}
	})

	t.Run("fallback policy skips the class segment", func(t *testing.T) {
		result := newOrchestrator(inv, nil, engine.UnresolvedFallback).Execute(context.Background(), newRun())

		if result.Status != engine.StatusCompleted {
			t.Fatalf("status = %q, want completed (failure: %v)", result.Status, result.Failure)
		}
		if result.ResolvedClass != nil {
			t.Errorf("resolved class = %+v, want nil", result.ResolvedClass)
		}
		got := statuses(result.Records)
		if _, ran := got["explain"]; ran {
			t.Error("class-scoped step ran without a resolved class")
		}
		if got["finalize"] != engine.StepCompleted {
			t.Errorf("finalize status = %q, want completed", got["finalize"])
		}
	})
}

func TestExecuteBranchLatch(t *testing.T) {
	labID := uuid.New()
	dischargeID := uuid.New()

	// A later step emits a different class value; resolution must not move.
	inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
		"classify": text(`{"document_class": "lab_report"}`),
		"explain":  text(`{"document_class": "discharge_summary"}`),
		"finalize": text("done"),
	}}

	run := engine.Run{
		ID:   uuid.New(),
		Seed: map[string]any{"source_text": "doc"},
		Classes: []engine.DocumentClass{
			{ID: labID, Key: "lab_report", Name: "Lab Report"},
			{ID: dischargeID, Key: "discharge_summary", Name: "Discharge Summary"},
		},
		Steps: []engine.Step{
			planStep("classify", 10, branching("document_class")),
			planStep("explain", 10, classScoped(labID)),
			planStep("finalize", 20, postBranching),
		},
	}

	result := newOrchestrator(inv, nil, engine.UnresolvedFail).Execute(context.Background(), run)

	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %q, want completed (failure: %v)", result.Status, result.Failure)
	}
	if result.ResolvedClass == nil || result.ResolvedClass.ID != labID {
		t.Errorf("resolved class = %+v, want lab_report latch held", result.ResolvedClass)
	}
	got := statuses(result.Records)
	if _, ran := got["explain"]; !ran {
		t.Error("lab class segment did not run")
	}
}

func TestExecuteMultipleBranchingFailsRun(t *testing.T) {
	run := engine.Run{
		ID: uuid.New(),
		Steps: []engine.Step{
			planStep("classify-a", 10, branching("document_class")),
			planStep("classify-b", 20, branching("document_class")),
		},
	}

	result := newOrchestrator(&routedInvoker{}, nil, engine.UnresolvedFail).Execute(context.Background(), run)

	if result.Status != engine.StatusFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if !errors.Is(result.Failure, engine.ErrMultipleBranching) {
		t.Errorf("failure = %v, want ErrMultipleBranching", result.Failure)
	}
	if len(result.Records) != 0 {
		t.Errorf("records = %v, want none before plan validation", statuses(result.Records))
	}
}

func TestExecuteCancellation(t *testing.T) {
	t.Run("cancelled mid-run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		inv := &routedInvoker{responses: map[string]func() (*engine.Output, error){
			"first": func() (*engine.Output, error) {
				cancel()
				return &engine.Output{Text: "ok"}, nil
			},
			"second": text("should not run"),
		}}

		run := engine.Run{
			ID:    uuid.New(),
			Steps: []engine.Step{planStep("first", 10), planStep("second", 20)},
		}

		result := newOrchestrator(inv, nil, engine.UnresolvedFallback).Execute(ctx, run)

		if result.Status != engine.StatusCancelled {
			t.Fatalf("status = %q, want cancelled", result.Status)
		}
		if len(result.Records) != 1 {
			t.Errorf("records = %v, want completed first step preserved", statuses(result.Records))
		}
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		run := engine.Run{
			ID:    uuid.New(),
			Steps: []engine.Step{planStep("first", 10)},
		}

		result := newOrchestrator(&routedInvoker{}, nil, engine.UnresolvedFallback).Execute(ctx, run)

		if result.Status != engine.StatusTimeout {
			t.Fatalf("status = %q, want timeout", result.Status)
		}
	})
}

func TestExecuteEmptyPlan(t *testing.T) {
	result := newOrchestrator(&routedInvoker{}, nil, engine.UnresolvedFallback).Execute(
		context.Background(),
		engine.Run{ID: uuid.New(), Seed: map[string]any{"source_text": "doc"}},
	)

	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.FinalOutput["source_text"] != "doc" {
		t.Error("seed values missing from final context")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []engine.Status{
		engine.StatusCompleted, engine.StatusFailed, engine.StatusCancelled,
		engine.StatusTimeout, engine.StatusStopped,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	for _, s := range []engine.Status{engine.StatusQueued, engine.StatusRunning} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}
