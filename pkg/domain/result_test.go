package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "tag taken"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	err := RuleViolationError{Result: result}
	if err.Error() != "transaction blocked by rules: tag taken" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}
	if names := engine.Rules(); len(names) != 1 || names[0] != "warn" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); err == nil {
		t.Fatalf("expected rule error")
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ConflictError{ID: "a1", Reason: "stale"})
	if !IsConflict(wrapped) || IsNotFound(wrapped) {
		t.Fatalf("conflict predicate mismatch")
	}
	if !IsNotFound(NotFoundError{Entity: EntityAnimal, ID: "x"}) {
		t.Fatalf("expected not found")
	}
	if !IsValidation(ValidationError{Field: "sex", Reason: "is required"}) {
		t.Fatalf("expected validation")
	}
	if !IsState(StateError{ID: "x", Stage: StageYoung, Operation: "record calving"}) {
		t.Fatalf("expected state")
	}
	if !IsRuleViolation(RuleViolationError{}) {
		t.Fatalf("expected rule violation")
	}
	if IsState(errors.New("plain")) {
		t.Fatalf("plain error must not match")
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, TransactionView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "fail" }

func (failingRule) Evaluate(context.Context, TransactionView, []Change) (Result, error) {
	return Result{}, errors.New("boom")
}

type emptyView struct{}

func (emptyView) ListAnimals() []Animal                  { return nil }
func (emptyView) FindAnimal(string) (Animal, bool)       { return Animal{}, false }
func (emptyView) ListEvents(string) []TimelineEvent      { return nil }
func (emptyView) FindEvent(string) (TimelineEvent, bool) { return TimelineEvent{}, false }
