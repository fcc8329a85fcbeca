package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned for unknown identities or already-retired records.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports a missing or malformed field on create or transition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// StateError reports an operation that is invalid for the record's current stage or status.
type StateError struct {
	ID        string
	Stage     Stage
	Operation string
	Reason    string
}

func (e StateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s not allowed for animal %s in stage %s", e.Operation, e.ID, e.Stage)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// ConflictError reports a lost race against a concurrent transition.
type ConflictError struct {
	ID     string
	Reason string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict on animal %s: %s", e.ID, e.Reason)
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsState reports whether err wraps a StateError.
func IsState(err error) bool {
	var target StateError
	return errors.As(err, &target)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// IsRuleViolation reports whether err wraps a RuleViolationError.
func IsRuleViolation(err error) bool {
	var target RuleViolationError
	return errors.As(err, &target)
}
