// Package errors defines the engine's error taxonomy. Recoverable error
// classes (StaticViolation, AnnotationError) are never returned from a
// run; they are logged and folded into counters. CompilationError and
// EngineInternalError are returned to the caller.
package errors

import "fmt"

// CompilationClause identifies where in a rule a compilation error was found.
type CompilationClause struct {
	RuleID      string
	ClauseIndex int // -1 when the error is not clause-specific
}

// CompilationError is one structured failure from the rule DSL compiler.
// The compiler never partially loads: a non-empty CompilationErrors means
// no rules were accepted.
type CompilationError struct {
	CompilationClause
	Line    int
	Message string
}

func (e *CompilationError) Error() string {
	if e.ClauseIndex >= 0 {
		return fmt.Sprintf("rule %s: clause %d (line %d): %s", e.RuleID, e.ClauseIndex, e.Line, e.Message)
	}
	return fmt.Sprintf("rule %s (line %d): %s", e.RuleID, e.Line, e.Message)
}

// CompilationErrors aggregates every error found while compiling a rule set.
type CompilationErrors struct {
	Errors []*CompilationError
}

func (e *CompilationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d rule compilation errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

func (e *CompilationErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, ce := range e.Errors {
		out[i] = ce
	}
	return out
}

// StaticViolation records an attempt to mutate a fact whose interval is
// frozen. Never fatal: the engine logs it and skips the write.
type StaticViolation struct {
	StmtKey string
	RuleID  string
	T       int
}

func (e *StaticViolation) Error() string {
	return fmt.Sprintf("static violation: rule %s attempted to update frozen fact %s at t=%d", e.RuleID, e.StmtKey, e.T)
}

// AnnotationError records an aggregator that panicked or returned an
// invalid result. Never fatal: the caller substitutes [0,1].
type AnnotationError struct {
	Annotation string
	RuleID     string
	Cause      error
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("annotation %q failed for rule %s: %v", e.Annotation, e.RuleID, e.Cause)
}

func (e *AnnotationError) Unwrap() error { return e.Cause }

// EngineInternalError signals an invariant violation (e.g. a malformed
// statement key reaching the facts index). Always fatal: the run aborts.
type EngineInternalError struct {
	Message string
	Cause   error
}

func (e *EngineInternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("engine internal error: %s", e.Message)
}

func (e *EngineInternalError) Unwrap() error { return e.Cause }

// Cancelled logs a run's cancellation-token termination (§7): the driver
// still returns a valid Result with Reason "cancelled", never this as a
// Go error, so it is only ever passed to a logger.
type Cancelled struct{}

func (e *Cancelled) Error() string { return "run cancelled" }

// TimedOut logs a run's wall-clock-timeout termination (§7), under the
// same non-error-returning contract as Cancelled.
type TimedOut struct{}

func (e *TimedOut) Error() string { return "run timed out" }
