package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/regidor/inventario/internal/state"
)

// Step names used by the multi-step operations.
const (
	StepDeleteMovements = "delete-movements"
	StepDeleteMaterial  = "delete-material"
	StepResetStock      = "reset-stock"
)

// Operation names recorded with partial failures.
const (
	OpDeleteMaterial = "delete-material"
	OpResetAll       = "reset-all"
)

// SagaError reports a multi-step remote operation that stopped at Step.
// Completed lists the steps that already took effect remotely; they are
// not undone.
type SagaError struct {
	Operation string
	Step      string
	Completed []string
	Err       error
}

func (e *SagaError) Error() string {
	if len(e.Completed) == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s (after %s): %v", e.Operation, e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

// Partial reports whether some step completed before the failure, leaving
// the backend in a state that needs manual correction.
func (e *SagaError) Partial() bool {
	return len(e.Completed) > 0
}

func (e *SagaError) failure(at time.Time) *state.PartialFailure {
	return &state.PartialFailure{
		Operation:  e.Operation,
		FailedStep: e.Step,
		Completed:  append([]string(nil), e.Completed...),
		Message:    e.Err.Error(),
		At:         at,
	}
}

type sagaStep struct {
	name string
	run  func(ctx context.Context) error
}

type saga struct {
	operation string
	steps     []sagaStep
}

// run executes the steps in order and stops at the first failure.
func (s saga) run(ctx context.Context) error {
	completed := make([]string, 0, len(s.steps))
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return &SagaError{Operation: s.operation, Step: step.name, Completed: completed, Err: err}
		}
		if err := step.run(ctx); err != nil {
			return &SagaError{Operation: s.operation, Step: step.name, Completed: completed, Err: err}
		}
		completed = append(completed, step.name)
	}
	return nil
}
