// Package serial runs an ordered list of stages one after another under
// three policies: an input wrapper, a break condition and a skip condition.
//
// A task is built once and may be invoked concurrently; every invocation
// keeps its own state.
package serial

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Stage is one step of a task.
type Stage[A, R any] func(ctx context.Context, args A) (R, error)

// Step describes the position of a task invocation when a policy is
// consulted.
type Step[A, R any] struct {
	// Stage about to run.
	Stage Stage[A, R]

	// Index of Stage in Stages.
	Index int

	// Stages is the full stage list of the task.
	Stages []Stage[A, R]

	// Args are the arguments the task was invoked with.
	Args A

	// Last is the value returned by the most recent stage that ran, or the
	// zero value if none ran yet.
	Last R
}

// WrapFunc computes the input of the stage described by step.
type WrapFunc[A, R any] func(ctx context.Context, step Step[A, R]) (A, error)

// ConditionFunc decides whether to break or skip at step.
type ConditionFunc[A, R any] func(ctx context.Context, step Step[A, R]) (bool, error)

// Options configures New.
type Options[A, R any] struct {
	// Name is used in error messages.
	Name string

	// Stages run from index 0 to len-1. New keeps a copy.
	Stages []Stage[A, R]

	// Wrap returns the input of each stage. Nil passes Args through.
	Wrap WrapFunc[A, R]

	// Break stops the task without running the current stage. Nil never breaks.
	Break ConditionFunc[A, R]

	// Skip moves to the next stage without running the current one and
	// without replacing Last. Nil never skips.
	Skip ConditionFunc[A, R]
}

// Result is what a task invocation produced.
type Result[R any] struct {
	// Value is the output of the last stage that ran.
	Value R

	// Results holds each stage's output at its index. Entries of stages
	// that were skipped or never reached hold the zero value; Ran tells
	// them apart.
	Results []R

	// Ran reports which entries of Results were produced.
	Ran []bool

	// BreakAt is the index the task broke at, or -1.
	BreakAt int

	// Trivial is true when the task has no stages.
	Trivial bool
}

// Task runs the configured stages.
type Task[A, R any] func(ctx context.Context, args A) (Result[R], error)

// New builds a task from opts.
func New[A, R any](opts Options[A, R]) Task[A, R] {
	if len(opts.Stages) == 0 {
		return func(context.Context, A) (Result[R], error) {
			return Result[R]{BreakAt: -1, Trivial: true}, nil
		}
	}

	stages := make([]Stage[A, R], len(opts.Stages))
	copy(stages, opts.Stages)

	wrap := opts.Wrap
	if wrap == nil {
		wrap = func(_ context.Context, step Step[A, R]) (A, error) { return step.Args, nil }
	}
	brk := opts.Break
	if brk == nil {
		brk = never[A, R]
	}
	skip := opts.Skip
	if skip == nil {
		skip = never[A, R]
	}

	name := opts.Name
	return func(ctx context.Context, args A) (Result[R], error) {
		res := Result[R]{
			Results: make([]R, len(stages)),
			Ran:     make([]bool, len(stages)),
			BreakAt: -1,
		}

		for i := range stages {
			step := Step[A, R]{
				Stage:  stages[i],
				Index:  i,
				Stages: stages,
				Args:   args,
				Last:   res.Value,
			}

			input, err := call(name, "wrap", i, func() (A, error) { return wrap(ctx, step) })
			if err != nil {
				return res, err
			}

			stop, err := call(name, "break", i, func() (bool, error) { return brk(ctx, step) })
			if err != nil {
				return res, err
			}
			if stop {
				res.BreakAt = i
				return res, nil
			}

			skipped, err := call(name, "skip", i, func() (bool, error) { return skip(ctx, step) })
			if err != nil {
				return res, err
			}
			if skipped {
				continue
			}

			out, err := call(name, "stage", i, func() (R, error) { return stages[i](ctx, input) })
			if err != nil {
				return res, err
			}
			res.Value = out
			res.Results[i] = out
			res.Ran[i] = true
		}

		return res, nil
	}
}

func never[A, R any](context.Context, Step[A, R]) (bool, error) {
	return false, nil
}

// PanicError is returned when a stage or a policy panics.
type PanicError struct {
	Task  string
	Phase string // "wrap", "break", "skip" or "stage"
	Index int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	name := e.Task
	if name == "" {
		name = "serial task"
	}
	return fmt.Sprintf("%s: %s %d panicked: %v", name, e.Phase, e.Index, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func call[T any](task, phase string, index int, fn func() (T, error)) (out T, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Task: task, Phase: phase, Index: index, Value: v, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Protect runs fn and converts a panic into a *PanicError, the same way a
// stage panic is reported. It is used for code that runs around a task,
// such as handlers and factories.
func Protect[T any](task, phase string, fn func() (T, error)) (T, error) {
	return call(task, phase, 0, fn)
}
