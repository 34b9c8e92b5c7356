// Package soft models best-effort side calls. A Result either carries a value or
// the reason the call degraded; callers always pick a fallback instead of
// propagating the failure.
package soft

import "errors"

// ErrDisabled marks a step that was switched off by configuration.
var ErrDisabled = errors.New("step disabled")

type Result[T any] struct {
	Value  T
	OK     bool
	Reason error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

func Fail[T any](reason error) Result[T] {
	if reason == nil {
		reason = errors.New("unknown failure")
	}
	return Result[T]{Reason: reason}
}

// From converts a conventional (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// Or returns the value, or fallback when the call degraded.
func (r Result[T]) Or(fallback T) T {
	if !r.OK {
		return fallback
	}
	return r.Value
}

// Disabled reports whether the step never ran because it was switched off.
func (r Result[T]) Disabled() bool {
	return !r.OK && errors.Is(r.Reason, ErrDisabled)
}
