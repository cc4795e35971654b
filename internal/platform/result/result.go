// Package result provides a typed success-or-error value with the
// combinators the command pipeline chains rule checks with.
//
// A Result holds exactly one of a value or a domain error. Combinators are
// pure and synchronous: I/O happens before a chain starts (loading the read
// snapshot) or after it succeeds (persisting events), never inside it, so
// chains stay unit-testable without a store.
package result

import (
	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
)

// Unit is the value type for results that carry no payload.
type Unit struct{}

// Nothing is the canonical Unit value.
var Nothing = Unit{}

// Result holds exactly one of a value of type T or a domain error.
type Result[T any] struct {
	value T
	err   *apperrors.Error
}

// Ok returns a successful result carrying value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err returns a failed result carrying err.
func Err[T any](err *apperrors.Error) Result[T] {
	if err == nil {
		err = apperrors.New(apperrors.CodeUnknown, "unspecified error")
	}
	return Result[T]{err: err}
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the carried value. Only meaningful when IsOk.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the carried error, or nil on success.
func (r Result[T]) Err() *apperrors.Error {
	return r.err
}

// Unpack returns the value and error as an ordinary Go pair.
func (r Result[T]) Unpack() (T, *apperrors.Error) {
	return r.value, r.err
}

// Filter converts a value failing pred into errIfFalse; errors pass through.
func (r Result[T]) Filter(pred func(T) bool, errIfFalse *apperrors.Error) Result[T] {
	if r.err != nil {
		return r
	}
	if !pred(r.value) {
		return Err[T](errIfFalse)
	}
	return r
}

// Map applies f to the value if present; errors pass through unchanged.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return Ok(f(r.value))
}

// Bind chains f over the value if present, short-circuiting on error.
func Bind[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return f(r.value)
}

// SomeNotNil lifts a nullable lookup into a result, failing with errIfNil
// when the pointer is absent.
func SomeNotNil[T any](value *T, errIfNil *apperrors.Error) Result[T] {
	if value == nil {
		return Err[T](errIfNil)
	}
	return Ok(*value)
}

// FromError lifts a plain error return into a Unit result.
func FromError(err *apperrors.Error) Result[Unit] {
	if err != nil {
		return Err[Unit](err)
	}
	return Ok(Nothing)
}
