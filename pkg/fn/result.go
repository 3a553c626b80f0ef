// Package fn holds the small generic helpers the indexing pipeline is built
// from: a value-or-error Result, composable Stages and slice utilities.
package fn

// Result holds either a value or the error that prevented it.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a value.
func Ok[T any](v T) Result[T] { return Result[T]{val: v} }

// Err wraps a failure. err must not be nil.
func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// From pairs a value with the error of the call that produced it, so a
// (T, error) return can be wrapped directly: fn.From(f(x)).
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

func (r Result[T]) IsOk() bool  { return r.err == nil }
func (r Result[T]) IsErr() bool { return r.err != nil }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// MapErr rewrites the error of a failed result. Successful results pass
// through untouched.
func MapErr[T any](r Result[T], f func(error) error) Result[T] {
	if r.err == nil {
		return r
	}
	return Err[T](f(r.err))
}
