package igvf

import "fmt"

// Result represents the outcome of an operation that can fail: exactly one of
// a success payload of type T or an error payload of type E is populated.
// Client operations return Results instead of raising; inspect the variant
// with IsOk/IsErr, or use Unwrap/UnwrapOr/Optional/Union depending on how the
// call site wants to treat failures.
//
// Results are plain values. They are created by Ok or Err, never mutated, and
// not meant to be stored long-term.
type Result[T, E any] struct {
	value T
	errv  E
	isErr bool
}

// Ok wraps a success payload in a Result.
func Ok[T, E any](value T) Result[T, E] {
	return Result[T, E]{value: value}
}

// Err wraps an error payload in a Result.
func Err[T, E any](errv E) Result[T, E] {
	return Result[T, E]{errv: errv, isErr: true}
}

// FromOptional converts a possibly-nil pointer into a Result: a non-nil
// pointer becomes Ok of its pointee, nil becomes Err with a zero error
// payload.
func FromOptional[T, E any](v *T) Result[T, E] {
	if v == nil {
		var zero E
		return Err[T, E](zero)
	}
	return Ok[T, E](*v)
}

// IsOk reports whether the Result holds a success payload.
func (r Result[T, E]) IsOk() bool {
	return !r.isErr
}

// IsErr reports whether the Result holds an error payload.
func (r Result[T, E]) IsErr() bool {
	return r.isErr
}

// Unwrap returns the success payload. Calling Unwrap on an error Result is a
// programming mistake and panics.
func (r Result[T, E]) Unwrap() T {
	if r.isErr {
		panic(fmt.Sprintf("igvf: unwrapped an error result: Err(%v)", r.errv))
	}
	return r.value
}

// UnwrapErr returns the error payload. Calling UnwrapErr on a success Result
// is a programming mistake and panics.
func (r Result[T, E]) UnwrapErr() E {
	if !r.isErr {
		panic(fmt.Sprintf("igvf: result contained Ok(%v), not an error", r.value))
	}
	return r.errv
}

// UnwrapOr returns the success payload, or the supplied default when the
// Result holds an error.
func (r Result[T, E]) UnwrapOr(def T) T {
	if r.isErr {
		return def
	}
	return r.value
}

// Optional returns a pointer to the success payload, or nil when the Result
// holds an error. Use it when "not found" and "not available" are treated
// identically.
func (r Result[T, E]) Optional() *T {
	if r.isErr {
		return nil
	}
	v := r.value
	return &v
}

// Union returns whichever payload is populated, success or error, as a single
// untyped value. Callers that want to inspect a shape-discriminating tag
// themselves (see IsResponseSuccess) use this instead of branching up front.
func (r Result[T, E]) Union() any {
	if r.isErr {
		return r.errv
	}
	return r.value
}

// MapResult applies fn to the success payload and rewraps it, passing error
// Results through unchanged. Defined at package level because Go methods
// cannot introduce new type parameters.
func MapResult[T, U, E any](r Result[T, E], fn func(T) U) Result[U, E] {
	if r.isErr {
		return Err[U, E](r.errv)
	}
	return Ok[U, E](fn(r.value))
}

// CollectResults unwraps a slice of Results that are all expected to be
// successes. If every element is Ok it returns Ok of the unwrapped payloads
// in order; otherwise it returns the first error encountered.
func CollectResults[T, E any](results []Result[T, E]) Result[[]T, E] {
	values := make([]T, 0, len(results))
	for _, r := range results {
		if r.isErr {
			return Err[[]T, E](r.errv)
		}
		values = append(values, r.value)
	}
	return Ok[[]T, E](values)
}
