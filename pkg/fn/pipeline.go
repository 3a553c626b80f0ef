package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Stage transforms In to Out. Failure is reported through the Result.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Lift adapts a function with an ordinary error return to a Stage.
func Lift[In, Out any](f func(context.Context, In) (Out, error)) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return From(f(ctx, in))
	}
}

// MapStage adapts a function that cannot fail.
func MapStage[In, Out any](f func(In) Out) Stage[In, Out] {
	return func(_ context.Context, in In) Result[Out] {
		return Ok(f(in))
	}
}

// Pipeline runs stages in order, feeding each the previous output. It stops
// at the first failed stage, and before the next stage once ctx is done.
func Pipeline[T any](stages ...Stage[T, T]) Stage[T, T] {
	return func(ctx context.Context, v T) Result[T] {
		for _, s := range stages {
			if err := ctx.Err(); err != nil {
				return Err[T](err)
			}
			r := s(ctx, v)
			if r.err != nil {
				return r
			}
			v = r.val
		}
		return Ok(v)
	}
}

// TracedStage runs stage inside an OTel span named name. A failed stage
// marks the span as errored.
func TracedStage[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := otel.Tracer("legisearch/pkg/fn").Start(ctx, name)
		defer span.End()
		r := stage(ctx, in)
		if r.err != nil {
			span.RecordError(r.err)
			span.SetStatus(codes.Error, r.err.Error())
		}
		return r
	}
}
