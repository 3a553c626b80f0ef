package fn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
	if _, err := e.Unwrap(); err == nil || err.Error() != "fail" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFrom(t *testing.T) {
	if v, err := From(strconv.Atoi("7")).Unwrap(); v != 7 || err != nil {
		t.Fatalf("got %d, %v", v, err)
	}
	if r := From(strconv.Atoi("x")); !r.IsErr() {
		t.Fatal("parse failure should be an Err")
	}
}

func TestMapErr(t *testing.T) {
	base := errors.New("base")
	wrap := func(err error) error { return fmt.Errorf("wrapped: %w", err) }

	if v, err := MapErr(Ok(1), wrap).Unwrap(); v != 1 || err != nil {
		t.Fatal("Ok must pass through")
	}
	_, err := MapErr(Err[int](base), wrap).Unwrap()
	if !errors.Is(err, base) || err.Error() != "wrapped: base" {
		t.Fatalf("got %v", err)
	}
}

// --- Pipeline ---

func TestPipeline(t *testing.T) {
	var calls []string
	step := func(name string, fail bool) Stage[int, int] {
		return func(_ context.Context, v int) Result[int] {
			calls = append(calls, name)
			if fail {
				return Err[int](errors.New(name))
			}
			return Ok(v + 1)
		}
	}

	r := Pipeline(step("a", false), step("b", false), step("c", false))(context.Background(), 0)
	if v, _ := r.Unwrap(); v != 3 {
		t.Fatalf("expected 3, got %d", v)
	}

	calls = nil
	r = Pipeline(step("a", false), step("b", true), step("c", false))(context.Background(), 0)
	if _, err := r.Unwrap(); err == nil || err.Error() != "b" {
		t.Fatalf("expected error from b, got %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("pipeline should stop at the failing stage, ran %v", calls)
	}
}

func TestPipelineStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	first := MapStage(func(v int) int { ran++; cancel(); return v })
	second := MapStage(func(v int) int { ran++; return v })

	_, err := Pipeline(first, second)(ctx, 0).Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ran != 1 {
		t.Fatalf("ran %d stages, want 1", ran)
	}
}

func TestPipelineEmpty(t *testing.T) {
	r := Pipeline[string]()(context.Background(), "x")
	if v, err := r.Unwrap(); v != "x" || err != nil {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestMapStage(t *testing.T) {
	s := MapStage(strconv.Itoa)
	if v, _ := s(context.Background(), 12).Unwrap(); v != "12" {
		t.Fatalf("got %q", v)
	}
}

func TestLift(t *testing.T) {
	parse := Lift(func(_ context.Context, s string) (int, error) { return strconv.Atoi(s) })
	if v, err := parse(context.Background(), "42").Unwrap(); v != 42 || err != nil {
		t.Fatalf("got %d, %v", v, err)
	}
	if !parse(context.Background(), "forty-two").IsErr() {
		t.Fatal("expected Err")
	}
}

func TestTracedStage(t *testing.T) {
	ok := TracedStage("ok", MapStage(func(v int) int { return v * 2 }))
	if v, _ := ok(context.Background(), 4).Unwrap(); v != 8 {
		t.Fatalf("got %d", v)
	}

	boom := errors.New("boom")
	failing := TracedStage("fail", func(context.Context, int) Result[int] { return Err[int](boom) })
	if _, err := failing(context.Background(), 1).Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("traced stage must pass the error through, got %v", err)
	}
}

// --- Slices ---

func TestMapFilter(t *testing.T) {
	got := Map(Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 }), strconv.Itoa)
	if len(got) != 2 || got[0] != "2" || got[1] != "4" {
		t.Fatalf("got %v", got)
	}
	if Filter([]int{1}, func(int) bool { return false }) != nil {
		t.Fatal("no matches should give nil")
	}
}

func TestBatches(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{2, []int{2, 2, 1}},
		{5, []int{5}},
		{10, []int{5}},
	}
	items := []int{1, 2, 3, 4, 5}
	for _, tt := range tests {
		got := Batches(items, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("n=%d: got %d chunks", tt.n, len(got))
		}
		for i, c := range got {
			if len(c) != tt.want[i] {
				t.Fatalf("n=%d chunk %d: len %d", tt.n, i, len(c))
			}
		}
	}
	if Batches(items, 0) != nil {
		t.Fatal("n <= 0 should give nil")
	}
	if Batches([]int{}, 3) != nil {
		t.Fatal("empty input should give nil")
	}
}

func TestUniqueBy(t *testing.T) {
	type kv struct {
		k string
		v int
	}
	got := UniqueBy([]kv{{"a", 1}, {"b", 2}, {"a", 3}}, func(x kv) string { return x.k })
	if len(got) != 2 || got[0].v != 1 || got[1].k != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	in := []int{1, 2, 3}
	Filter(in, func(v int) bool { return v == 2 })
	if in[0] != 1 || in[1] != 2 || in[2] != 3 {
		t.Fatalf("input changed: %v", in)
	}
}
