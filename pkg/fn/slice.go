package fn

import "slices"

// Map returns f applied to every item, in order.
func Map[T, U any](items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, v := range items {
		out[i] = f(v)
	}
	return out
}

// Filter returns the items keep accepts, in order. The input is not
// modified. No matches gives nil.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := slices.DeleteFunc(slices.Clone(items), func(v T) bool { return !keep(v) })
	if len(out) == 0 {
		return nil
	}
	return out
}

// Batches splits items into consecutive groups of at most n. A non-positive
// n or empty input gives nil.
func Batches[T any](items []T, n int) [][]T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	return slices.Collect(slices.Chunk(items, n))
}

// UniqueBy keeps the first item for each key, in order.
func UniqueBy[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]bool, len(items))
	return Filter(items, func(v T) bool {
		k := key(v)
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}
