// Package stream provides helpers for single-use line sequences.
//
// Provisioning output is modelled as an iter.Seq[string]: lines are produced
// while the consumer ranges over the sequence, so progress is visible as it
// happens. The sequences wrap side-effecting work (creating instances,
// running remote commands), so they must never be replayed.
package stream

import (
	"iter"
	"sync/atomic"
)

// Once wraps seq so that it can be iterated at most once. Any later
// iteration yields nothing.
func Once[T any](seq iter.Seq[T]) iter.Seq[T] {
	var used atomic.Bool
	return func(yield func(T) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		seq(yield)
	}
}

// Collect drains seq into a slice.
func Collect[T any](seq iter.Seq[T]) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}
