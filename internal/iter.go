package internal

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// SortedByKey iterates over a map in key order.
func SortedByKey[K cmp.Ordered, V any](m map[K]V) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, key := range slices.Sorted(maps.Keys(m)) {
			if !yield(key, m[key]) {
				return // Stop if the consumer stops
			}
		}
	}
}

// SortedByValue iterates over a map in value order, breaking ties by key.
func SortedByValue[K cmp.Ordered, V cmp.Ordered](m map[K]V) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		keys := slices.SortedFunc(maps.Keys(m), func(a, b K) int {
			return cmp.Or(cmp.Compare(m[a], m[b]), cmp.Compare(a, b))
		})
		for _, key := range keys {
			if !yield(key, m[key]) {
				return // Stop if the consumer stops
			}
		}
	}
}
