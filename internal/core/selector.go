package core

import "slices"

// SortedUnique returns the distinct values of numbers in ascending order.
// The input slice is not modified.
func SortedUnique(numbers []int64) []int64 {
	unique := slices.Clone(numbers)
	// Dedupe only after sorting: Compact drops adjacent repeats only.
	slices.Sort(unique)
	return slices.Compact(unique)
}

// SelectNth returns the n-th (1-based) smallest distinct value of numbers.
// It fails with NExceedsCount when there are fewer than n distinct values.
func SelectNth(numbers []int64, n int) (int64, error) {
	if n < 1 {
		return 0, NewError(NNotPositive)
	}

	unique := SortedUnique(numbers)
	if n > len(unique) {
		return 0, NewError(NExceedsCount)
	}
	return unique[n-1], nil
}
