package storage

import (
	"iter"

	"github.com/samber/mo"
)

// Collect drains seq into its values and the recoverable errors it reported.
func Collect[T any](seq iter.Seq[mo.Result[T]]) ([]T, []error) {
	var values []T
	var errs []error
	for res := range seq {
		v, err := res.Get()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values = append(values, v)
	}
	return values, errs
}

// Limit stops seq after n values. Errors do not count. n <= 0 means no limit.
func Limit[T any](seq iter.Seq[mo.Result[T]], n int) iter.Seq[mo.Result[T]] {
	if n <= 0 {
		return seq
	}
	return func(yield func(mo.Result[T]) bool) {
		count := 0
		for res := range seq {
			if !yield(res) {
				return
			}
			if res.IsOk() {
				count++
				if count >= n {
					return
				}
			}
		}
	}
}
