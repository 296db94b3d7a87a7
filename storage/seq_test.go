package storage

import (
	"errors"
	"slices"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	boom := errors.New("boom")
	input := []mo.Result[int]{mo.Ok(1), mo.Err[int](boom), mo.Ok(2), mo.Ok(3)}

	tests := []struct {
		name     string
		limit    int
		wantVals []int
		wantErrs int
	}{
		{"unlimited", 0, []int{1, 2, 3}, 1},
		{"negative", -1, []int{1, 2, 3}, 1},
		{"one", 1, []int{1}, 0},
		{"errors do not count", 2, []int{1, 2}, 1},
		{"more than available", 10, []int{1, 2, 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, errs := Collect(Limit(slices.Values(input), tt.limit))
			assert.Equal(t, tt.wantVals, vals)
			assert.Len(t, errs, tt.wantErrs)
		})
	}
}
