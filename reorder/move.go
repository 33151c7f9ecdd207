package reorder

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Move returns a copy of seq with the element at src moved to dst. The
// elements in between shift by one. seq is never modified.
func Move[T any](seq []T, src, dst int) ([]T, error) {
	if src < 0 || src >= len(seq) || dst < 0 || dst >= len(seq) {
		return nil, goerrors.New(
			fmt.Sprintf("move %d -> %d out of range for %d items", src, dst, len(seq)),
			goerrors.CategoryBadInput,
		).WithTextCode("INDEX_OUT_OF_RANGE")
	}

	out := make([]T, 0, len(seq))
	moved := seq[src]
	for i, v := range seq {
		if i == src {
			continue
		}
		out = append(out, v)
	}
	out = append(out[:dst], append([]T{moved}, out[dst:]...)...)
	return out, nil
}
