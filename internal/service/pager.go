package service

import (
	"fmt"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
)

// PageCount returns how many fixed-size pages hold n items.
func PageCount(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: item count can't be negative (got %d)", domain.ErrInvalidArgument, n)
	}
	return (n + constants.PageSize - 1) / constants.PageSize, nil
}
