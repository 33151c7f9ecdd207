package pagination

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 20
	// MaxLimit caps the page size accepted by the listing endpoints.
	MaxLimit = 100
)

// LimitConfig configures page size normalization.
type LimitConfig struct {
	Default int
	Max     int
}

// DefaultLimitConfig returns the console defaults.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{Default: DefaultLimit, Max: MaxLimit}
}

// SortConfig configures sortBy validation.
type SortConfig struct {
	Default string
	Allowed []string
}

// ClampLimit applies defaults and limits for page sizes.
func ClampLimit(value int, cfg LimitConfig) int {
	limit := value
	if limit <= 0 {
		limit = cfg.Default
	}
	if cfg.Max > 0 && limit > cfg.Max {
		limit = cfg.Max
	}
	if limit <= 0 {
		limit = 1
	}
	return limit
}

// NormalizeSort validates sortBy and applies the default.
func NormalizeSort(sortBy string, cfg SortConfig) (string, error) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		return cfg.Default, nil
	}
	for _, allowed := range cfg.Allowed {
		if sortBy == allowed {
			return sortBy, nil
		}
	}
	return "", goerrors.New(fmt.Sprintf("invalid sortBy: %s", sortBy), goerrors.CategoryBadInput).
		WithTextCode("INVALID_SORT")
}
