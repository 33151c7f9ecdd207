package cache

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-listsync/internal/cacheinfra"
)

// DefaultStaleTime is how long a successful fetch is served without a
// re-fetch.
const DefaultStaleTime = 5 * time.Minute

// Config exposes store configuration options.
type Config struct {
	Capacity           int
	NumShards          int
	Retention          time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	// StaleTime is added to LastFetchedAt to compute StaleAfter. Zero keeps
	// entries fresh until invalidated.
	StaleTime time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.StaleTime = DefaultStaleTime
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.toInternal().Validate(); err != nil {
		return err
	}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.StaleTime, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache config")
	}
	return nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		Retention:          c.Retention,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		Retention:          cfg.Retention,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
