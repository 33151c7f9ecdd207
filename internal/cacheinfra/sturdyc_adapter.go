package cacheinfra

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc backed entry storage.
type Config struct {
	// Capacity defines the maximum number of entries that the storage can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Must be greater than 0. Default: 64
	NumShards int

	// Retention is how long an entry is kept after its last write. Entries
	// past retention are evicted and read as idle again.
	// Must be greater than 0.
	Retention time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the storage reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config sized for an admin console session.
func DefaultConfig() Config {
	return Config{
		Capacity:           4096,
		NumShards:          64,
		Retention:          24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, Retention and EvictionPercentage go straight to
// sturdyc.New and are not part of the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.Retention, validation.Required, validation.By(nonNegativeDuration)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.By(nonNegativeDuration)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache storage config")
	}
	return nil
}

func nonNegativeDuration(value any) error {
	d, _ := value.(time.Duration)
	if d < 0 {
		return validation.NewError("validation_duration_negative", "must be non-negative")
	}
	return nil
}

// Storage keeps values of type T in a sharded sturdyc client. It is a plain
// keyed container: callers own the state machine of what they store.
type Storage[T any] struct {
	client *sturdyc.Client[T]
}

// NewStorage validates cfg and builds the sturdyc client.
func NewStorage[T any](cfg Config) (*Storage[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[T](
		cfg.Capacity,
		cfg.NumShards,
		cfg.Retention,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &Storage[T]{client: client}, nil
}

// Get returns the value stored under key.
func (s *Storage[T]) Get(key string) (T, bool) {
	return s.client.Get(key)
}

// Set stores value under key, refreshing its retention.
func (s *Storage[T]) Set(key string, value T) {
	s.client.Set(key, value)
}

// Delete removes a single entry.
func (s *Storage[T]) Delete(key string) {
	s.client.Delete(key)
}

// Keys returns every key currently held.
func (s *Storage[T]) Keys() []string {
	return s.client.ScanKeys()
}

// KeysWithPrefix returns the keys that start with prefix.
func (s *Storage[T]) KeysWithPrefix(prefix string) []string {
	var matched []string
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	return matched
}

// Clear removes every entry.
func (s *Storage[T]) Clear() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}
