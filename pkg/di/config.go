package di

import (
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/debounce"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/restclient"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "LISTSYNC_"

// Config is the container configuration. Every field can be set from the
// environment, for example LISTSYNC_BASE_URL or LISTSYNC_PAGE_SIZE.
type Config struct {
	BaseURL     string        `env:"BASE_URL"`
	Token       string        `env:"TOKEN"`
	UserAgent   string        `env:"USER_AGENT" envDefault:"go-listsync"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	PageSize       int           `env:"PAGE_SIZE" envDefault:"20"`
	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"500ms"`
	StaleTime      time.Duration `env:"STALE_TIME" envDefault:"5m"`

	CacheCapacity           int           `env:"CACHE_CAPACITY" envDefault:"4096"`
	CacheShards             int           `env:"CACHE_SHARDS" envDefault:"64"`
	CacheRetention          time.Duration `env:"CACHE_RETENTION" envDefault:"24h"`
	CacheEvictionPercentage int           `env:"CACHE_EVICTION_PERCENTAGE" envDefault:"10"`
}

// DefaultConfig returns the defaults used when the environment is empty.
// BaseURL is left blank.
func DefaultConfig() Config {
	store := cache.DefaultConfig()
	return Config{
		UserAgent:               "go-listsync",
		HTTPTimeout:             restclient.DefaultTimeout,
		PageSize:                pagination.DefaultLimit,
		SearchDebounce:          debounce.DefaultSearchDelay,
		StaleTime:               store.StaleTime,
		CacheCapacity:           store.Capacity,
		CacheShards:             store.NumShards,
		CacheRetention:          store.Retention,
		CacheEvictionPercentage: store.EvictionPercentage,
	}
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{Prefix: EnvPrefix})
}

// LoadConfigFrom reads the configuration from environ instead of the
// process environment. Keys carry the prefix.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	return parseConfig(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func parseConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "parse environment").
			WithTextCode("INVALID_ENV")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.HTTPTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(pagination.MaxLimit)),
		validation.Field(&c.SearchDebounce, validation.Min(time.Duration(0))),
		validation.Field(&c.StaleTime, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid listsync config")
	}
	return c.CacheConfig().Validate()
}

// CacheConfig returns the store configuration.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		Capacity:           c.CacheCapacity,
		NumShards:          c.CacheShards,
		Retention:          c.CacheRetention,
		EvictionPercentage: c.CacheEvictionPercentage,
		StaleTime:          c.StaleTime,
	}
}

// ClientConfig returns the REST client configuration.
func (c Config) ClientConfig() restclient.Config {
	return restclient.Config{
		BaseURL:   c.BaseURL,
		Timeout:   c.HTTPTimeout,
		UserAgent: c.UserAgent,
	}
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("validation_url_absolute", "must be an absolute URL")
	}
	return nil
}
