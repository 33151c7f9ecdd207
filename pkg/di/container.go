package di

import (
	"context"
	"log"
	"net/http"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/clock"
	"github.com/goliatone/go-listsync/debounce"
	"github.com/goliatone/go-listsync/mutation"
	"github.com/goliatone/go-listsync/query"
	"github.com/goliatone/go-listsync/resourcecache"
	"github.com/goliatone/go-listsync/restclient"
)

// Container wires the shared pieces of a console session: one cache store,
// one REST client and one mutation dispatcher. Resource factories hand out
// list views and reorder engines bound to them.
type Container struct {
	config     Config
	store      *cache.MemoryStore
	client     *restclient.Client
	dispatcher *mutation.Dispatcher
	logger     cache.Logger
	clock      clock.Clock
}

// Option configures a Container.
type Option func(*containerOptions)

type containerOptions struct {
	logger     cache.Logger
	clock      clock.Clock
	tokens     restclient.TokenSource
	httpClient *http.Client
}

// WithLogger replaces the default log.Default() logger.
func WithLogger(l cache.Logger) Option {
	return func(o *containerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source for the store and the search debounce.
func WithClock(c clock.Clock) Option {
	return func(o *containerOptions) {
		o.clock = clock.OrReal(c)
	}
}

// WithTokenSource replaces the static Config.Token.
func WithTokenSource(ts restclient.TokenSource) Option {
	return func(o *containerOptions) {
		o.tokens = ts
	}
}

// WithHTTPClient overrides the REST transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *containerOptions) {
		o.httpClient = hc
	}
}

// NewContainer validates cfg and builds the shared components.
func NewContainer(cfg Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := containerOptions{
		logger: log.Default(),
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		o.tokens = restclient.StaticToken(cfg.Token)
	}

	store, err := cache.NewStore(cfg.CacheConfig(), cache.WithClock(o.clock), cache.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	clientCfg := cfg.ClientConfig()
	clientCfg.HTTPClient = o.httpClient
	client, err := restclient.New(clientCfg, o.tokens)
	if err != nil {
		return nil, err
	}

	return &Container{
		config:     cfg,
		store:      store,
		client:     client,
		dispatcher: mutation.NewDispatcher(client, store, mutation.WithLogger(o.logger)),
		logger:     o.logger,
		clock:      o.clock,
	}, nil
}

// NewContainerFromEnv loads the configuration from the environment and
// builds a Container.
func NewContainerFromEnv(opts ...Option) (*Container, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

// Store returns the shared cache store.
func (c *Container) Store() *cache.MemoryStore {
	return c.store
}

// Client returns the REST client.
func (c *Container) Client() *restclient.Client {
	return c.client
}

// Dispatcher returns the mutation dispatcher.
func (c *Container) Dispatcher() *mutation.Dispatcher {
	return c.dispatcher
}

// Config returns a copy of the configuration.
func (c *Container) Config() Config {
	return c.config
}

// SearchFilter debounces search input into target using the configured
// delay.
func (c *Container) SearchFilter(ctx context.Context, target debounce.Filterable, opts ...debounce.FilterOption) *debounce.SearchFilter {
	base := []debounce.FilterOption{
		debounce.WithDelay(c.config.SearchDebounce),
		debounce.WithDebounceOptions(debounce.WithClock(c.clock)),
		debounce.WithErrorHandler(func(err error) {
			c.logger.Printf("listsync: search filter: %v", err)
		}),
	}
	return debounce.NewSearchFilter(ctx, target, append(base, opts...)...)
}

// Close releases the REST client and drops every cached entry.
func (c *Container) Close() error {
	c.store.Reset()
	return c.client.Close()
}

// Resource returns a cached resource for T served from the named endpoint.
// Every key built by the resource carries the configured page size.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: Resource[catalog.Vehicle](container, catalog.Cars)
func Resource[T any](c *Container, name string, opts ...resourcecache.Option[T]) *resourcecache.CachedResource[T] {
	base := []resourcecache.Option[T]{
		resourcecache.WithName[T](name),
		resourcecache.WithDefaultFilters[T](query.F(query.LimitField, c.config.PageSize)),
		resourcecache.WithLogger[T](c.logger),
	}
	return resourcecache.New(c.store, restclient.Fetcher[T](c.client), c.dispatcher, append(base, opts...)...)
}
