package resourcecache

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/infinite"
	"github.com/goliatone/go-listsync/mutation"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/query"
	"github.com/goliatone/go-listsync/reorder"
)

// Executor sends mutation requests. *mutation.Dispatcher satisfies it.
type Executor interface {
	Execute(ctx context.Context, req mutation.Request) (mutation.Response, error)
}

// CachedResource couples the listing reads of one resource with its
// mutations. Reads go through the cache.Store; every successful write
// invalidates all cached listings of the resource.
type CachedResource[T any] struct {
	name        string
	store       cache.Store
	fetch       pagination.Fetcher[T]
	exec        Executor
	defaults    []query.Filter
	logger      cache.Logger
	keyRegistry *xsync.MapOf[string, struct{}]
}

// Option configures a CachedResource.
type Option[T any] func(*CachedResource[T])

// WithName overrides the resource name derived from T.
func WithName[T any](name string) Option[T] {
	return func(c *CachedResource[T]) {
		if name != "" {
			c.name = name
		}
	}
}

// WithDefaultFilters sets filters applied to every key built by Key, such
// as the page size. Filters passed to Key override them.
func WithDefaultFilters[T any](filters ...query.Filter) Option[T] {
	return func(c *CachedResource[T]) {
		c.defaults = append(c.defaults, filters...)
	}
}

// WithLogger sets the logger handed to the list views and reorder engines.
func WithLogger[T any](l cache.Logger) Option[T] {
	return func(c *CachedResource[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cached resource for T. The resource name defaults to
// ResourceName[T]().
func New[T any](store cache.Store, fetch pagination.Fetcher[T], exec Executor, opts ...Option[T]) *CachedResource[T] {
	c := &CachedResource[T]{
		name:        ResourceName[T](),
		store:       store,
		fetch:       fetch,
		exec:        exec,
		logger:      cache.NopLogger,
		keyRegistry: xsync.NewMapOf[string, struct{}](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the resource name used in keys and endpoints.
func (c *CachedResource[T]) Name() string {
	return c.name
}

// Key builds a listing key for the resource.
func (c *CachedResource[T]) Key(filters ...query.Filter) query.Key {
	return query.New(c.name, append(append([]query.Filter{}, c.defaults...), filters...)...)
}

// List returns the page addressed by key, from cache when fresh.
func (c *CachedResource[T]) List(ctx context.Context, key query.Key) (pagination.Page[T], error) {
	if key.Resource() != c.name {
		return pagination.Page[T]{}, goerrors.New(
			fmt.Sprintf("key %s does not belong to resource %s", key, c.name),
			goerrors.CategoryBadInput,
		)
	}

	c.trackKey(key.String())
	entry, err := cache.Load(ctx, c.store, key, func(ctx context.Context) (pagination.Page[T], error) {
		return c.fetch(ctx, key)
	})
	if err != nil {
		return pagination.Page[T]{}, err
	}
	page, _ := cache.DataAs[pagination.Page[T]](entry)
	return page, nil
}

// Paged returns a paginated view over the resource.
func (c *CachedResource[T]) Paged(filters ...query.Filter) *pagination.PagedList[T] {
	return pagination.NewPagedList(c.store, c.Key(filters...), c.trackedFetch(),
		pagination.WithLogger[T](c.logger))
}

// Infinite returns an infinite view over the resource.
func (c *CachedResource[T]) Infinite(filters ...query.Filter) *infinite.List[T] {
	return infinite.New(c.store, c.Key(filters...), c.trackedFetch(), c.mustID,
		infinite.WithLogger[T](c.logger))
}

// Reorderer returns a reorder engine for the listing cached under key.
func (c *CachedResource[T]) Reorderer(key query.Key) *reorder.Engine[T] {
	return reorder.NewEngine(c.store, c.exec, key, c.mustID,
		reorder.WithResource[T](c.name), reorder.WithLogger[T](c.logger))
}

// Create sends a new record.
func (c *CachedResource[T]) Create(ctx context.Context, record T) (mutation.Response, error) {
	return c.exec.Execute(ctx, mutation.Request{
		Operation:    mutation.OpCreate,
		Resource:     c.name,
		Payload:      record,
		AffectedKeys: c.affectedKeys(ctx),
	})
}

// Update sends the changes to an existing record, addressed by its ID field.
func (c *CachedResource[T]) Update(ctx context.Context, record T) (mutation.Response, error) {
	id, err := extractID(record)
	if err != nil {
		return mutation.Response{}, err
	}
	return c.exec.Execute(ctx, mutation.Request{
		Operation:    mutation.OpUpdate,
		Resource:     c.name,
		ID:           id,
		Payload:      record,
		AffectedKeys: c.affectedKeys(ctx),
	})
}

// Delete removes the record with id.
func (c *CachedResource[T]) Delete(ctx context.Context, id string) (mutation.Response, error) {
	return c.exec.Execute(ctx, mutation.Request{
		Operation:    mutation.OpDelete,
		Resource:     c.name,
		ID:           id,
		AffectedKeys: c.affectedKeys(ctx),
	})
}

// Reorder sends a full ordering of the resource ids.
func (c *CachedResource[T]) Reorder(ctx context.Context, ids []string) (mutation.Response, error) {
	return c.exec.Execute(ctx, mutation.Request{
		Operation:    mutation.OpReorder,
		Resource:     c.name,
		Payload:      mutation.ReorderPayload{SlideOrder: ids},
		AffectedKeys: c.affectedKeys(ctx),
	})
}

// Invalidate marks every cached listing of the resource as stale.
func (c *CachedResource[T]) Invalidate() int {
	return c.store.Invalidate(c.name)
}

// TrackedKeys returns the listing keys read through this resource.
func (c *CachedResource[T]) TrackedKeys() []string {
	var keys []string
	c.keyRegistry.Range(func(key string, _ struct{}) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// trackKey registers a listing key read through the resource.
func (c *CachedResource[T]) trackKey(key string) {
	c.keyRegistry.Store(key, struct{}{})
}

func (c *CachedResource[T]) trackedFetch() pagination.Fetcher[T] {
	return func(ctx context.Context, key query.Key) (pagination.Page[T], error) {
		c.trackKey(key.String())
		return c.fetch(ctx, key)
	}
}

func (c *CachedResource[T]) affectedKeys(ctx context.Context) []string {
	return dedupeStrings(append([]string{c.name}, affectedKeysFromContext(ctx)...))
}

func (c *CachedResource[T]) mustID(record T) string {
	id, _ := extractID(record)
	return id
}

type identified interface {
	ItemID() string
}

// extractID returns the record id: ItemID when the record has one, the ID
// field read through reflection otherwise.
func extractID[T any](record T) (string, error) {
	v := reflect.ValueOf(record)
	if r, ok := any(record).(identified); ok && !(v.Kind() == reflect.Pointer && v.IsNil()) {
		if id := r.ItemID(); id != "" {
			return id, nil
		}
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", goerrors.New("nil record", goerrors.CategoryBadInput)
		}
		v = v.Elem()
	}

	if v.Kind() == reflect.Struct {
		for _, fieldName := range []string{"ID", "Id"} {
			field := v.FieldByName(fieldName)
			if field.IsValid() && field.CanInterface() {
				if id := fmt.Sprintf("%v", field.Interface()); id != "" {
					return id, nil
				}
			}
		}
	}
	return "", goerrors.New(fmt.Sprintf("no ID field found in %T", record), goerrors.CategoryBadInput).
		WithTextCode("MISSING_ID")
}
