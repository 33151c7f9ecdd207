package pagination

import (
	"context"
	"sync"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/query"
)

// Fetcher loads the page addressed by key from the source of truth.
type Fetcher[T any] func(ctx context.Context, key query.Key) (Page[T], error)

// View is what a paged collection shows for its current key.
type View[T any] struct {
	Key         query.Key
	Items       []T
	PageIndex   int
	HasNext     bool
	HasPrevious bool
	Status      cache.Status
	Freshness   cache.Freshness
	Err         error
}

// Loading reports whether the current page is being fetched without any
// data to show yet.
func (v View[T]) Loading() bool {
	return v.Status == cache.StatusLoading && v.Items == nil
}

// PagedList drives a cursor paginated collection on top of a cache.Store.
// Filters and the page history are owned by the list; page data lives in the
// store, so returning to a visited page is served from cache.
type PagedList[T any] struct {
	mu      sync.Mutex
	store   cache.Store
	fetch   Fetcher[T]
	base    query.Key
	history *History
	logger  cache.Logger
}

// ListOption configures a PagedList.
type ListOption[T any] func(*PagedList[T])

// WithLogger sets the logger used for diagnostics.
func WithLogger[T any](l cache.Logger) ListOption[T] {
	return func(p *PagedList[T]) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPagedList creates a list for base, positioned on the first page.
func NewPagedList[T any](store cache.Store, base query.Key, fetch Fetcher[T], opts ...ListOption[T]) *PagedList[T] {
	p := &PagedList[T]{
		store:   store,
		fetch:   fetch,
		base:    base.WithCursor(""),
		history: NewHistory(),
		logger:  cache.NopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentKey returns the key of the page on display.
func (p *PagedList[T]) CurrentKey() query.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentKey()
}

// Base returns the filter key without cursor.
func (p *PagedList[T]) Base() query.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.base
}

// SetFilters replaces the filters. When they differ from the current ones
// the history is reset to the first page. It reports whether they changed.
func (p *PagedList[T]) SetFilters(base query.Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	base = base.WithCursor("")
	if base.Prefix() == p.base.Prefix() {
		return false
	}
	p.base = base
	p.history.Reset()
	return true
}

// ApplyFilter sets a single filter and loads the resulting first page.
func (p *PagedList[T]) ApplyFilter(ctx context.Context, name string, value any) error {
	p.mu.Lock()
	base := p.base
	p.mu.Unlock()

	p.SetFilters(base.With(name, value))
	_, err := p.Load(ctx)
	return err
}

// Load returns the current page, fetching it when the cache has nothing
// fresh. If the filters or page change while the fetch runs, the result is
// kept in the store under its own key and the view of the new current key
// is returned instead.
func (p *PagedList[T]) Load(ctx context.Context) (View[T], error) {
	key := p.CurrentKey()

	_, err := cache.Load(ctx, p.store, key, func(ctx context.Context) (Page[T], error) {
		return p.fetch(ctx, key)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.currentKey()
	if !current.Equal(key) {
		p.logger.Printf("pagination: %s superseded by %s", key, current)
		return p.view(current), nil
	}
	return p.view(current), err
}

// Next advances to the following page. It is a no-op when the current page
// has not been loaded or carries no next cursor.
func (p *PagedList[T]) Next(ctx context.Context) (View[T], error) {
	p.mu.Lock()
	page, ok := cache.DataAs[Page[T]](p.store.Read(p.currentKey()))
	if !ok || !p.history.Next(page.NextCursor) {
		v := p.view(p.currentKey())
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	return p.Load(ctx)
}

// Previous goes back one page. Visited pages are served from cache while
// fresh.
func (p *PagedList[T]) Previous(ctx context.Context) (View[T], error) {
	p.mu.Lock()
	if !p.history.Previous() {
		v := p.view(p.currentKey())
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	return p.Load(ctx)
}

// View returns the current page as cached, without fetching.
func (p *PagedList[T]) View() View[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view(p.currentKey())
}

func (p *PagedList[T]) currentKey() query.Key {
	return p.base.WithCursor(p.history.Current())
}

// view builds the view of key. Callers hold p.mu.
func (p *PagedList[T]) view(key query.Key) View[T] {
	entry := p.store.Read(key)
	v := View[T]{
		Key:         key,
		PageIndex:   p.history.PageIndex(),
		HasPrevious: p.history.HasPrevious(),
		Status:      entry.Status,
		Freshness:   entry.Freshness,
		Err:         entry.Err,
	}
	if page, ok := cache.DataAs[Page[T]](entry); ok {
		v.Items = page.Items
		v.HasNext = page.HasNext()
	}
	return v
}
