// Package infinite implements visibility driven collections that grow one
// page at a time and flatten every loaded page into a single list.
package infinite

import (
	"context"
	"sync"

	"github.com/goliatone/go-listsync/cache"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/query"
)

// IDFunc returns the identity used to de-duplicate items across pages.
type IDFunc[T any] func(T) string

// List is an infinite collection. Pages are fetched through the cache.Store
// in cursor order and appended to a flat, de-duplicated item list; the
// first occurrence of an id wins.
type List[T any] struct {
	mu     sync.Mutex
	store  cache.Store
	fetch  pagination.Fetcher[T]
	id     IDFunc[T]
	logger cache.Logger

	base       query.Key
	items      []T
	seen       map[string]struct{}
	pages      []query.Key
	nextCursor string
	exhausted  bool
	inFlight   bool
	visible    bool
	generation uint64
}

// Option configures a List.
type Option[T any] func(*List[T])

// WithLogger sets the logger used for diagnostics.
func WithLogger[T any](l cache.Logger) Option[T] {
	return func(list *List[T]) {
		if l != nil {
			list.logger = l
		}
	}
}

// New creates an empty list for base.
func New[T any](store cache.Store, base query.Key, fetch pagination.Fetcher[T], id IDFunc[T], opts ...Option[T]) *List[T] {
	l := &List[T]{
		store:  store,
		fetch:  fetch,
		id:     id,
		logger: cache.NopLogger,
		base:   base.WithCursor(""),
		seen:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FetchNext loads the page after the last one appended. It returns false
// without fetching when a fetch is already running or the last page had no
// next cursor. A result that arrives after the filters changed is dropped.
func (l *List[T]) FetchNext(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.inFlight || l.exhausted {
		l.mu.Unlock()
		return false, nil
	}
	key := l.base.WithCursor(l.nextCursor)
	gen := l.generation
	l.inFlight = true
	l.mu.Unlock()

	entry, err := cache.Load(ctx, l.store, key, func(ctx context.Context) (pagination.Page[T], error) {
		return l.fetch(ctx, key)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		l.logger.Printf("infinite: dropping page %s fetched for old filters", key)
		return false, nil
	}
	l.inFlight = false

	if err != nil {
		return false, err
	}
	page, ok := cache.DataAs[pagination.Page[T]](entry)
	if !ok {
		// another view is loading the key; the next visible signal retries
		l.visible = false
		return false, nil
	}
	l.appendPage(key, page)
	return true, nil
}

// Observe reports the visibility of the end-of-list sentinel. A fetch is
// triggered when the sentinel becomes visible. When the page was being
// loaded by another view sharing the store, the next visible signal
// triggers again.
func (l *List[T]) Observe(ctx context.Context, visible bool) (bool, error) {
	l.mu.Lock()
	rising := visible && !l.visible
	l.visible = visible
	l.mu.Unlock()

	if !rising {
		return false, nil
	}
	return l.FetchNext(ctx)
}

// SetFilters replaces the filters. When they changed the collection is
// emptied and any fetch in flight is orphaned. It reports whether they
// changed.
func (l *List[T]) SetFilters(base query.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	base = base.WithCursor("")
	if base.Prefix() == l.base.Prefix() {
		return false
	}
	l.base = base
	l.reset()
	return true
}

// ApplyFilter sets a single filter and loads the first page.
func (l *List[T]) ApplyFilter(ctx context.Context, name string, value any) error {
	l.mu.Lock()
	base := l.base
	l.mu.Unlock()

	l.SetFilters(base.With(name, value))
	_, err := l.FetchNext(ctx)
	return err
}

// Revalidate rebuilds the collection when any loaded page was invalidated
// or went stale. Pages are fetched again from the first one, up to the
// number of pages previously loaded. It reports whether a rebuild ran.
func (l *List[T]) Revalidate(ctx context.Context) (bool, error) {
	l.mu.Lock()
	stale := false
	for _, key := range l.pages {
		if l.store.Read(key).NeedsFetch() {
			stale = true
			break
		}
	}
	if !stale {
		l.mu.Unlock()
		return false, nil
	}
	loaded := len(l.pages)
	l.reset()
	gen := l.generation
	l.mu.Unlock()

	for i := 0; i < loaded; i++ {
		fetched, err := l.FetchNext(ctx)
		if err != nil {
			return true, err
		}
		if !fetched || l.Generation() != gen {
			break
		}
	}
	return true, nil
}

// Items returns a copy of the flattened collection.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of distinct items loaded.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// HasMore reports whether another page can be fetched.
func (l *List[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.exhausted
}

// Loading reports whether a page fetch is running.
func (l *List[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Pages returns the keys of the pages appended so far, in order.
func (l *List[T]) Pages() []query.Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]query.Key(nil), l.pages...)
}

// Generation changes every time the collection is reset.
func (l *List[T]) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// appendPage adds the page items not seen before. Callers hold l.mu.
func (l *List[T]) appendPage(key query.Key, page pagination.Page[T]) {
	for _, item := range page.Items {
		id := l.id(item)
		if _, dup := l.seen[id]; dup {
			continue
		}
		l.seen[id] = struct{}{}
		l.items = append(l.items, item)
	}
	l.pages = append(l.pages, key)
	l.nextCursor = page.NextCursor
	l.exhausted = page.NextCursor == ""
}

// reset empties the collection. Callers hold l.mu.
func (l *List[T]) reset() {
	l.items = nil
	l.seen = make(map[string]struct{})
	l.pages = nil
	l.nextCursor = ""
	l.exhausted = false
	l.inFlight = false
	l.generation++
}
