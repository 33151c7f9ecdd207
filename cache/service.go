package cache

import (
	"context"

	"github.com/goliatone/go-listsync/query"
)

// Store is the process wide keyed store of query results. Components read
// entries freely but only change them through these operations.
type Store interface {
	// Read returns the current entry, creating an idle one if absent.
	Read(key query.Key) Entry
	// StartFetch moves the entry to loading. It returns false, and no
	// ticket, when a fetch for the key is already in flight.
	StartFetch(key query.Key) (Ticket, bool)
	// Resolve stores data for the fetch identified by ticket. Tickets that
	// no longer match the entry are discarded and Resolve returns false.
	Resolve(ticket Ticket, data any) bool
	// Reject stores err for the fetch identified by ticket.
	Reject(ticket Ticket, err error) bool
	// Write overwrites the entry data without touching its fetch status.
	Write(key query.Key, data any)
	// Invalidate marks every entry addressed by target as stale, target
	// being a full key or a key prefix. Data is kept.
	Invalidate(target string) int
	// Reset drops every entry.
	Reset()
}

// Logger is the logging surface used across the package tree. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

// FetchFn is the function signature Load expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Load is a read-through helper. It returns the cached entry when it does
// not need a fetch, otherwise it runs fetch and stores the outcome. When a
// fetch for the key is already in flight it returns the loading entry
// without calling fetch.
//
// The returned error is the fetch error of this call, if any; the same error
// is also stored in the entry.
func Load[T any](ctx context.Context, store Store, key query.Key, fetch FetchFn[T]) (Entry, error) {
	entry := store.Read(key)
	if !entry.NeedsFetch() {
		return entry, nil
	}
	return Refresh(ctx, store, key, fetch)
}

// Refresh fetches key regardless of its freshness, still honoring the one
// fetch in flight per key rule.
func Refresh[T any](ctx context.Context, store Store, key query.Key, fetch FetchFn[T]) (Entry, error) {
	ticket, ok := store.StartFetch(key)
	if !ok {
		return store.Read(key), nil
	}

	data, err := fetch(ctx)
	if err != nil {
		store.Reject(ticket, err)
		return store.Read(key), err
	}

	store.Resolve(ticket, data)
	return store.Read(key), nil
}
