// Package cache provides the keyed store of listing query results shared by
// the paginators, the infinite lists, the mutation dispatcher and the reorder
// engine.
//
// # Overview
//
// The package exports the Store contract and its default implementation:
//
//   - Store: read, fetch lifecycle (StartFetch/Resolve/Reject), optimistic
//     Write, Invalidate and Reset
//   - MemoryStore: sturdyc backed implementation with per key fetch tickets
//
// Entries are addressed by query.Key and carry a fetch Status
// (idle, loading, success, error) plus a Freshness tri-state
// (fresh, stale, fetching) computed at read time.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	entry, err := cache.Load(ctx, store, key, func(ctx context.Context) (pagination.Page[Car], error) {
//		return client.ListCars(ctx, key)
//	})
//
// # Fetch Lifecycle
//
// At most one fetch per key is in flight: StartFetch refuses to start a
// second one and Load returns the loading entry instead of calling the
// fetch function again. Each fetch gets a Ticket; Resolve and Reject only
// apply when the ticket still matches the entry, so results that arrive
// after a Reset are dropped.
//
// # Invalidation
//
// Invalidate marks entries stale without removing their data, so lists keep
// rendering the previous rows while the next read re-fetches
// (stale-while-revalidate). Targets are either a full key or a key prefix:
//
//	store.Invalidate("cars")                      // every cars listing
//	store.Invalidate(key.Prefix())                // every page of one listing
//	store.Invalidate(key.String())                // one page
//
// # Optimistic Writes
//
// Write replaces entry data without touching the fetch status. It is meant
// for the reorder engine, which shows a locally reordered list before the
// server confirms it.
package cache
