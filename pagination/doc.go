// Package pagination implements cursor paginated collection views.
//
// The listing endpoints return a page of items plus an opaque cursor for the
// following page. Cursors only move forward, so going back relies on the
// History of visited cursors: the first page always has the empty cursor and
// each Next appends the cursor returned by the page being left.
//
// # Basic Usage
//
//	base := query.New("cars", query.F(query.LimitField, 20), query.F(query.SortField, "newest"))
//	list := pagination.NewPagedList(store, base, fetchCars)
//
//	view, err := list.Load(ctx)     // page 0
//	view, err = list.Next(ctx)      // page 1, fetched
//	view, err = list.Previous(ctx)  // page 0, from cache
//
// Changing the filters with SetFilters, or ApplyFilter for a single field,
// returns the list to the first page.
//
// Page data is stored in the cache.Store under the full page key, so a page
// fetched for filters that are no longer current is kept for later but never
// shown as the current view.
package pagination
