// Package resourcecache provides a per resource facade over the list
// synchronization components.
//
// # Overview
//
// A CachedResource binds one REST resource (cars, events, hero-slides...)
// to the shared cache.Store, a listing fetcher and a mutation executor.
// Reads are cached per query key; writes pass through to the executor and,
// once the server accepts them, invalidate every cached listing of the
// resource. Invalidated listings keep their data and are refetched on the
// next read.
//
// # Basic Usage
//
//	cars := resourcecache.New[catalog.Vehicle](store, restclient.Fetcher[catalog.Vehicle](client), dispatcher,
//		resourcecache.WithName[catalog.Vehicle]("cars"))
//
//	page, err := cars.List(ctx, cars.Key(query.F(query.SortField, "newest")))
//	_, err = cars.Update(ctx, vehicle) // invalidates cars::*
//
// Views built with Paged, Infinite and Reorderer share the same store, so a
// mutation made through the resource is visible to all of them.
//
// # Resource Names
//
// Without WithName the resource name is derived from the type: the type
// name in kebab case with the last word pluralized, so HeroSlide maps to
// hero-slides.
//
// # Cross Resource Invalidation
//
// Listings of other resources that embed the changed records can be
// invalidated with the same mutation:
//
//	ctx = resourcecache.WithAffectedKeys(ctx, "events")
//	_, err = users.Delete(ctx, "u1") // invalidates users::* and events::*
package resourcecache
