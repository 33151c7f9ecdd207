// Package query builds canonical keys for listing queries.
//
// A Key addresses one page of one filtered listing:
//
//	key := query.New("cars",
//		query.F(query.SortField, "newest"),
//		query.F(query.SearchField, "Ferrari"),
//	)
//	key.String() // cars::searchTerm=Ferrari::sortBy=newest
//
// Keys are order independent: the same filters given in a different order
// produce the same canonical string. Empty filter values are dropped so an
// empty search box and a missing search box address the same entry.
//
// The cursor is always rendered last. Prefix returns the key without its
// cursor, which is what the paginators use to detect filter changes and what
// mutations use to invalidate every page of a listing at once.
package query
