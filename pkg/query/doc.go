// Package query provides the deferred query engine: a lazy, composable,
// store-agnostic description of a graph query (predicates, ordering,
// projection, paging, full-text search, path navigation) that is lowered to
// the backing store's native query form only when a terminal operator
// enumerates it.
//
// Every operator returns a new description wrapping the previous one;
// condition values are concrete Go values captured at description-build
// time.
package query
