package types

import "errors"

// Domain failure taxonomy. These are surfaced to callers wrapped with
// operation and id context; match them with errors.Is.
var (
	// ErrNotFound is returned when a requested id does not exist, or when a
	// relationship does not resolve to both of its endpoints. It is never
	// retried internally.
	ErrNotFound = errors.New("not found")

	// ErrInvalidGraph is returned for forbidden property shapes: a cyclic
	// value-object subtree, an entity-typed property, a collection of
	// entities, or a dictionary of entities. It is raised before any store
	// mutation occurs.
	ErrInvalidGraph = errors.New("invalid graph shape")

	// ErrMissingEndpoint is returned when a relationship write references a
	// nonexistent node and creation on demand is disabled. No partial write
	// occurs.
	ErrMissingEndpoint = errors.New("missing relationship endpoint")

	// ErrConflict is returned on a duplicate id during create, or when
	// deleting a node that still has incident relationships without cascade.
	// Within a transaction the handle stays active so the caller decides how
	// to proceed.
	ErrConflict = errors.New("conflict")
)
