package graphmodel

import (
	"fmt"

	"github.com/soundprediction/graphmodel/pkg/types"
)

// Sentinel errors re-exported from pkg/types so callers can match with
// errors.Is without importing the types package.
var (
	// ErrNotFound is returned when a node or relationship id does not
	// exist in the store.
	ErrNotFound = types.ErrNotFound

	// ErrInvalidGraph is returned when an entity type or instance graph
	// violates the mapping rules, for example a direct entity-to-entity
	// field or a cyclic value subtree.
	ErrInvalidGraph = types.ErrInvalidGraph

	// ErrMissingEndpoint is returned when a relationship references an
	// endpoint node that does not exist and creation of missing nodes is
	// not enabled.
	ErrMissingEndpoint = types.ErrMissingEndpoint

	// ErrConflict is returned when an operation collides with existing
	// state, such as creating a duplicate id or deleting a node that
	// still has relationships without cascade.
	ErrConflict = types.ErrConflict
)

// TransactionStateError reports a transaction method called in a state that
// does not allow it. It indicates a programming error, not a store failure.
type TransactionStateError struct {
	State TransactionState
	Op    string
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("cannot %s a transaction in state %s", e.Op, e.State)
}
