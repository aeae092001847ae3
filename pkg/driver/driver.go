package driver

import (
	"context"

	"github.com/soundprediction/graphmodel/pkg/query"
)

// NodeRecord is the store-level representation of a node.
type NodeRecord struct {
	ID     string         `json:"id"`
	Labels []string       `json:"labels"`
	Props  map[string]any `json:"props"`
}

// RelRecord is the store-level representation of a relationship.
type RelRecord struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	StartID string         `json:"start_id"`
	EndID   string         `json:"end_id"`
	Props   map[string]any `json:"props"`
}

// NodeUpsert is one node write in a plan.
type NodeUpsert struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// RelUpsert is one relationship write in a plan.
type RelUpsert struct {
	ID      string
	Type    string
	StartID string
	EndID   string
	Props   map[string]any
}

// WritePlan is an ordered sequence of node and relationship upserts produced
// by a write-path walk. Nodes are applied before the relationships that
// reference them; the whole plan applies atomically.
type WritePlan struct {
	Nodes         []NodeUpsert
	Relationships []RelUpsert
}

// Empty reports whether the plan carries no writes.
func (p *WritePlan) Empty() bool {
	return p == nil || (len(p.Nodes) == 0 && len(p.Relationships) == 0)
}

// Tx is a store unit-of-work handle. Commit applies all buffered operations
// atomically; Rollback discards them. Both are terminal for the handle.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GraphStore is the external store collaborator consumed by the engine. All
// methods accept an optional unit-of-work handle; nil means auto-commit.
//
// Absent ids surface types.ErrNotFound; deleting a node that still has
// incident relationships without cascade surfaces types.ErrConflict.
type GraphStore interface {
	// UpsertNode creates or updates a node.
	UpsertNode(ctx context.Context, tx Tx, labels []string, id string, props map[string]any) error
	// UpsertRelationship creates or updates a relationship between two
	// existing nodes.
	UpsertRelationship(ctx context.Context, tx Tx, relType, startID, endID, id string, props map[string]any) error

	// FetchNode retrieves one node by id.
	FetchNode(ctx context.Context, tx Tx, id string) (*NodeRecord, error)
	// FetchNodes retrieves the nodes whose ids exist; missing ids are
	// omitted, not errors.
	FetchNodes(ctx context.Context, tx Tx, ids []string) ([]*NodeRecord, error)
	// FetchRelationship retrieves one relationship by id.
	FetchRelationship(ctx context.Context, tx Tx, id string) (*RelRecord, error)
	// FetchIncident retrieves all relationships incident to the given nodes,
	// optionally filtered by type, in a stable order.
	FetchIncident(ctx context.Context, tx Tx, nodeIDs []string, relTypes []string) ([]*RelRecord, error)

	// NodeExists reports whether a node id exists.
	NodeExists(ctx context.Context, tx Tx, id string) (bool, error)

	// DeleteNode removes a node. With cascade it removes incident
	// relationships one hop first; without, it fails when any exist.
	DeleteNode(ctx context.Context, tx Tx, id string, cascade bool) error
	// DeleteRelationship removes a relationship by id.
	DeleteRelationship(ctx context.Context, tx Tx, id string) error

	// ApplyPlan applies a write plan. Outside a unit of work the plan is
	// wrapped in a store transaction so no partial write is visible.
	ApplyPlan(ctx context.Context, tx Tx, plan *WritePlan) error

	// ExecuteQuery lowers a deferred query description to the store's query
	// language and executes it.
	ExecuteQuery(ctx context.Context, tx Tx, spec *query.Spec) ([]query.Record, error)

	// Begin opens a new unit of work.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the store's resources.
	Close(ctx context.Context) error
}
