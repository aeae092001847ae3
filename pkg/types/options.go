package types

// FullGraph is the TraversalDepth value meaning unlimited depth, bounded
// only by cycle-safe visited tracking.
const FullGraph = -1

// GraphOperationOptions controls how far read and write operations traverse
// the graph and how missing or existing nodes are handled along the way.
// The zero value touches the root entity only. Options are immutable; the
// fluent With* helpers return modified copies.
type GraphOperationOptions struct {
	// TraversalDepth is the maximum relationship-hop distance from the root
	// entity: 0 = entity only, positive N = N hops, FullGraph = unlimited.
	TraversalDepth int `json:"traversal_depth" mapstructure:"traversal_depth"`

	// CreateMissingNodes creates relationship endpoints that do not exist
	// yet instead of failing with ErrMissingEndpoint.
	CreateMissingNodes bool `json:"create_missing_nodes" mapstructure:"create_missing_nodes"`

	// UpdateExistingNodes re-upserts every visited node during update walks.
	// When false only the root entity and newly created nodes are written.
	UpdateExistingNodes bool `json:"update_existing_nodes" mapstructure:"update_existing_nodes"`

	// RelationshipTypes is an allow-list filter on relationship type labels.
	// Empty means all types.
	RelationshipTypes []string `json:"relationship_types,omitempty" mapstructure:"relationship_types"`
}

// Options returns the zero options value as a starting point for the fluent
// With* helpers.
func Options() GraphOperationOptions {
	return GraphOperationOptions{}
}

// WithDepth returns a copy with TraversalDepth set to n.
func (o GraphOperationOptions) WithDepth(n int) GraphOperationOptions {
	o.TraversalDepth = n
	return o.copyTypes()
}

// WithRelationships returns a copy that traverses direct relationships
// (depth 1).
func (o GraphOperationOptions) WithRelationships() GraphOperationOptions {
	return o.WithDepth(1)
}

// WithFullGraph returns a copy that traverses the full reachable graph,
// cycle-safe.
func (o GraphOperationOptions) WithFullGraph() GraphOperationOptions {
	return o.WithDepth(FullGraph)
}

// WithCreateMissingNodes returns a copy that creates missing relationship
// endpoints on demand.
func (o GraphOperationOptions) WithCreateMissingNodes() GraphOperationOptions {
	o.CreateMissingNodes = true
	return o.copyTypes()
}

// WithUpdateExistingNodes returns a copy that re-upserts every visited
// existing node.
func (o GraphOperationOptions) WithUpdateExistingNodes() GraphOperationOptions {
	o.UpdateExistingNodes = true
	return o.copyTypes()
}

// WithRelationshipTypes returns a copy restricted to the given relationship
// type labels.
func (o GraphOperationOptions) WithRelationshipTypes(relTypes ...string) GraphOperationOptions {
	o.RelationshipTypes = relTypes
	return o.copyTypes()
}

// AllowsType reports whether the given relationship type label passes the
// RelationshipTypes filter.
func (o GraphOperationOptions) AllowsType(relType string) bool {
	if len(o.RelationshipTypes) == 0 {
		return true
	}
	for _, t := range o.RelationshipTypes {
		if t == relType {
			return true
		}
	}
	return false
}

// Expands reports whether a node at the given hop distance from the root
// should have its relationships traversed.
func (o GraphOperationOptions) Expands(distance int) bool {
	if o.TraversalDepth == FullGraph {
		return true
	}
	return distance < o.TraversalDepth
}

// copyTypes detaches the RelationshipTypes backing array so the receiver and
// the returned copy cannot alias.
func (o GraphOperationOptions) copyTypes() GraphOperationOptions {
	if len(o.RelationshipTypes) > 0 {
		o.RelationshipTypes = append([]string(nil), o.RelationshipTypes...)
	}
	return o
}
