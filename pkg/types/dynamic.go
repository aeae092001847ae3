package types

// DynamicNode is a schema-less node carrying an explicit label set and an
// open property map. Dynamic entities participate in the same classification,
// traversal, and search machinery as typed entities.
type DynamicNode struct {
	NodeBase `graph:"-"`

	Labels     []string       `graph:"-" json:"labels" mapstructure:"labels"`
	Properties map[string]any `graph:"-" json:"properties" mapstructure:"properties"`
}

// NewDynamicNode returns a dynamic node with the given labels and an empty
// property map.
func NewDynamicNode(labels ...string) *DynamicNode {
	return &DynamicNode{Labels: labels, Properties: map[string]any{}}
}

// Set assigns a property value and returns the node for chaining.
func (n *DynamicNode) Set(name string, value any) *DynamicNode {
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	n.Properties[name] = value
	return n
}

// Get reads a property value.
func (n *DynamicNode) Get(name string) (any, bool) {
	v, ok := n.Properties[name]
	return v, ok
}

// DynamicRelationship is a schema-less relationship carrying an explicit
// type label and an open property map.
type DynamicRelationship struct {
	RelationshipBase `graph:"-"`

	Type       string         `graph:"-" json:"type" mapstructure:"type"`
	Properties map[string]any `graph:"-" json:"properties" mapstructure:"properties"`
}

// NewDynamicRelationship returns a dynamic relationship of the given type
// between the two node ids.
func NewDynamicRelationship(relType, startID, endID string) *DynamicRelationship {
	return &DynamicRelationship{
		RelationshipBase: RelationshipBase{StartNodeID: startID, EndNodeID: endID, Direction: Outgoing},
		Type:             relType,
		Properties:       map[string]any{},
	}
}

// Set assigns a property value and returns the relationship for chaining.
func (r *DynamicRelationship) Set(name string, value any) *DynamicRelationship {
	if r.Properties == nil {
		r.Properties = map[string]any{}
	}
	r.Properties[name] = value
	return r
}

// Get reads a property value.
func (r *DynamicRelationship) Get(name string) (any, bool) {
	v, ok := r.Properties[name]
	return v, ok
}
