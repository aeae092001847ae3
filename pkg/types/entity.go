package types

// Direction defines which endpoint of a relationship is semantically the
// source from the owning node's perspective.
type Direction string

const (
	// Outgoing relationships point from the owning node to the target.
	Outgoing Direction = "outgoing"
	// Incoming relationships point from the source to the owning node.
	Incoming Direction = "incoming"
)

// Entity is implemented by every node and relationship participating in the
// graph. Identity is a caller- or system-generated stable string, unique
// within the graph and immutable once set.
type Entity interface {
	GetID() string
	SetID(id string)
}

// Node is implemented by structs that embed NodeBase.
type Node interface {
	Entity
	isGraphNode()
}

// Relationship is implemented by structs that embed RelationshipBase.
// A relationship is a directed, typed, identified edge between two nodes,
// carrying its own properties.
type Relationship interface {
	Entity
	GetStartNodeID() string
	SetStartNodeID(id string)
	GetEndNodeID() string
	SetEndNodeID(id string)
	GetDirection() Direction
	SetDirection(d Direction)
}

// NodeBase is the embeddable base for node structs. The graph label is
// declared with a struct tag on the embedded field:
//
//	type Person struct {
//		types.NodeBase `graph:"label=Person"`
//		FirstName      string
//	}
//
// When no tag is present the struct type name is used as the label.
type NodeBase struct {
	ID string `graph:"-" json:"id" mapstructure:"id"`
}

// GetID returns the node's identity.
func (b *NodeBase) GetID() string { return b.ID }

// SetID assigns the node's identity.
func (b *NodeBase) SetID(id string) { b.ID = id }

func (b *NodeBase) isGraphNode() {}

// RelationshipBase is the embeddable base for relationship structs:
//
//	type Knows struct {
//		types.RelationshipBase `graph:"label=KNOWS"`
//		Since                  int
//		Target                 *Person
//	}
//
// Source and Target node pointer fields are recognized by name, or by the
// tags graph:"startNode" and graph:"endNode". They are populated only when
// the relationship is hydrated with a traversal depth of at least one.
type RelationshipBase struct {
	ID          string    `graph:"-" json:"id" mapstructure:"id"`
	StartNodeID string    `graph:"-" json:"start_node_id" mapstructure:"start_node_id"`
	EndNodeID   string    `graph:"-" json:"end_node_id" mapstructure:"end_node_id"`
	Direction   Direction `graph:"-" json:"direction" mapstructure:"direction"`
}

// GetID returns the relationship's identity.
func (b *RelationshipBase) GetID() string { return b.ID }

// SetID assigns the relationship's identity.
func (b *RelationshipBase) SetID(id string) { b.ID = id }

// GetStartNodeID returns the id of the relationship's start node.
func (b *RelationshipBase) GetStartNodeID() string { return b.StartNodeID }

// SetStartNodeID assigns the id of the relationship's start node.
func (b *RelationshipBase) SetStartNodeID(id string) { b.StartNodeID = id }

// GetEndNodeID returns the id of the relationship's end node.
func (b *RelationshipBase) GetEndNodeID() string { return b.EndNodeID }

// SetEndNodeID assigns the id of the relationship's end node.
func (b *RelationshipBase) SetEndNodeID(id string) { b.EndNodeID = id }

// GetDirection returns the relationship's direction.
func (b *RelationshipBase) GetDirection() Direction {
	if b.Direction == "" {
		return Outgoing
	}
	return b.Direction
}

// SetDirection assigns the relationship's direction.
func (b *RelationshipBase) SetDirection(d Direction) { b.Direction = d }
