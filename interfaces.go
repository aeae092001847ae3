package graphmodel

import (
	"context"

	"github.com/soundprediction/graphmodel/pkg/types"
)

// This file defines focused interfaces so consumers can depend on the
// smallest surface that meets their needs. Both Graph and Transaction
// satisfy them; the generic retrieval and query functions accept any Handle.

// NodeWriter provides write operations on nodes.
type NodeWriter interface {
	// CreateNode persists a new node and its related subgraph within the
	// traversal depth.
	CreateNode(ctx context.Context, node types.Node, opts ...types.GraphOperationOptions) error

	// UpdateNode overwrites the stored state of an existing node.
	UpdateNode(ctx context.Context, node types.Node, opts ...types.GraphOperationOptions) error

	// DeleteNode removes a node by id, optionally cascading to its
	// incident relationships.
	DeleteNode(ctx context.Context, id string, cascade bool) error
}

// RelationshipWriter provides write operations on relationships.
type RelationshipWriter interface {
	// CreateRelationship persists a new relationship between two nodes.
	CreateRelationship(ctx context.Context, rel types.Relationship, opts ...types.GraphOperationOptions) error

	// UpdateRelationship overwrites the stored properties of an existing
	// relationship.
	UpdateRelationship(ctx context.Context, rel types.Relationship, opts ...types.GraphOperationOptions) error

	// DeleteRelationship removes a relationship by id.
	DeleteRelationship(ctx context.Context, id string) error
}

// GraphWriter combines node and relationship writes.
type GraphWriter interface {
	NodeWriter
	RelationshipWriter
}

// Compile-time checks that both operation targets satisfy the interfaces.
var (
	_ GraphWriter = (*Graph)(nil)
	_ GraphWriter = (*Transaction)(nil)
	_ Handle      = (*Graph)(nil)
	_ Handle      = (*Transaction)(nil)
)
