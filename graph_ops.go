package graphmodel

import (
	"context"
	"fmt"
	"reflect"

	"github.com/soundprediction/graphmodel/pkg/driver"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// CreateNode persists a new node and, within the traversal depth, its
// related subgraph. Ids are assigned to instances that have none; an
// existing id is a conflict.
func (g *Graph) CreateNode(ctx context.Context, node types.Node, opts ...types.GraphOperationOptions) error {
	return createNode(ctx, g, node, opts)
}

// CreateNode persists a new node within this unit of work.
func (t *Transaction) CreateNode(ctx context.Context, node types.Node, opts ...types.GraphOperationOptions) error {
	return createNode(ctx, t, node, opts)
}

// UpdateNode overwrites the stored state of an existing node and, within the
// traversal depth, its related subgraph.
func (g *Graph) UpdateNode(ctx context.Context, node types.Node, opts ...types.GraphOperationOptions) error {
	return updateNode(ctx, g, node, opts)
}

// UpdateNode overwrites an existing node within this unit of work.
func (t *Transaction) UpdateNode(ctx context.Context, node types.Node, opts ...types.GraphOperationOptions) error {
	return updateNode(ctx, t, node, opts)
}

// DeleteNode removes a node by id. Without cascade the delete is rejected
// when the node still has incident relationships.
func (g *Graph) DeleteNode(ctx context.Context, id string, cascade bool) error {
	return deleteNode(ctx, g, id, cascade)
}

// DeleteNode removes a node within this unit of work.
func (t *Transaction) DeleteNode(ctx context.Context, id string, cascade bool) error {
	return deleteNode(ctx, t, id, cascade)
}

// CreateRelationship persists a new relationship. Endpoints resolve from the
// Source and Target instances when set, otherwise from the declared node
// ids; a missing endpoint is created only when options allow it and an
// instance is available.
func (g *Graph) CreateRelationship(ctx context.Context, rel types.Relationship, opts ...types.GraphOperationOptions) error {
	return createRelationship(ctx, g, rel, opts)
}

// CreateRelationship persists a new relationship within this unit of work.
func (t *Transaction) CreateRelationship(ctx context.Context, rel types.Relationship, opts ...types.GraphOperationOptions) error {
	return createRelationship(ctx, t, rel, opts)
}

// UpdateRelationship overwrites the stored properties of an existing
// relationship. Endpoints left empty on the instance keep their stored
// values.
func (g *Graph) UpdateRelationship(ctx context.Context, rel types.Relationship, opts ...types.GraphOperationOptions) error {
	return updateRelationship(ctx, g, rel, opts)
}

// UpdateRelationship overwrites an existing relationship within this unit of
// work.
func (t *Transaction) UpdateRelationship(ctx context.Context, rel types.Relationship, opts ...types.GraphOperationOptions) error {
	return updateRelationship(ctx, t, rel, opts)
}

// DeleteRelationship removes a relationship by id.
func (g *Graph) DeleteRelationship(ctx context.Context, id string) error {
	return deleteRelationship(ctx, g, id)
}

// DeleteRelationship removes a relationship within this unit of work.
func (t *Transaction) DeleteRelationship(ctx context.Context, id string) error {
	return deleteRelationship(ctx, t, id)
}

// GetNode retrieves a node by id hydrated as *T, expanding navigation
// collections to the traversal depth. Nodes shared by several paths hydrate
// to one instance within the call.
func GetNode[T any](ctx context.Context, h Handle, id string, opts ...types.GraphOperationOptions) (*T, error) {
	g, tx, err := h.handle()
	if err != nil {
		return nil, err
	}
	hy := newHydrator(g, tx, g.options(opts))
	node, err := hy.hydrateNode(ctx, id, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out, ok := any(node).(*T)
	if !ok {
		return nil, fmt.Errorf("hydrated %T, wanted %s: %w", node, reflect.TypeFor[T]().Name(), types.ErrInvalidGraph)
	}
	return out, nil
}

// GetNodes retrieves several nodes by id. Each root hydrates independently
// with its own cache and depth budget; an absent id fails the whole call
// with ErrNotFound.
func GetNodes[T any](ctx context.Context, h Handle, ids []string, opts ...types.GraphOperationOptions) ([]*T, error) {
	g, tx, err := h.handle()
	if err != nil {
		return nil, err
	}

	// One round-trip up front surfaces every missing id before any
	// hydration work starts.
	recs, err := g.store.FetchNodes(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*driver.NodeRecord, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
		}
		hy := newHydrator(g, tx, g.options(opts))
		if err := hy.seedNode(rec, reflect.TypeFor[T]()); err != nil {
			return nil, err
		}
		node, err := hy.hydrateNode(ctx, id, reflect.TypeFor[T]())
		if err != nil {
			return nil, err
		}
		typed, ok := any(node).(*T)
		if !ok {
			return nil, fmt.Errorf("hydrated %T, wanted %s: %w", node, reflect.TypeFor[T]().Name(), types.ErrInvalidGraph)
		}
		out = append(out, typed)
	}
	return out, nil
}

// GetRelationship retrieves a relationship by id hydrated as *T, resolving
// endpoint instances when the depth allows at least one hop.
func GetRelationship[T any](ctx context.Context, h Handle, id string, opts ...types.GraphOperationOptions) (*T, error) {
	g, tx, err := h.handle()
	if err != nil {
		return nil, err
	}
	hy := newHydrator(g, tx, g.options(opts))
	rel, err := hy.hydrateRelationship(ctx, id, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out, ok := any(rel).(*T)
	if !ok {
		return nil, fmt.Errorf("hydrated %T, wanted %s: %w", rel, reflect.TypeFor[T]().Name(), types.ErrInvalidGraph)
	}
	return out, nil
}

// GetRelationships retrieves several relationships by id. Each root hydrates
// independently with its own cache and depth budget; an absent id fails the
// whole call with ErrNotFound.
func GetRelationships[T any](ctx context.Context, h Handle, ids []string, opts ...types.GraphOperationOptions) ([]*T, error) {
	g, tx, err := h.handle()
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		hy := newHydrator(g, tx, g.options(opts))
		rel, err := hy.hydrateRelationship(ctx, id, reflect.TypeFor[T]())
		if err != nil {
			return nil, err
		}
		typed, ok := any(rel).(*T)
		if !ok {
			return nil, fmt.Errorf("hydrated %T, wanted %s: %w", rel, reflect.TypeFor[T]().Name(), types.ErrInvalidGraph)
		}
		out = append(out, typed)
	}
	return out, nil
}

// write runs one planning function, opening and committing a store
// transaction when the handle carries none. Failures inside a caller-owned
// transaction leave it active; the caller decides whether to roll back.
func write(ctx context.Context, h Handle, opts []types.GraphOperationOptions, plan func(p *planner) error) error {
	g, tx, err := h.handle()
	if err != nil {
		return err
	}
	own := tx == nil
	if own {
		tx, err = g.store.Begin(ctx)
		if err != nil {
			return err
		}
	}
	p := newPlanner(g, tx, g.options(opts))
	if err := plan(p); err != nil {
		if own {
			_ = tx.Rollback(ctx)
		}
		return err
	}
	if err := p.apply(ctx); err != nil {
		if own {
			_ = tx.Rollback(ctx)
		}
		return err
	}
	if own {
		return tx.Commit(ctx)
	}
	return nil
}

func createNode(ctx context.Context, h Handle, node types.Node, opts []types.GraphOperationOptions) error {
	return write(ctx, h, opts, func(p *planner) error {
		return p.planNode(ctx, node, modeCreate)
	})
}

func updateNode(ctx context.Context, h Handle, node types.Node, opts []types.GraphOperationOptions) error {
	return write(ctx, h, opts, func(p *planner) error {
		return p.planNode(ctx, node, modeUpdate)
	})
}

func createRelationship(ctx context.Context, h Handle, rel types.Relationship, opts []types.GraphOperationOptions) error {
	return write(ctx, h, opts, func(p *planner) error {
		return p.planRelationshipRoot(ctx, rel, modeCreate)
	})
}

func updateRelationship(ctx context.Context, h Handle, rel types.Relationship, opts []types.GraphOperationOptions) error {
	return write(ctx, h, opts, func(p *planner) error {
		return p.planRelationshipRoot(ctx, rel, modeUpdate)
	})
}

func deleteNode(ctx context.Context, h Handle, id string, cascade bool) error {
	g, tx, err := h.handle()
	if err != nil {
		return err
	}
	return g.store.DeleteNode(ctx, tx, id, cascade)
}

func deleteRelationship(ctx context.Context, h Handle, id string) error {
	g, tx, err := h.handle()
	if err != nil {
		return err
	}
	return g.store.DeleteRelationship(ctx, tx, id)
}
