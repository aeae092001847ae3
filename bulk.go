package graphmodel

import (
	"context"
	"errors"

	"github.com/soundprediction/graphmodel/pkg/types"
	"github.com/soundprediction/graphmodel/pkg/utils"
)

// CreateNodes persists many root nodes concurrently, each in its own store
// transaction. Failed nodes do not roll back the others; the returned error
// joins every individual failure.
func (g *Graph) CreateNodes(ctx context.Context, nodes []types.Node, opts ...types.GraphOperationOptions) error {
	return g.bulk(ctx, nodes, func(ctx context.Context, node types.Node) error {
		return g.CreateNode(ctx, node, opts...)
	})
}

// UpdateNodes overwrites many stored nodes concurrently, each in its own
// store transaction.
func (g *Graph) UpdateNodes(ctx context.Context, nodes []types.Node, opts ...types.GraphOperationOptions) error {
	return g.bulk(ctx, nodes, func(ctx context.Context, node types.Node) error {
		return g.UpdateNode(ctx, node, opts...)
	})
}

func (g *Graph) bulk(ctx context.Context, nodes []types.Node, op func(context.Context, types.Node) error) error {
	if len(nodes) == 0 {
		return nil
	}
	fns := make([]func() error, len(nodes))
	for i, node := range nodes {
		fns[i] = func() error { return op(ctx, node) }
	}
	exec := utils.NewConcurrentExecutor(g.config.BulkConcurrency)
	err := errors.Join(exec.Execute(ctx, fns...)...)
	if err != nil {
		g.logger.Warn("bulk write completed with failures", "nodes", len(nodes), "error", err)
	}
	return err
}
