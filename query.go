package graphmodel

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/soundprediction/graphmodel/pkg/driver"
	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/schema"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// Nodes starts a deferred query over nodes of type T. Nothing touches the
// store until a terminal operator runs; operators only refine the
// description.
func Nodes[T any](h Handle) *query.Query[*T] {
	label, err := entityLabel[T](schema.KindNode)
	if err != nil {
		return query.New[*T](query.KindNodes, "", failExec(err), nodeDecode[T]())
	}
	return query.New[*T](query.KindNodes, label, handleExec(h), nodeDecode[T]())
}

// Relationships starts a deferred query over relationships of type T.
func Relationships[T any](h Handle) *query.Query[*T] {
	label, err := entityLabel[T](schema.KindRelationship)
	if err != nil {
		return query.New[*T](query.KindRelationships, "", failExec(err), relDecode[T]())
	}
	return query.New[*T](query.KindRelationships, label, handleExec(h), relDecode[T]())
}

// Search starts a case-insensitive full-text query across all node labels,
// yielding dynamic nodes.
func Search(h Handle, text string) *query.Query[*types.DynamicNode] {
	q := query.New[*types.DynamicNode](query.KindNodes, "", handleExec(h), dynamicNodeDecode)
	return q.Search(text)
}

// NodesByLabel starts a deferred query over nodes carrying the given label,
// yielding dynamic nodes. Useful when no Go type is declared for the label.
func NodesByLabel(h Handle, label string) *query.Query[*types.DynamicNode] {
	return query.New[*types.DynamicNode](query.KindNodes, label, handleExec(h), dynamicNodeDecode)
}

// SearchNodes starts a full-text query over nodes of type T. The match scans
// every stored property value, case-insensitively.
func SearchNodes[T any](h Handle, text string) *query.Query[*T] {
	return Nodes[T](h).Search(text)
}

// SearchRelationships starts a full-text query over relationships of type T.
func SearchRelationships[T any](h Handle, text string) *query.Query[*T] {
	return Relationships[T](h).Search(text)
}

// Traverse extends a node query with a relationship hop, yielding the nodes
// of type U reached through relType. The relationship type and target label
// derive from the declared types.
func Traverse[U, T any](q *query.Query[*T], relType string, dir types.Direction) *query.Query[*U] {
	label, err := entityLabel[U](schema.KindNode)
	if err != nil {
		return query.New[*U](query.KindNodes, "", failExec(err), nodeDecode[U]())
	}
	return query.Traverse[*U](q, relType, dir, label, nodeDecode[U]())
}

// Select projects a query down to named property fields, yielding raw
// records instead of hydrated entities.
func Select[T any](q *query.Query[T], fields ...string) *query.Query[query.Record] {
	return query.Project(q, fields...)
}

// handleExec defers handle resolution to execution time, so a query built on
// a transaction observes its state when a terminal operator runs.
func handleExec(h Handle) query.ExecFunc {
	return func(ctx context.Context, spec *query.Spec) ([]query.Record, error) {
		g, tx, err := h.handle()
		if err != nil {
			return nil, err
		}
		return g.store.ExecuteQuery(ctx, tx, spec)
	}
}

func failExec(err error) query.ExecFunc {
	return func(context.Context, *query.Spec) ([]query.Record, error) {
		return nil, err
	}
}

// entityLabel resolves the store label for T and checks the entity kind.
func entityLabel[T any](kind schema.EntityKind) (string, error) {
	t := reflect.TypeFor[T]()
	ts, err := schema.For(t)
	if err != nil {
		return "", err
	}
	if ts.Kind != kind {
		return "", fmt.Errorf("%s is not queryable as %v: %w", t.Name(), kind, types.ErrInvalidGraph)
	}
	return ts.Label(), nil
}

// nodeDecode materializes a query record into *T.
func nodeDecode[T any]() query.DecodeFunc[*T] {
	return func(rec query.Record) (*T, error) {
		node, err := materializeNode(reflect.TypeFor[T](), nodeRecordFromQuery(rec))
		if err != nil {
			return nil, err
		}
		out, ok := any(node).(*T)
		if !ok {
			return nil, fmt.Errorf("decoded %T, wanted %s: %w", node, reflect.TypeFor[T]().Name(), types.ErrInvalidGraph)
		}
		return out, nil
	}
}

// relDecode materializes a query record into a relationship *T.
func relDecode[T any]() query.DecodeFunc[*T] {
	return func(rec query.Record) (*T, error) {
		rel, err := materializeRelationship(reflect.TypeFor[T](), relRecordFromQuery(rec))
		if err != nil {
			return nil, err
		}
		out, ok := any(rel).(*T)
		if !ok {
			return nil, fmt.Errorf("decoded %T, wanted %s: %w", rel, reflect.TypeFor[T]().Name(), types.ErrInvalidGraph)
		}
		return out, nil
	}
}

func dynamicNodeDecode(rec query.Record) (*types.DynamicNode, error) {
	node, err := materializeNode(reflect.TypeOf(types.DynamicNode{}), nodeRecordFromQuery(rec))
	if err != nil {
		return nil, err
	}
	return node.(*types.DynamicNode), nil
}

// nodeRecordFromQuery splits a flattened query record back into a node
// record.
func nodeRecordFromQuery(rec query.Record) *driver.NodeRecord {
	out := &driver.NodeRecord{Props: map[string]any{}}
	for k, v := range rec {
		switch k {
		case "id":
			out.ID = cast.ToString(v)
		case "labels":
			out.Labels = cast.ToStringSlice(v)
		default:
			out.Props[k] = v
		}
	}
	return out
}

// relRecordFromQuery splits a flattened query record back into a
// relationship record.
func relRecordFromQuery(rec query.Record) *driver.RelRecord {
	out := &driver.RelRecord{Props: map[string]any{}}
	for k, v := range rec {
		switch k {
		case "id":
			out.ID = cast.ToString(v)
		case "type":
			out.Type = cast.ToString(v)
		case "start_node_id":
			out.StartID = cast.ToString(v)
		case "end_node_id":
			out.EndID = cast.ToString(v)
		default:
			out.Props[k] = v
		}
	}
	return out
}
