package graphmodel

import (
	"context"
	"fmt"
	"reflect"

	"github.com/soundprediction/graphmodel/pkg/driver"
	"github.com/soundprediction/graphmodel/pkg/schema"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// hydrator materializes stored records into typed instances. Each hydration
// keeps an id-to-instance cache so a node shared by several paths becomes one
// pointer, and cycles in the stored graph terminate.
type hydrator struct {
	graph *Graph
	tx    driver.Tx
	opts  types.GraphOperationOptions

	nodes    map[string]types.Node
	rels     map[string]types.Relationship
	expanded map[string]bool
}

func newHydrator(g *Graph, tx driver.Tx, opts types.GraphOperationOptions) *hydrator {
	return &hydrator{
		graph:    g,
		tx:       tx,
		opts:     opts,
		nodes:    map[string]types.Node{},
		rels:     map[string]types.Relationship{},
		expanded: map[string]bool{},
	}
}

type expandItem struct {
	id       string
	typ      reflect.Type
	distance int
}

// hydrateNode loads the node with the given id as an instance of nodeType
// (a node struct type, without pointer), expanding navigations to the
// configured depth.
func (h *hydrator) hydrateNode(ctx context.Context, id string, nodeType reflect.Type) (types.Node, error) {
	root, err := h.ensureNode(ctx, id, nodeType)
	if err != nil {
		return nil, err
	}
	queue := []expandItem{{id: id, typ: nodeType, distance: 0}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		next, err := h.expandNode(ctx, item)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}
	return root, nil
}

// seedNode primes the cache with an already-fetched record so hydrateNode
// does not refetch the root.
func (h *hydrator) seedNode(rec *driver.NodeRecord, nodeType reflect.Type) error {
	node, err := materializeNode(nodeType, rec)
	if err != nil {
		return err
	}
	h.nodes[rec.ID] = node
	return nil
}

// ensureNode returns the cached instance for id, fetching and materializing
// it on first sight.
func (h *hydrator) ensureNode(ctx context.Context, id string, nodeType reflect.Type) (types.Node, error) {
	if n, ok := h.nodes[id]; ok {
		return n, nil
	}
	rec, err := h.graph.store.FetchNode(ctx, h.tx, id)
	if err != nil {
		return nil, err
	}
	node, err := materializeNode(nodeType, rec)
	if err != nil {
		return nil, err
	}
	h.nodes[id] = node
	return node, nil
}

// expandNode populates the navigation collections of one already-hydrated
// node and returns the endpoints to expand next.
func (h *hydrator) expandNode(ctx context.Context, item expandItem) ([]expandItem, error) {
	if h.expanded[item.id] || !h.opts.Expands(item.distance) {
		return nil, nil
	}
	h.expanded[item.id] = true

	node := h.nodes[item.id]
	if reflect.TypeOf(node).Elem() != item.typ {
		return nil, nil
	}
	ts, err := schema.For(item.typ)
	if err != nil {
		return nil, err
	}
	if len(ts.Navigations) == 0 {
		return nil, nil
	}

	var relTypes []string
	for _, nav := range ts.Navigations {
		if h.opts.AllowsType(nav.RelType) {
			relTypes = append(relTypes, nav.RelType)
		}
	}
	if len(relTypes) == 0 {
		return nil, nil
	}

	recs, err := h.graph.store.FetchIncident(ctx, h.tx, []string{item.id}, relTypes)
	if err != nil {
		return nil, err
	}

	nv := reflect.ValueOf(node).Elem()
	var next []expandItem
	for _, nav := range ts.Navigations {
		if !h.opts.AllowsType(nav.RelType) {
			continue
		}
		slice := nv.FieldByIndex(nav.Index)
		for _, rec := range recs {
			if rec.Type != nav.RelType {
				continue
			}
			var farID string
			if nav.Direction == types.Outgoing {
				if rec.StartID != item.id {
					continue
				}
				farID = rec.EndID
			} else {
				if rec.EndID != item.id {
					continue
				}
				farID = rec.StartID
			}

			rel, fresh, err := h.ensureRelationship(nav.ElemType, rec)
			if err != nil {
				return nil, err
			}
			appendEntity(slice, rel)
			if !fresh {
				continue
			}

			rs, err := schema.For(nav.ElemType)
			if err != nil {
				return nil, err
			}
			nearIndex, farIndex := rs.SourceIndex, rs.TargetIndex
			farType := rs.TargetType
			if nav.Direction == types.Incoming {
				nearIndex, farIndex = rs.TargetIndex, rs.SourceIndex
				farType = rs.SourceType
			}
			rv := reflect.ValueOf(rel).Elem()
			if nearIndex != nil {
				assignEndpoint(rv.FieldByIndex(nearIndex), node)
			}
			if farIndex != nil && farType != nil {
				far, err := h.ensureNode(ctx, farID, farType)
				if err != nil {
					return nil, err
				}
				assignEndpoint(rv.FieldByIndex(farIndex), far)
				next = append(next, expandItem{id: farID, typ: farType, distance: item.distance + 1})
			}
		}
	}
	return next, nil
}

// hydrateRelationship loads one relationship by id, resolving its endpoint
// instances when the depth allows at least one hop.
func (h *hydrator) hydrateRelationship(ctx context.Context, id string, relType reflect.Type) (types.Relationship, error) {
	rec, err := h.graph.store.FetchRelationship(ctx, h.tx, id)
	if err != nil {
		return nil, err
	}
	rel, _, err := h.ensureRelationship(relType, rec)
	if err != nil {
		return nil, err
	}
	if !h.opts.Expands(0) {
		return rel, nil
	}

	rs, err := schema.For(relType)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(rel).Elem()
	var queue []expandItem
	if rs.SourceIndex != nil && rs.SourceType != nil {
		start, err := h.ensureNode(ctx, rec.StartID, rs.SourceType)
		if err != nil {
			return nil, err
		}
		assignEndpoint(rv.FieldByIndex(rs.SourceIndex), start)
		queue = append(queue, expandItem{id: rec.StartID, typ: rs.SourceType, distance: 1})
	}
	if rs.TargetIndex != nil && rs.TargetType != nil {
		end, err := h.ensureNode(ctx, rec.EndID, rs.TargetType)
		if err != nil {
			return nil, err
		}
		assignEndpoint(rv.FieldByIndex(rs.TargetIndex), end)
		queue = append(queue, expandItem{id: rec.EndID, typ: rs.TargetType, distance: 1})
	}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		next, err := h.expandNode(ctx, item)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}
	return rel, nil
}

// ensureRelationship returns the cached instance for a relationship record,
// materializing it on first sight. The second result reports whether the
// instance is new.
func (h *hydrator) ensureRelationship(relType reflect.Type, rec *driver.RelRecord) (types.Relationship, bool, error) {
	if r, ok := h.rels[rec.ID]; ok {
		return r, false, nil
	}
	rel, err := materializeRelationship(relType, rec)
	if err != nil {
		return nil, false, err
	}
	h.rels[rec.ID] = rel
	return rel, true, nil
}

// materializeNode builds a typed node instance from a stored record.
func materializeNode(nodeType reflect.Type, rec *driver.NodeRecord) (types.Node, error) {
	inst := reflect.New(nodeType).Interface()
	node, ok := inst.(types.Node)
	if !ok {
		return nil, fmt.Errorf("%s is not a node type: %w", nodeType.Name(), types.ErrInvalidGraph)
	}
	if err := schema.SetProperties(node, rec.Props); err != nil {
		return nil, err
	}
	node.SetID(rec.ID)
	if dn, ok := node.(*types.DynamicNode); ok {
		dn.Labels = append([]string(nil), rec.Labels...)
	}
	return node, nil
}

// materializeRelationship builds a typed relationship instance from a stored
// record.
func materializeRelationship(relType reflect.Type, rec *driver.RelRecord) (types.Relationship, error) {
	inst := reflect.New(relType).Interface()
	rel, ok := inst.(types.Relationship)
	if !ok {
		return nil, fmt.Errorf("%s is not a relationship type: %w", relType.Name(), types.ErrInvalidGraph)
	}
	if err := schema.SetProperties(rel, rec.Props); err != nil {
		return nil, err
	}
	rel.SetID(rec.ID)
	rel.SetStartNodeID(rec.StartID)
	rel.SetEndNodeID(rec.EndID)
	if dr, ok := rel.(*types.DynamicRelationship); ok {
		dr.Type = rec.Type
	}
	return rel, nil
}

// appendEntity appends an entity instance to a slice field, dereferencing
// when the slice holds struct values.
func appendEntity(slice reflect.Value, e types.Entity) {
	ev := reflect.ValueOf(e)
	if slice.Type().Elem().Kind() != reflect.Pointer {
		ev = ev.Elem()
	}
	slice.Set(reflect.Append(slice, ev))
}

// assignEndpoint sets a *Node endpoint field when the instance type matches.
func assignEndpoint(field reflect.Value, node types.Node) {
	nv := reflect.ValueOf(node)
	if nv.Type().AssignableTo(field.Type()) {
		field.Set(nv)
	}
}
