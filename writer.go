package graphmodel

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/soundprediction/graphmodel/pkg/driver"
	"github.com/soundprediction/graphmodel/pkg/schema"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// writeMode distinguishes how the walker treats the entity it reaches.
type writeMode int

const (
	modeCreate  writeMode = iota // root of a create, id collision is a conflict
	modeUpdate                   // root of an update, id must exist
	modeRelated                  // reached through a relationship
)

// planner walks an object graph breadth-first and accumulates a write plan.
// Existence checks run against the store through the supplied handle so the
// plan respects transaction-local state.
type planner struct {
	graph *Graph
	tx    driver.Tx
	opts  types.GraphOperationOptions

	plan *driver.WritePlan
	// plannedNodes and plannedRels hold ids already added to the plan, so
	// shared subgraphs are written once and id references resolve.
	plannedNodes map[string]bool
	plannedRels  map[string]bool
}

func newPlanner(g *Graph, tx driver.Tx, opts types.GraphOperationOptions) *planner {
	return &planner{
		graph:        g,
		tx:           tx,
		opts:         opts,
		plan:         &driver.WritePlan{},
		plannedNodes: map[string]bool{},
		plannedRels:  map[string]bool{},
	}
}

type pendingNode struct {
	node     types.Node
	distance int
	mode     writeMode
}

// planNode builds the write plan rooted at one node.
func (p *planner) planNode(ctx context.Context, root types.Node, mode writeMode) error {
	queue := []pendingNode{{node: root, distance: 0, mode: mode}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		next, err := p.visitNode(ctx, item)
		if err != nil {
			return err
		}
		queue = append(queue, next...)
	}
	return nil
}

// visitNode plans one node and returns the related nodes to visit next.
func (p *planner) visitNode(ctx context.Context, item pendingNode) ([]pendingNode, error) {
	node := item.node
	ts, err := schema.Of(node)
	if err != nil {
		return nil, err
	}
	if ts.Kind != schema.KindNode {
		return nil, fmt.Errorf("%s is not a node type: %w", ts.Type.Name(), types.ErrInvalidGraph)
	}
	if err := schema.CheckValueCycles(node); err != nil {
		return nil, err
	}

	id := node.GetID()
	if id == "" {
		if item.mode == modeUpdate {
			return nil, fmt.Errorf("update requires an id: %w", types.ErrNotFound)
		}
		id = uuid.NewString()
		node.SetID(id)
	}

	if p.plannedNodes[id] {
		return nil, nil
	}

	exists, err := p.nodeExists(ctx, id)
	if err != nil {
		return nil, err
	}
	switch item.mode {
	case modeCreate:
		if exists {
			return nil, fmt.Errorf("node %s already exists: %w", id, types.ErrConflict)
		}
	case modeUpdate:
		if !exists {
			return nil, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
		}
	case modeRelated:
		if !exists && !p.opts.CreateMissingNodes {
			return nil, fmt.Errorf("related node %s does not exist: %w", id, types.ErrMissingEndpoint)
		}
	}
	p.plannedNodes[id] = true

	// An existing related node keeps its stored properties unless updates
	// are opted in; its outgoing structure is still walked.
	writeProps := item.mode != modeRelated || !exists || p.opts.UpdateExistingNodes
	if writeProps {
		props, err := schema.Properties(node)
		if err != nil {
			return nil, err
		}
		labels, err := schema.Labels(node)
		if err != nil {
			return nil, err
		}
		p.plan.Nodes = append(p.plan.Nodes, driver.NodeUpsert{ID: id, Labels: labels, Props: props})
	}

	if !p.opts.Expands(item.distance) {
		return nil, nil
	}

	var next []pendingNode
	nv := reflect.ValueOf(node)
	for nv.Kind() == reflect.Pointer {
		nv = nv.Elem()
	}
	for _, nav := range ts.Navigations {
		if !p.opts.AllowsType(nav.RelType) {
			continue
		}
		slice := nv.FieldByIndex(nav.Index)
		for i := 0; i < slice.Len(); i++ {
			rel, ok := entityAt(slice.Index(i)).(types.Relationship)
			if !ok || rel == nil {
				continue
			}
			more, err := p.visitRelationship(ctx, rel, node, nav, item.distance)
			if err != nil {
				return nil, err
			}
			next = append(next, more...)
		}
	}
	return next, nil
}

// visitRelationship plans one relationship reached from ownerNode through a
// navigation property, returning the far endpoint when it carries an
// instance to visit.
func (p *planner) visitRelationship(ctx context.Context, rel types.Relationship, owner types.Node, nav schema.Navigation, distance int) ([]pendingNode, error) {
	rs, err := schema.Of(rel)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckValueCycles(rel); err != nil {
		return nil, err
	}

	id := rel.GetID()
	if id == "" {
		id = uuid.NewString()
		rel.SetID(id)
	}
	if p.plannedRels[id] {
		return nil, nil
	}
	p.plannedRels[id] = true

	rel.SetDirection(nav.Direction)

	// The owner fills one endpoint; the navigation direction decides which.
	var farIndex []int
	if nav.Direction == types.Outgoing {
		rel.SetStartNodeID(owner.GetID())
		farIndex = rs.TargetIndex
	} else {
		rel.SetEndNodeID(owner.GetID())
		farIndex = rs.SourceIndex
	}

	var farNode types.Node
	if farIndex != nil {
		rv := reflect.ValueOf(rel)
		for rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		if fv := rv.FieldByIndex(farIndex); fv.Kind() == reflect.Pointer && !fv.IsNil() {
			farNode, _ = fv.Interface().(types.Node)
		}
	}

	var farID string
	switch {
	case farNode != nil:
		farID = farNode.GetID()
		if farID == "" {
			farID = uuid.NewString()
			farNode.SetID(farID)
		}
	case nav.Direction == types.Outgoing && rel.GetEndNodeID() != "":
		farID = rel.GetEndNodeID()
	case nav.Direction == types.Incoming && rel.GetStartNodeID() != "":
		farID = rel.GetStartNodeID()
	default:
		return nil, fmt.Errorf("relationship %s via %s has no far endpoint: %w", id, nav.Name, types.ErrMissingEndpoint)
	}

	if nav.Direction == types.Outgoing {
		rel.SetEndNodeID(farID)
	} else {
		rel.SetStartNodeID(farID)
	}

	// An endpoint referenced only by id must already exist.
	if farNode == nil {
		exists, err := p.nodeExists(ctx, farID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("relationship %s endpoint %s does not exist: %w", id, farID, types.ErrMissingEndpoint)
		}
	}

	props, err := schema.Properties(rel)
	if err != nil {
		return nil, err
	}
	relType := nav.RelType
	if dr, ok := rel.(*types.DynamicRelationship); ok && dr.Type != "" {
		relType = dr.Type
	}
	p.plan.Relationships = append(p.plan.Relationships, driver.RelUpsert{
		ID:      id,
		Type:    relType,
		StartID: rel.GetStartNodeID(),
		EndID:   rel.GetEndNodeID(),
		Props:   props,
	})

	if farNode != nil {
		return []pendingNode{{node: farNode, distance: distance + 1, mode: modeRelated}}, nil
	}
	return nil, nil
}

// planRelationshipRoot plans a relationship given directly to a create or
// update operation, outside any navigation walk.
func (p *planner) planRelationshipRoot(ctx context.Context, rel types.Relationship, mode writeMode) error {
	rs, err := schema.Of(rel)
	if err != nil {
		return err
	}
	if rs.Kind != schema.KindRelationship {
		return fmt.Errorf("%s is not a relationship type: %w", rs.Type.Name(), types.ErrInvalidGraph)
	}
	if err := schema.CheckValueCycles(rel); err != nil {
		return err
	}

	id := rel.GetID()
	if id == "" {
		if mode == modeUpdate {
			return fmt.Errorf("update requires an id: %w", types.ErrNotFound)
		}
		id = uuid.NewString()
		rel.SetID(id)
	}
	switch mode {
	case modeCreate:
		if _, err := p.graph.store.FetchRelationship(ctx, p.tx, id); err == nil {
			return fmt.Errorf("relationship %s already exists: %w", id, types.ErrConflict)
		} else if !isNotFound(err) {
			return err
		}
	case modeUpdate:
		stored, err := p.graph.store.FetchRelationship(ctx, p.tx, id)
		if err != nil {
			return err
		}
		if rel.GetStartNodeID() == "" {
			rel.SetStartNodeID(stored.StartID)
		}
		if rel.GetEndNodeID() == "" {
			rel.SetEndNodeID(stored.EndID)
		}
	}
	p.plannedRels[id] = true

	startID, err := p.resolveEndpoint(ctx, rel, rs.SourceIndex, rel.GetStartNodeID())
	if err != nil {
		return fmt.Errorf("relationship %s start: %w", id, err)
	}
	endID, err := p.resolveEndpoint(ctx, rel, rs.TargetIndex, rel.GetEndNodeID())
	if err != nil {
		return fmt.Errorf("relationship %s end: %w", id, err)
	}
	rel.SetStartNodeID(startID)
	rel.SetEndNodeID(endID)

	props, err := schema.Properties(rel)
	if err != nil {
		return err
	}
	relType, err := schema.RelType(rel)
	if err != nil {
		return err
	}
	p.plan.Relationships = append(p.plan.Relationships, driver.RelUpsert{
		ID:      id,
		Type:    relType,
		StartID: startID,
		EndID:   endID,
		Props:   props,
	})
	return nil
}

// resolveEndpoint settles one relationship endpoint: from the resolved node
// pointer when present, otherwise from the declared id. Missing endpoints
// are created only when the options allow it and an instance is available.
func (p *planner) resolveEndpoint(ctx context.Context, rel types.Relationship, fieldIndex []int, declaredID string) (string, error) {
	var endpoint types.Node
	if fieldIndex != nil {
		rv := reflect.ValueOf(rel)
		for rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		if fv := rv.FieldByIndex(fieldIndex); fv.Kind() == reflect.Pointer && !fv.IsNil() {
			endpoint, _ = fv.Interface().(types.Node)
		}
	}

	id := declaredID
	if endpoint != nil && endpoint.GetID() != "" {
		id = endpoint.GetID()
	}
	if id == "" && endpoint == nil {
		return "", types.ErrMissingEndpoint
	}

	if id != "" {
		if p.plannedNodes[id] {
			return id, nil
		}
		exists, err := p.nodeExists(ctx, id)
		if err != nil {
			return "", err
		}
		if exists {
			return id, nil
		}
	}
	if endpoint == nil || !p.opts.CreateMissingNodes {
		return "", fmt.Errorf("node %s: %w", id, types.ErrMissingEndpoint)
	}
	if err := p.planNode(ctx, endpoint, modeRelated); err != nil {
		return "", err
	}
	return endpoint.GetID(), nil
}

// nodeExists consults the plan first, then the store.
func (p *planner) nodeExists(ctx context.Context, id string) (bool, error) {
	if p.plannedNodes[id] {
		return true, nil
	}
	return p.graph.store.NodeExists(ctx, p.tx, id)
}

// apply sends the accumulated plan to the store.
func (p *planner) apply(ctx context.Context) error {
	if p.plan.Empty() {
		return nil
	}
	p.graph.logger.Debug("applying write plan",
		"nodes", len(p.plan.Nodes), "relationships", len(p.plan.Relationships))
	return p.graph.store.ApplyPlan(ctx, p.tx, p.plan)
}

// entityAt unwraps a slice element into an entity, taking its address when
// the slice holds struct values.
func entityAt(v reflect.Value) types.Entity {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		e, _ := v.Interface().(types.Entity)
		return e
	}
	if v.CanAddr() {
		e, _ := v.Addr().Interface().(types.Entity)
		return e
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
