package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// Neo4jStore implements GraphStore against a Neo4j database. Entities are
// keyed by an `id` property; every statement is parameterized.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore connects to a Neo4j instance.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: client, database: database}, nil
}

// neo4jTx owns an explicit transaction and the session it runs on.
type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	defer t.session.Close(ctx)
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (t *neo4jTx) Rollback(ctx context.Context) error {
	defer t.session.Close(ctx)
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}

// Begin opens an explicit transaction on a dedicated session.
func (s *Neo4jStore) Begin(ctx context.Context) (Tx, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &neo4jTx{session: session, tx: tx}, nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// run executes one statement inside the handle's transaction, or in a
// short-lived session when tx is nil, and collects all records.
func (s *Neo4jStore) run(ctx context.Context, tx Tx, cypher string, params map[string]any) ([]*db.Record, error) {
	if tx != nil {
		ntx, ok := tx.(*neo4jTx)
		if !ok {
			return nil, fmt.Errorf("foreign transaction handle %T", tx)
		}
		res, err := ntx.tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, func(work neo4j.ManagedTransaction) (any, error) {
		res, err := work.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records, _ := result.([]*db.Record)
	return records, nil
}

// UpsertNode creates or updates a node with the given labels.
func (s *Neo4jStore) UpsertNode(ctx context.Context, tx Tx, labels []string, id string, props map[string]any) error {
	cypher := fmt.Sprintf(`
		MERGE (n {id: $id})
		SET n%s
		SET n += $props
	`, labelExpr(labels))
	_, err := s.run(ctx, tx, cypher, map[string]any{"id": id, "props": props})
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", id, err)
	}
	return nil
}

// UpsertRelationship creates or updates a relationship between two existing
// nodes.
func (s *Neo4jStore) UpsertRelationship(ctx context.Context, tx Tx, relType, startID, endID, id string, props map[string]any) error {
	cypher := fmt.Sprintf(`
		MATCH (a {id: $start}), (b {id: $end})
		MERGE (a)-[r:%s {id: $id}]->(b)
		SET r += $props
		RETURN r.id
	`, escapeLabel(relType))
	records, err := s.run(ctx, tx, cypher, map[string]any{
		"start": startID, "end": endID, "id": id, "props": props,
	})
	if err != nil {
		return fmt.Errorf("upsert relationship %s: %w", id, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("relationship %s endpoints %s, %s: %w", id, startID, endID, types.ErrNotFound)
	}
	return nil
}

// FetchNode retrieves one node by id.
func (s *Neo4jStore) FetchNode(ctx context.Context, tx Tx, id string) (*NodeRecord, error) {
	records, err := s.run(ctx, tx, `MATCH (n {id: $id}) RETURN n LIMIT 1`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("fetch node %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	node, ok := nodeValue(records[0], "n")
	if !ok {
		return nil, fmt.Errorf("node %s: unexpected record shape", id)
	}
	return nodeRecordFromDB(node), nil
}

// FetchNodes retrieves the nodes whose ids exist, omitting missing ids.
func (s *Neo4jStore) FetchNodes(ctx context.Context, tx Tx, ids []string) ([]*NodeRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	records, err := s.run(ctx, tx, `MATCH (n) WHERE n.id IN $ids RETURN n`, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("fetch nodes: %w", err)
	}
	out := make([]*NodeRecord, 0, len(records))
	for _, rec := range records {
		if node, ok := nodeValue(rec, "n"); ok {
			out = append(out, nodeRecordFromDB(node))
		}
	}
	return out, nil
}

// FetchRelationship retrieves one relationship by id, with both endpoint ids
// resolved.
func (s *Neo4jStore) FetchRelationship(ctx context.Context, tx Tx, id string) (*RelRecord, error) {
	cypher := `
		MATCH (a)-[r {id: $id}]->(b)
		RETURN r, a.id AS start_id, b.id AS end_id
		LIMIT 1
	`
	records, err := s.run(ctx, tx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("fetch relationship %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	return relRecordFromRow(records[0])
}

// FetchIncident retrieves relationships incident to the given nodes,
// filtered by type, ordered by relationship id.
func (s *Neo4jStore) FetchIncident(ctx context.Context, tx Tx, nodeIDs []string, relTypes []string) ([]*RelRecord, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	cypher := `
		MATCH (n)-[r]-(m)
		WHERE n.id IN $ids AND ($types = [] OR type(r) IN $types)
		MATCH (a)-[r]->(b)
		RETURN DISTINCT r, a.id AS start_id, b.id AS end_id
		ORDER BY r.id
	`
	if relTypes == nil {
		relTypes = []string{}
	}
	records, err := s.run(ctx, tx, cypher, map[string]any{"ids": nodeIDs, "types": relTypes})
	if err != nil {
		return nil, fmt.Errorf("fetch incident relationships: %w", err)
	}
	out := make([]*RelRecord, 0, len(records))
	for _, rec := range records {
		rel, err := relRecordFromRow(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

// NodeExists reports whether a node id exists.
func (s *Neo4jStore) NodeExists(ctx context.Context, tx Tx, id string) (bool, error) {
	records, err := s.run(ctx, tx, `MATCH (n {id: $id}) RETURN n.id LIMIT 1`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("node exists %s: %w", id, err)
	}
	return len(records) > 0, nil
}

// DeleteNode removes a node, with or without cascading to its incident
// relationships.
func (s *Neo4jStore) DeleteNode(ctx context.Context, tx Tx, id string, cascade bool) error {
	cypher := `
		MATCH (n {id: $id})
		OPTIONAL MATCH (n)-[r]-()
		WITH n, count(r) AS degree
		RETURN degree
	`
	records, err := s.run(ctx, tx, cypher, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("node %s: %w", id, types.ErrNotFound)
	}
	degree, _ := records[0].Get("degree")
	if n, ok := degree.(int64); ok && n > 0 && !cascade {
		return fmt.Errorf("node %s has %d incident relationships: %w", id, n, types.ErrConflict)
	}
	_, err = s.run(ctx, tx, `MATCH (n {id: $id}) DETACH DELETE n`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

// DeleteRelationship removes a relationship by id.
func (s *Neo4jStore) DeleteRelationship(ctx context.Context, tx Tx, id string) error {
	cypher := `
		MATCH ()-[r {id: $id}]->()
		DELETE r
		RETURN count(r) AS deleted
	`
	records, err := s.run(ctx, tx, cypher, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete relationship %s: %w", id, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	if deleted, _ := records[0].Get("deleted"); deleted == int64(0) {
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// ApplyPlan applies a write plan: inside the handle when one is supplied,
// otherwise in one managed write transaction.
func (s *Neo4jStore) ApplyPlan(ctx context.Context, tx Tx, plan *WritePlan) error {
	if plan.Empty() {
		return nil
	}
	if tx != nil {
		return s.applyPlanOps(ctx, tx, plan)
	}
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(work neo4j.ManagedTransaction) (any, error) {
		return nil, s.applyPlanWork(ctx, work, plan)
	})
	return err
}

func (s *Neo4jStore) applyPlanOps(ctx context.Context, tx Tx, plan *WritePlan) error {
	for _, n := range plan.Nodes {
		if err := s.UpsertNode(ctx, tx, n.Labels, n.ID, n.Props); err != nil {
			return err
		}
	}
	for _, r := range plan.Relationships {
		if err := s.UpsertRelationship(ctx, tx, r.Type, r.StartID, r.EndID, r.ID, r.Props); err != nil {
			return err
		}
	}
	return nil
}

func (s *Neo4jStore) applyPlanWork(ctx context.Context, work neo4j.ManagedTransaction, plan *WritePlan) error {
	for _, n := range plan.Nodes {
		cypher := fmt.Sprintf("MERGE (n {id: $id}) SET n%s SET n += $props", labelExpr(n.Labels))
		if _, err := work.Run(ctx, cypher, map[string]any{"id": n.ID, "props": n.Props}); err != nil {
			return fmt.Errorf("upsert node %s: %w", n.ID, err)
		}
	}
	for _, r := range plan.Relationships {
		cypher := fmt.Sprintf(`
			MATCH (a {id: $start}), (b {id: $end})
			MERGE (a)-[rel:%s {id: $id}]->(b)
			SET rel += $props
		`, escapeLabel(r.Type))
		params := map[string]any{"start": r.StartID, "end": r.EndID, "id": r.ID, "props": r.Props}
		if _, err := work.Run(ctx, cypher, params); err != nil {
			return fmt.Errorf("upsert relationship %s: %w", r.ID, err)
		}
	}
	return nil
}

// ExecuteQuery lowers the deferred description to Cypher and executes it.
func (s *Neo4jStore) ExecuteQuery(ctx context.Context, tx Tx, spec *query.Spec) ([]query.Record, error) {
	cypher, params, err := CompileCypher(spec)
	if err != nil {
		return nil, err
	}
	records, err := s.run(ctx, tx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	out := make([]query.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, recordFromRow(rec))
	}
	return out, nil
}

// recordFromRow converts one result row into a store-agnostic query record.
func recordFromRow(rec *db.Record) query.Record {
	out := query.Record{}
	for i, key := range rec.Keys {
		value := rec.Values[i]
		switch v := value.(type) {
		case dbtype.Node:
			merged := queryRecordFromNode(v)
			if key == "source" || key == "rel" || key == "target" {
				out[key] = merged
			} else {
				for k, val := range merged {
					out[k] = val
				}
			}
		case dbtype.Relationship:
			merged := queryRecordFromRel(v)
			if key == "rel" || key == "source" || key == "target" {
				out[key] = merged
			} else {
				for k, val := range merged {
					out[k] = val
				}
			}
		default:
			out[key] = value
		}
	}
	return out
}

func queryRecordFromNode(node dbtype.Node) query.Record {
	rec := query.Record{}
	for k, v := range node.Props {
		rec[k] = v
	}
	if id, ok := node.Props["id"].(string); ok {
		rec["id"] = id
	}
	rec["labels"] = node.Labels
	return rec
}

func queryRecordFromRel(rel dbtype.Relationship) query.Record {
	rec := query.Record{}
	for k, v := range rel.Props {
		rec[k] = v
	}
	rec["type"] = rel.Type
	return rec
}

// nodeValue extracts a dbtype.Node from a record by key; ok is false when
// the key is absent or the value has another type.
func nodeValue(rec *db.Record, key string) (dbtype.Node, bool) {
	v, found := rec.Get(key)
	if !found {
		return dbtype.Node{}, false
	}
	node, ok := v.(dbtype.Node)
	return node, ok
}

func nodeRecordFromDB(node dbtype.Node) *NodeRecord {
	props := make(map[string]any, len(node.Props))
	for k, v := range node.Props {
		props[k] = v
	}
	id, _ := props["id"].(string)
	delete(props, "id")
	return &NodeRecord{ID: id, Labels: node.Labels, Props: props}
}

func relRecordFromRow(rec *db.Record) (*RelRecord, error) {
	relValue, found := rec.Get("r")
	if !found {
		return nil, fmt.Errorf("relationship record missing r")
	}
	rel, ok := relValue.(dbtype.Relationship)
	if !ok {
		return nil, fmt.Errorf("expected dbtype.Relationship for r, got %T", relValue)
	}
	props := make(map[string]any, len(rel.Props))
	for k, v := range rel.Props {
		props[k] = v
	}
	id, _ := props["id"].(string)
	delete(props, "id")
	out := &RelRecord{ID: id, Type: rel.Type, Props: props}
	if v, found := rec.Get("start_id"); found {
		out.StartID, _ = v.(string)
	}
	if v, found := rec.Get("end_id"); found {
		out.EndID, _ = v.(string)
	}
	return out, nil
}

// labelExpr renders a SET-friendly label expression (":`A`:`B`"), empty when
// no labels are declared.
func labelExpr(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = escapeLabel(l)
	}
	return ":" + strings.Join(parts, ":")
}
