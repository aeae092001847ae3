package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// Key layout. The 0x00 separator cannot occur in ids.
const (
	nodePrefix     = "n\x00"
	relPrefix      = "r\x00"
	incidentPrefix = "i\x00"
)

func nodeKey(id string) []byte { return []byte(nodePrefix + id) }
func relKey(id string) []byte  { return []byte(relPrefix + id) }
func incidentKey(nodeID, relID string) []byte {
	return []byte(incidentPrefix + nodeID + "\x00" + relID)
}
func incidentScanPrefix(nodeID string) []byte {
	return []byte(incidentPrefix + nodeID + "\x00")
}

// EmbeddedStore is a Badger-backed GraphStore. It backs unit tests and small
// single-process deployments; pass an empty path for a fully in-memory store.
type EmbeddedStore struct {
	db *badger.DB
}

// NewEmbeddedStore opens (or creates) an embedded store at path. An empty
// path opens an in-memory store that vanishes on Close.
func NewEmbeddedStore(path string) (*EmbeddedStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedded store: %w", err)
	}
	return &EmbeddedStore{db: db}, nil
}

// embeddedTx wraps a long-lived Badger transaction as the store's unit of
// work: reads through the handle see its pending writes, outside readers do
// not until Commit.
type embeddedTx struct {
	txn *badger.Txn
}

func (t *embeddedTx) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("commit unit of work: %w", types.ErrConflict)
		}
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (t *embeddedTx) Rollback(ctx context.Context) error {
	t.txn.Discard()
	return nil
}

// Begin opens a read-write unit of work.
func (s *EmbeddedStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &embeddedTx{txn: s.db.NewTransaction(true)}, nil
}

// Close closes the underlying Badger database.
func (s *EmbeddedStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// update runs fn inside the handle's transaction, or one-shot when tx is nil.
func (s *EmbeddedStore) update(ctx context.Context, tx Tx, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx != nil {
		etx, ok := tx.(*embeddedTx)
		if !ok {
			return fmt.Errorf("foreign transaction handle %T", tx)
		}
		return fn(etx.txn)
	}
	return s.db.Update(fn)
}

// view is like update for read-only work.
func (s *EmbeddedStore) view(ctx context.Context, tx Tx, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx != nil {
		etx, ok := tx.(*embeddedTx)
		if !ok {
			return fmt.Errorf("foreign transaction handle %T", tx)
		}
		return fn(etx.txn)
	}
	return s.db.View(fn)
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.ErrNotFound
		}
		return err
	}
	return item.Value(func(data []byte) error {
		return json.Unmarshal(data, v)
	})
}

// UpsertNode creates or updates a node.
func (s *EmbeddedStore) UpsertNode(ctx context.Context, tx Tx, labels []string, id string, props map[string]any) error {
	return s.update(ctx, tx, func(txn *badger.Txn) error {
		return upsertNodeTxn(txn, labels, id, props)
	})
}

func upsertNodeTxn(txn *badger.Txn, labels []string, id string, props map[string]any) error {
	rec := NodeRecord{ID: id, Labels: labels, Props: props}
	return putJSON(txn, nodeKey(id), &rec)
}

// UpsertRelationship creates or updates a relationship and maintains the
// incident index on both endpoints.
func (s *EmbeddedStore) UpsertRelationship(ctx context.Context, tx Tx, relType, startID, endID, id string, props map[string]any) error {
	return s.update(ctx, tx, func(txn *badger.Txn) error {
		return upsertRelTxn(txn, relType, startID, endID, id, props)
	})
}

func upsertRelTxn(txn *badger.Txn, relType, startID, endID, id string, props map[string]any) error {
	var prev RelRecord
	err := getJSON(txn, relKey(id), &prev)
	switch {
	case err == nil:
		if prev.StartID != startID || prev.EndID != endID {
			if err := txn.Delete(incidentKey(prev.StartID, id)); err != nil {
				return err
			}
			if err := txn.Delete(incidentKey(prev.EndID, id)); err != nil {
				return err
			}
		}
	case errors.Is(err, types.ErrNotFound):
	default:
		return err
	}

	rec := RelRecord{ID: id, Type: relType, StartID: startID, EndID: endID, Props: props}
	if err := putJSON(txn, relKey(id), &rec); err != nil {
		return err
	}
	if err := txn.Set(incidentKey(startID, id), nil); err != nil {
		return err
	}
	return txn.Set(incidentKey(endID, id), nil)
}

// FetchNode retrieves one node by id.
func (s *EmbeddedStore) FetchNode(ctx context.Context, tx Tx, id string) (*NodeRecord, error) {
	var rec NodeRecord
	err := s.view(ctx, tx, func(txn *badger.Txn) error {
		return getJSON(txn, nodeKey(id), &rec)
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("node %s: %w", id, types.ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// FetchNodes retrieves the nodes whose ids exist, omitting missing ids.
func (s *EmbeddedStore) FetchNodes(ctx context.Context, tx Tx, ids []string) ([]*NodeRecord, error) {
	out := make([]*NodeRecord, 0, len(ids))
	err := s.view(ctx, tx, func(txn *badger.Txn) error {
		for _, id := range ids {
			var rec NodeRecord
			if err := getJSON(txn, nodeKey(id), &rec); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRelationship retrieves one relationship by id.
func (s *EmbeddedStore) FetchRelationship(ctx context.Context, tx Tx, id string) (*RelRecord, error) {
	var rec RelRecord
	err := s.view(ctx, tx, func(txn *badger.Txn) error {
		return getJSON(txn, relKey(id), &rec)
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// FetchIncident retrieves the relationships incident to the given nodes,
// filtered by type, sorted by relationship id for deterministic ordering.
func (s *EmbeddedStore) FetchIncident(ctx context.Context, tx Tx, nodeIDs []string, relTypes []string) ([]*RelRecord, error) {
	allowed := map[string]bool{}
	for _, t := range relTypes {
		allowed[t] = true
	}
	seen := map[string]bool{}
	var out []*RelRecord
	err := s.view(ctx, tx, func(txn *badger.Txn) error {
		for _, nodeID := range nodeIDs {
			relIDs, err := incidentRelIDs(txn, nodeID)
			if err != nil {
				return err
			}
			for _, relID := range relIDs {
				if seen[relID] {
					continue
				}
				seen[relID] = true
				var rec RelRecord
				if err := getJSON(txn, relKey(relID), &rec); err != nil {
					return err
				}
				if len(allowed) > 0 && !allowed[rec.Type] {
					continue
				}
				out = append(out, &rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func incidentRelIDs(txn *badger.Txn, nodeID string) ([]string, error) {
	prefix := incidentScanPrefix(nodeID)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		ids = append(ids, string(key[len(prefix):]))
	}
	return ids, nil
}

// NodeExists reports whether a node id exists.
func (s *EmbeddedStore) NodeExists(ctx context.Context, tx Tx, id string) (bool, error) {
	exists := false
	err := s.view(ctx, tx, func(txn *badger.Txn) error {
		_, err := txn.Get(nodeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// DeleteNode removes a node. With cascade, incident relationships are
// removed one hop first; without, the delete fails when any exist.
func (s *EmbeddedStore) DeleteNode(ctx context.Context, tx Tx, id string, cascade bool) error {
	return s.update(ctx, tx, func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("node %s: %w", id, types.ErrNotFound)
			}
			return err
		}
		relIDs, err := incidentRelIDs(txn, id)
		if err != nil {
			return err
		}
		if len(relIDs) > 0 && !cascade {
			return fmt.Errorf("node %s has %d incident relationships: %w", id, len(relIDs), types.ErrConflict)
		}
		for _, relID := range relIDs {
			if err := deleteRelTxn(txn, relID); err != nil {
				return err
			}
		}
		return txn.Delete(nodeKey(id))
	})
}

// DeleteRelationship removes a relationship by id.
func (s *EmbeddedStore) DeleteRelationship(ctx context.Context, tx Tx, id string) error {
	return s.update(ctx, tx, func(txn *badger.Txn) error {
		return deleteRelTxn(txn, id)
	})
}

func deleteRelTxn(txn *badger.Txn, id string) error {
	var rec RelRecord
	if err := getJSON(txn, relKey(id), &rec); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
		}
		return err
	}
	if err := txn.Delete(incidentKey(rec.StartID, id)); err != nil {
		return err
	}
	if err := txn.Delete(incidentKey(rec.EndID, id)); err != nil {
		return err
	}
	return txn.Delete(relKey(id))
}

// ApplyPlan applies a write plan atomically: inside the handle when one is
// supplied, otherwise in a single store transaction.
func (s *EmbeddedStore) ApplyPlan(ctx context.Context, tx Tx, plan *WritePlan) error {
	if plan.Empty() {
		return nil
	}
	return s.update(ctx, tx, func(txn *badger.Txn) error {
		for _, n := range plan.Nodes {
			if err := upsertNodeTxn(txn, n.Labels, n.ID, n.Props); err != nil {
				return err
			}
		}
		for _, r := range plan.Relationships {
			if err := upsertRelTxn(txn, r.Type, r.StartID, r.EndID, r.ID, r.Props); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExecuteQuery evaluates the deferred query description directly against the
// store.
func (s *EmbeddedStore) ExecuteQuery(ctx context.Context, tx Tx, spec *query.Spec) ([]query.Record, error) {
	var records []query.Record
	err := s.view(ctx, tx, func(txn *badger.Txn) error {
		var err error
		records, err = evalSpec(txn, spec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func scanNodes(txn *badger.Txn, label string) ([]*NodeRecord, error) {
	prefix := []byte(nodePrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*NodeRecord
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec NodeRecord
		err := it.Item().Value(func(data []byte) error {
			return json.Unmarshal(data, &rec)
		})
		if err != nil {
			return nil, err
		}
		if label != "" && !hasLabel(rec.Labels, label) {
			continue
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func scanRels(txn *badger.Txn, relType string) ([]*RelRecord, error) {
	prefix := []byte(relPrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*RelRecord
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec RelRecord
		err := it.Item().Value(func(data []byte) error {
			return json.Unmarshal(data, &rec)
		})
		if err != nil {
			return nil, err
		}
		if relType != "" && rec.Type != relType {
			continue
		}
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
