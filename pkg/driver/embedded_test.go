package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

func newTestStore(t *testing.T) *EmbeddedStore {
	t.Helper()
	store, err := NewEmbeddedStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func seedPerson(t *testing.T, s *EmbeddedStore, id, name string, age int) {
	t.Helper()
	err := s.UpsertNode(context.Background(), nil, []string{"Person"}, id, map[string]any{
		"name": name, "age": age,
	})
	require.NoError(t, err)
}

func TestEmbeddedNodeCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedPerson(t, store, "p1", "Alice", 34)

	t.Run("fetch", func(t *testing.T) {
		rec, err := store.FetchNode(ctx, nil, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", rec.ID)
		assert.Equal(t, []string{"Person"}, rec.Labels)
		assert.Equal(t, "Alice", rec.Props["name"])
	})

	t.Run("fetch missing", func(t *testing.T) {
		_, err := store.FetchNode(ctx, nil, "nope")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := store.NodeExists(ctx, nil, "p1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = store.NodeExists(ctx, nil, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("fetch many omits missing", func(t *testing.T) {
		seedPerson(t, store, "p2", "Bob", 41)
		recs, err := store.FetchNodes(ctx, nil, []string{"p1", "nope", "p2"})
		require.NoError(t, err)
		require.Len(t, recs, 2)
	})

	t.Run("delete", func(t *testing.T) {
		seedPerson(t, store, "p3", "Carol", 28)
		require.NoError(t, store.DeleteNode(ctx, nil, "p3", false))
		_, err := store.FetchNode(ctx, nil, "p3")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.ErrorIs(t, store.DeleteNode(ctx, nil, "nope", false), types.ErrNotFound)
	})
}

func TestEmbeddedRelationships(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedPerson(t, store, "a", "Alice", 34)
	seedPerson(t, store, "b", "Bob", 41)
	seedPerson(t, store, "c", "Carol", 28)

	require.NoError(t, store.UpsertRelationship(ctx, nil, "KNOWS", "a", "b", "r1", map[string]any{"since": 2019}))
	require.NoError(t, store.UpsertRelationship(ctx, nil, "KNOWS", "c", "a", "r2", nil))
	require.NoError(t, store.UpsertRelationship(ctx, nil, "OWNS", "a", "c", "r3", nil))

	t.Run("fetch", func(t *testing.T) {
		rec, err := store.FetchRelationship(ctx, nil, "r1")
		require.NoError(t, err)
		assert.Equal(t, "KNOWS", rec.Type)
		assert.Equal(t, "a", rec.StartID)
		assert.Equal(t, "b", rec.EndID)
	})

	t.Run("incident covers both directions", func(t *testing.T) {
		recs, err := store.FetchIncident(ctx, nil, []string{"a"}, nil)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "r1", recs[0].ID)
		assert.Equal(t, "r2", recs[1].ID)
		assert.Equal(t, "r3", recs[2].ID)
	})

	t.Run("incident filters by type", func(t *testing.T) {
		recs, err := store.FetchIncident(ctx, nil, []string{"a"}, []string{"KNOWS"})
		require.NoError(t, err)
		require.Len(t, recs, 2)
	})

	t.Run("incident dedupes shared relationships", func(t *testing.T) {
		recs, err := store.FetchIncident(ctx, nil, []string{"a", "b"}, []string{"KNOWS"})
		require.NoError(t, err)
		require.Len(t, recs, 2)
	})

	t.Run("endpoint change reindexes", func(t *testing.T) {
		require.NoError(t, store.UpsertRelationship(ctx, nil, "KNOWS", "b", "c", "r1", nil))
		recs, err := store.FetchIncident(ctx, nil, []string{"a"}, []string{"KNOWS"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "r2", recs[0].ID)
	})

	t.Run("delete without cascade is rejected", func(t *testing.T) {
		err := store.DeleteNode(ctx, nil, "a", false)
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("delete with cascade removes incident relationships", func(t *testing.T) {
		require.NoError(t, store.DeleteNode(ctx, nil, "a", true))
		_, err := store.FetchRelationship(ctx, nil, "r2")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = store.FetchRelationship(ctx, nil, "r3")
		assert.ErrorIs(t, err, types.ErrNotFound)
		// r1 was rewired to b->c and survives
		_, err = store.FetchRelationship(ctx, nil, "r1")
		assert.NoError(t, err)
	})
}

func TestEmbeddedTransactionIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("writes invisible before commit", func(t *testing.T) {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, store.UpsertNode(ctx, tx, []string{"Person"}, "iso1", map[string]any{"name": "Alice"}))

		// visible through the handle
		rec, err := store.FetchNode(ctx, tx, "iso1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", rec.Props["name"])

		// invisible outside it
		_, err = store.FetchNode(ctx, nil, "iso1")
		assert.ErrorIs(t, err, types.ErrNotFound)

		require.NoError(t, tx.Commit(ctx))
		_, err = store.FetchNode(ctx, nil, "iso1")
		assert.NoError(t, err)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, store.UpsertNode(ctx, tx, []string{"Person"}, "iso2", nil))
		require.NoError(t, tx.Rollback(ctx))
		_, err = store.FetchNode(ctx, nil, "iso2")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestEmbeddedApplyPlan(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	plan := &WritePlan{
		Nodes: []NodeUpsert{
			{ID: "a", Labels: []string{"Person"}, Props: map[string]any{"name": "Alice"}},
			{ID: "b", Labels: []string{"Person"}, Props: map[string]any{"name": "Bob"}},
		},
		Relationships: []RelUpsert{
			{ID: "r1", Type: "KNOWS", StartID: "a", EndID: "b"},
		},
	}
	require.NoError(t, store.ApplyPlan(ctx, nil, plan))

	recs, err := store.FetchIncident(ctx, nil, []string{"a"}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].EndID)
}

func TestEmbeddedExecuteQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedPerson(t, store, "a", "Alice", 34)
	seedPerson(t, store, "b", "Bob", 41)
	seedPerson(t, store, "c", "Carol", 28)
	require.NoError(t, store.UpsertNode(ctx, nil, []string{"City"}, "s", map[string]any{"name": "Springfield"}))
	require.NoError(t, store.UpsertRelationship(ctx, nil, "LIVES_IN", "a", "s", "r1", nil))
	require.NoError(t, store.UpsertRelationship(ctx, nil, "LIVES_IN", "b", "s", "r2", nil))
	require.NoError(t, store.UpsertRelationship(ctx, nil, "KNOWS", "a", "b", "r3", nil))

	t.Run("label scan with predicate and order", func(t *testing.T) {
		spec := &query.Spec{
			Kind:  query.KindNodes,
			Label: "Person",
			Where: []query.Cond{query.Gt("age", 30)},
			Order: []query.OrderKey{{Field: "age", Desc: true}},
		}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "Bob", recs[0]["name"])
		assert.Equal(t, "Alice", recs[1]["name"])
	})

	t.Run("skip and limit", func(t *testing.T) {
		spec := &query.Spec{
			Kind:       query.KindNodes,
			Label:      "Person",
			Order:      []query.OrderKey{{Field: "name"}},
			SkipCount:  1,
			LimitCount: 1,
		}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Bob", recs[0]["name"])
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		spec := &query.Spec{Kind: query.KindNodes, Search: []string{"ALIC"}}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "a", recs[0]["id"])
	})

	t.Run("traversal hop", func(t *testing.T) {
		spec := &query.Spec{
			Kind:  query.KindNodes,
			Label: "Person",
			Where: []query.Cond{query.Eq("name", "Alice")},
			Traversals: []query.Step{
				{RelType: "LIVES_IN", Direction: types.Outgoing, TargetLabel: "City"},
			},
		}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Springfield", recs[0]["name"])
	})

	t.Run("incoming traversal with distinct", func(t *testing.T) {
		spec := &query.Spec{
			Kind:  query.KindNodes,
			Label: "City",
			Traversals: []query.Step{
				{RelType: "LIVES_IN", Direction: types.Incoming, TargetLabel: "Person"},
			},
			Distinct: true,
			Order:    []query.OrderKey{{Field: "name"}},
		}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "Alice", recs[0]["name"])
	})

	t.Run("segments", func(t *testing.T) {
		spec := &query.Spec{
			Kind:  query.KindNodes,
			Label: "Person",
			Where: []query.Cond{query.Eq("name", "Alice")},
			Traversals: []query.Step{
				{RelType: "KNOWS", Direction: types.Outgoing},
			},
			Segments: true,
		}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		src, ok := recs[0]["source"].(query.Record)
		require.True(t, ok)
		assert.Equal(t, "a", src["id"])
		rel := recs[0]["rel"].(query.Record)
		assert.Equal(t, "KNOWS", rel["type"])
	})

	t.Run("projection", func(t *testing.T) {
		spec := &query.Spec{
			Kind:       query.KindNodes,
			Label:      "Person",
			Projection: []string{"name"},
			Order:      []query.OrderKey{{Field: "name"}},
		}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, query.Record{"name": "Alice"}, recs[0])
	})

	t.Run("relationship scan", func(t *testing.T) {
		spec := &query.Spec{Kind: query.KindRelationships, Label: "LIVES_IN"}
		recs, err := store.ExecuteQuery(ctx, nil, spec)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "s", recs[0]["end_node_id"])
	})
}
