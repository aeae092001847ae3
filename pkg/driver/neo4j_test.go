package driver

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeValue(t *testing.T) {
	node := dbtype.Node{
		Labels: []string{"Person"},
		Props:  map[string]any{"id": "p1", "name": "Alice"},
	}
	rec := &db.Record{Keys: []string{"n", "other"}, Values: []any{node, "noise"}}

	got, ok := nodeValue(rec, "n")
	require.True(t, ok)
	assert.Equal(t, []string{"Person"}, got.Labels)

	_, ok = nodeValue(rec, "missing")
	assert.False(t, ok)

	_, ok = nodeValue(rec, "other")
	assert.False(t, ok, "non-node values do not coerce")
}

func TestNodeRecordFromDB(t *testing.T) {
	node := dbtype.Node{
		Labels: []string{"Person"},
		Props:  map[string]any{"id": "p1", "name": "Alice", "age": int64(34)},
	}
	rec := nodeRecordFromDB(node)
	assert.Equal(t, "p1", rec.ID)
	assert.Equal(t, []string{"Person"}, rec.Labels)
	assert.Equal(t, "Alice", rec.Props["name"])
	assert.NotContains(t, rec.Props, "id", "the id property lifts into the record")
}

func TestRelRecordFromRow(t *testing.T) {
	rel := dbtype.Relationship{
		Type:  "KNOWS",
		Props: map[string]any{"id": "r1", "since": int64(2019)},
	}
	rec := &db.Record{
		Keys:   []string{"r", "start_id", "end_id"},
		Values: []any{rel, "p1", "p2"},
	}

	out, err := relRecordFromRow(rec)
	require.NoError(t, err)
	assert.Equal(t, "r1", out.ID)
	assert.Equal(t, "KNOWS", out.Type)
	assert.Equal(t, "p1", out.StartID)
	assert.Equal(t, "p2", out.EndID)
	assert.NotContains(t, out.Props, "id")

	_, err = relRecordFromRow(&db.Record{Keys: []string{"x"}, Values: []any{1}})
	assert.Error(t, err)
}
