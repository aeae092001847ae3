package graphmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/graphmodel"
	"github.com/soundprediction/graphmodel/pkg/driver"
	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

type Address struct {
	Street string
	City   string
}

type Knows struct {
	types.RelationshipBase `graph:"label=KNOWS"`
	Since                  int
	Source                 *Person
	Target                 *Person
}

type Owns struct {
	types.RelationshipBase `graph:"label=OWNS"`
	Source                 *Person
	Target                 *Pet
}

type Person struct {
	types.NodeBase `graph:"label=Person"`
	Name           string
	Age            int
	Home           Address
	Knows          []*Knows `graph:"rel=KNOWS"`
	Owns           []*Owns  `graph:"rel=OWNS"`
}

type Pet struct {
	types.NodeBase `graph:"label=Pet"`
	Name           string
}

func newTestGraph(t *testing.T) *graphmodel.Graph {
	t.Helper()
	store, err := driver.NewEmbeddedStore("")
	require.NoError(t, err)
	g, err := graphmodel.New(store, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close(context.Background()) })
	return g
}

func TestNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	alice := &Person{
		Name: "Alice",
		Age:  34,
		Home: Address{Street: "1 Main St", City: "Springfield"},
	}
	require.NoError(t, g.CreateNode(ctx, alice))
	assert.NotEmpty(t, alice.ID, "create assigns an id to the instance")

	loaded, err := graphmodel.GetNode[Person](ctx, g, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, loaded.ID)
	assert.Equal(t, "Alice", loaded.Name)
	assert.Equal(t, 34, loaded.Age)
	assert.Equal(t, alice.Home, loaded.Home, "value subtrees round-trip")
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	alice := &Person{Name: "Alice"}
	require.NoError(t, g.CreateNode(ctx, alice))

	dup := &Person{Name: "Imposter"}
	dup.ID = alice.ID
	assert.ErrorIs(t, g.CreateNode(ctx, dup), graphmodel.ErrConflict)
}

func TestUpdateNode(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	alice := &Person{Name: "Alice", Age: 34}
	require.NoError(t, g.CreateNode(ctx, alice))

	alice.Age = 35
	require.NoError(t, g.UpdateNode(ctx, alice))
	loaded, err := graphmodel.GetNode[Person](ctx, g, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, loaded.Age)

	ghost := &Person{Name: "Ghost"}
	ghost.ID = "no-such-id"
	assert.ErrorIs(t, g.UpdateNode(ctx, ghost), graphmodel.ErrNotFound)
}

func TestGetMissingNode(t *testing.T) {
	g := newTestGraph(t)
	_, err := graphmodel.GetNode[Person](context.Background(), g, "nope")
	assert.ErrorIs(t, err, graphmodel.ErrNotFound)
}

func TestEndpointPolicy(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	t.Run("missing endpoint rejected by default", func(t *testing.T) {
		alice := &Person{Name: "Alice", Knows: []*Knows{{Target: &Person{Name: "Bob"}}}}
		err := g.CreateNode(ctx, alice, types.Options().WithDepth(1))
		assert.ErrorIs(t, err, graphmodel.ErrMissingEndpoint)
	})

	t.Run("created when options allow", func(t *testing.T) {
		bob := &Person{Name: "Bob"}
		alice := &Person{Name: "Alice", Knows: []*Knows{{Since: 2019, Target: bob}}}
		opts := types.Options().WithDepth(1).WithCreateMissingNodes()
		require.NoError(t, g.CreateNode(ctx, alice, opts))
		assert.NotEmpty(t, bob.ID)

		loaded, err := graphmodel.GetNode[Person](ctx, g, alice.ID, types.Options().WithDepth(1))
		require.NoError(t, err)
		require.Len(t, loaded.Knows, 1)
		rel := loaded.Knows[0]
		assert.Equal(t, 2019, rel.Since)
		require.NotNil(t, rel.Target)
		assert.Equal(t, "Bob", rel.Target.Name)
		assert.Same(t, loaded, rel.Source, "near endpoint resolves to the root instance")
	})
}

// buildChain persists Alice -> Bob -> Carol and returns Alice's id.
func buildChain(t *testing.T, g *graphmodel.Graph) string {
	t.Helper()
	carol := &Person{Name: "Carol"}
	bob := &Person{Name: "Bob", Knows: []*Knows{{Target: carol}}}
	alice := &Person{Name: "Alice", Knows: []*Knows{{Target: bob}}}
	opts := types.Options().WithFullGraph().WithCreateMissingNodes()
	require.NoError(t, g.CreateNode(context.Background(), alice, opts))
	return alice.ID
}

func TestTraversalDepth(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	aliceID := buildChain(t, g)

	t.Run("depth zero loads the entity alone", func(t *testing.T) {
		alice, err := graphmodel.GetNode[Person](ctx, g, aliceID, types.Options().WithDepth(0))
		require.NoError(t, err)
		assert.Empty(t, alice.Knows)
	})

	t.Run("depth one stops after the first hop", func(t *testing.T) {
		alice, err := graphmodel.GetNode[Person](ctx, g, aliceID, types.Options().WithDepth(1))
		require.NoError(t, err)
		require.Len(t, alice.Knows, 1)
		bob := alice.Knows[0].Target
		require.NotNil(t, bob)
		assert.Equal(t, "Bob", bob.Name)
		assert.Empty(t, bob.Knows, "second hop is beyond the depth")
	})

	t.Run("depth two reaches the second hop", func(t *testing.T) {
		alice, err := graphmodel.GetNode[Person](ctx, g, aliceID, types.Options().WithDepth(2))
		require.NoError(t, err)
		bob := alice.Knows[0].Target
		require.Len(t, bob.Knows, 1)
		require.NotNil(t, bob.Knows[0].Target)
		assert.Equal(t, "Carol", bob.Knows[0].Target.Name)
	})

	t.Run("full graph reaches everything", func(t *testing.T) {
		alice, err := graphmodel.GetNode[Person](ctx, g, aliceID, types.Options().WithFullGraph())
		require.NoError(t, err)
		assert.Equal(t, "Carol", alice.Knows[0].Target.Knows[0].Target.Name)
	})
}

func TestBatchRetrieval(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	carol := &Person{Name: "Carol"}
	bob := &Person{Name: "Bob", Knows: []*Knows{{Since: 2021, Target: carol}}}
	alice := &Person{Name: "Alice", Knows: []*Knows{{Since: 2019, Target: bob}}}
	opts := types.Options().WithFullGraph().WithCreateMissingNodes()
	require.NoError(t, g.CreateNode(ctx, alice, opts))

	t.Run("each root gets its own depth budget", func(t *testing.T) {
		people, err := graphmodel.GetNodes[Person](ctx, g, []string{alice.ID, bob.ID}, types.Options().WithDepth(1))
		require.NoError(t, err)
		require.Len(t, people, 2)

		require.Len(t, people[0].Knows, 1)
		bobViaAlice := people[0].Knows[0].Target
		require.NotNil(t, bobViaAlice)
		assert.Empty(t, bobViaAlice.Knows, "second hop is beyond the first root's depth")

		require.Len(t, people[1].Knows, 1)
		require.NotNil(t, people[1].Knows[0].Target)
		assert.Equal(t, "Carol", people[1].Knows[0].Target.Name)
		assert.NotSame(t, people[1], bobViaAlice, "roots hydrate into independent instances")
	})

	t.Run("missing node id fails the whole call", func(t *testing.T) {
		_, err := graphmodel.GetNodes[Person](ctx, g, []string{alice.ID, "no-such-id"})
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)
	})

	t.Run("relationships load with their endpoints", func(t *testing.T) {
		ids := []string{alice.Knows[0].ID, bob.Knows[0].ID}
		rels, err := graphmodel.GetRelationships[Knows](ctx, g, ids, types.Options().WithDepth(1))
		require.NoError(t, err)
		require.Len(t, rels, 2)
		require.NotNil(t, rels[0].Source)
		assert.Equal(t, "Alice", rels[0].Source.Name)
		require.NotNil(t, rels[1].Target)
		assert.Equal(t, "Carol", rels[1].Target.Name)
	})

	t.Run("missing relationship id fails the whole call", func(t *testing.T) {
		_, err := graphmodel.GetRelationships[Knows](ctx, g, []string{"no-such-rel"})
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)
	})
}

func TestRelationshipTypeFilter(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	alice := &Person{
		Name:  "Alice",
		Knows: []*Knows{{Target: &Person{Name: "Bob"}}},
		Owns:  []*Owns{{Target: &Pet{Name: "Rex"}}},
	}
	opts := types.Options().WithDepth(1).WithCreateMissingNodes()
	require.NoError(t, g.CreateNode(ctx, alice, opts))

	loaded, err := graphmodel.GetNode[Person](ctx, g, alice.ID,
		types.Options().WithDepth(1).WithRelationshipTypes("KNOWS"))
	require.NoError(t, err)
	assert.Len(t, loaded.Knows, 1)
	assert.Empty(t, loaded.Owns, "filtered type is not traversed")
}

func TestSharedNodeHydratesOnce(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	// diamond: alice knows bob and carol, both know dave
	dave := &Person{Name: "Dave"}
	alice := &Person{Name: "Alice", Knows: []*Knows{
		{Target: &Person{Name: "Bob", Knows: []*Knows{{Target: dave}}}},
		{Target: &Person{Name: "Carol", Knows: []*Knows{{Target: dave}}}},
	}}
	opts := types.Options().WithFullGraph().WithCreateMissingNodes()
	require.NoError(t, g.CreateNode(ctx, alice, opts))

	loaded, err := graphmodel.GetNode[Person](ctx, g, alice.ID, types.Options().WithDepth(2))
	require.NoError(t, err)
	require.Len(t, loaded.Knows, 2)
	left := loaded.Knows[0].Target
	right := loaded.Knows[1].Target
	require.Len(t, left.Knows, 1)
	require.Len(t, right.Knows, 1)
	assert.Same(t, left.Knows[0].Target, right.Knows[0].Target,
		"a node shared by two paths hydrates to one instance")
}

func TestDeleteNode(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	aliceID := buildChain(t, g)

	t.Run("connected delete without cascade is rejected", func(t *testing.T) {
		assert.ErrorIs(t, g.DeleteNode(ctx, aliceID, false), graphmodel.ErrConflict)
	})

	t.Run("cascade removes the node and its relationships", func(t *testing.T) {
		alice, err := graphmodel.GetNode[Person](ctx, g, aliceID, types.Options().WithDepth(1))
		require.NoError(t, err)
		bobID := alice.Knows[0].Target.ID

		require.NoError(t, g.DeleteNode(ctx, aliceID, true))
		_, err = graphmodel.GetNode[Person](ctx, g, aliceID)
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)

		// bob survives, now without the incoming relationship
		bob, err := graphmodel.GetNode[Person](ctx, g, bobID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", bob.Name)
	})
}

func TestStandaloneRelationships(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	alice := &Person{Name: "Alice"}
	bob := &Person{Name: "Bob"}
	require.NoError(t, g.CreateNode(ctx, alice))
	require.NoError(t, g.CreateNode(ctx, bob))

	t.Run("create by endpoint instances", func(t *testing.T) {
		rel := &Knows{Since: 2020, Source: alice, Target: bob}
		require.NoError(t, g.CreateRelationship(ctx, rel))
		assert.NotEmpty(t, rel.ID)
		assert.Equal(t, alice.ID, rel.StartNodeID)
		assert.Equal(t, bob.ID, rel.EndNodeID)

		loaded, err := graphmodel.GetRelationship[Knows](ctx, g, rel.ID, types.Options().WithDepth(1))
		require.NoError(t, err)
		assert.Equal(t, 2020, loaded.Since)
		require.NotNil(t, loaded.Source)
		assert.Equal(t, "Alice", loaded.Source.Name)
		assert.Equal(t, "Bob", loaded.Target.Name)
	})

	t.Run("missing endpoint id is rejected", func(t *testing.T) {
		rel := &Knows{}
		rel.StartNodeID = alice.ID
		rel.EndNodeID = "no-such-node"
		assert.ErrorIs(t, g.CreateRelationship(ctx, rel), graphmodel.ErrMissingEndpoint)
	})

	t.Run("update keeps endpoints", func(t *testing.T) {
		rel := &Knows{Since: 2020, Source: alice, Target: bob}
		require.NoError(t, g.CreateRelationship(ctx, rel))

		patch := &Knows{Since: 2021}
		patch.ID = rel.ID
		require.NoError(t, g.UpdateRelationship(ctx, patch))

		loaded, err := graphmodel.GetRelationship[Knows](ctx, g, rel.ID)
		require.NoError(t, err)
		assert.Equal(t, 2021, loaded.Since)
		assert.Equal(t, alice.ID, loaded.StartNodeID)
	})

	t.Run("delete", func(t *testing.T) {
		rel := &Knows{Source: alice, Target: bob}
		require.NoError(t, g.CreateRelationship(ctx, rel))
		require.NoError(t, g.DeleteRelationship(ctx, rel.ID))
		_, err := graphmodel.GetRelationship[Knows](ctx, g, rel.ID)
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)
	})
}

func TestBulkCreateNodes(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	nodes := make([]types.Node, 20)
	for i := range nodes {
		nodes[i] = &Person{Name: "P", Age: i}
	}
	require.NoError(t, g.CreateNodes(ctx, nodes))

	n, err := graphmodel.Nodes[Person](g).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)

	t.Run("individual failures are joined, others land", func(t *testing.T) {
		dup := &Person{Name: "Dup"}
		dup.ID = nodes[0].GetID()
		fresh := &Person{Name: "Fresh"}
		err := g.CreateNodes(ctx, []types.Node{dup, fresh})
		assert.ErrorIs(t, err, graphmodel.ErrConflict)

		_, err = graphmodel.GetNode[Person](ctx, g, fresh.ID)
		assert.NoError(t, err)
	})
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	t.Run("commit publishes writes", func(t *testing.T) {
		tx, err := g.BeginTransaction(ctx)
		require.NoError(t, err)
		alice := &Person{Name: "Alice"}
		require.NoError(t, tx.CreateNode(ctx, alice))

		// read-your-writes inside, invisible outside
		_, err = graphmodel.GetNode[Person](ctx, tx, alice.ID)
		require.NoError(t, err)
		_, err = graphmodel.GetNode[Person](ctx, g, alice.ID)
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)

		require.NoError(t, tx.Commit(ctx))
		assert.Equal(t, graphmodel.TransactionCommitted, tx.State())
		_, err = graphmodel.GetNode[Person](ctx, g, alice.ID)
		require.NoError(t, err)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := g.BeginTransaction(ctx)
		require.NoError(t, err)
		bob := &Person{Name: "Bob"}
		require.NoError(t, tx.CreateNode(ctx, bob))
		require.NoError(t, tx.Rollback(ctx))

		_, err = graphmodel.GetNode[Person](ctx, g, bob.ID)
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)
	})

	t.Run("state machine rejects reuse", func(t *testing.T) {
		tx, err := g.BeginTransaction(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		var stateErr *graphmodel.TransactionStateError
		assert.ErrorAs(t, tx.Commit(ctx), &stateErr)
		assert.ErrorAs(t, tx.Rollback(ctx), &stateErr)
		assert.ErrorAs(t, tx.CreateNode(ctx, &Person{Name: "X"}), &stateErr)
	})

	t.Run("failed operation leaves the transaction active", func(t *testing.T) {
		alice := &Person{Name: "Alice"}
		require.NoError(t, g.CreateNode(ctx, alice))

		tx, err := g.BeginTransaction(ctx)
		require.NoError(t, err)
		defer tx.Close(ctx)

		dup := &Person{Name: "Dup"}
		dup.ID = alice.ID
		assert.ErrorIs(t, tx.CreateNode(ctx, dup), graphmodel.ErrConflict)
		assert.Equal(t, graphmodel.TransactionActive, tx.State())

		carol := &Person{Name: "Carol"}
		require.NoError(t, tx.CreateNode(ctx, carol))
		require.NoError(t, tx.Commit(ctx))
	})

	t.Run("close rolls back and is idempotent", func(t *testing.T) {
		tx, err := g.BeginTransaction(ctx)
		require.NoError(t, err)
		dave := &Person{Name: "Dave"}
		require.NoError(t, tx.CreateNode(ctx, dave))

		require.NoError(t, tx.Close(ctx))
		assert.Equal(t, graphmodel.TransactionDisposed, tx.State())
		require.NoError(t, tx.Close(ctx))

		_, err = graphmodel.GetNode[Person](ctx, g, dave.ID)
		assert.ErrorIs(t, err, graphmodel.ErrNotFound)
	})
}

func seedPeople(t *testing.T, g *graphmodel.Graph) (alice, bob, carol *Person) {
	t.Helper()
	ctx := context.Background()
	alice = &Person{Name: "Alice", Age: 34, Home: Address{City: "Springfield"}}
	bob = &Person{Name: "Bob", Age: 41, Home: Address{City: "Shelbyville"}}
	carol = &Person{Name: "Carol", Age: 28, Home: Address{City: "Springfield"}}
	for _, p := range []*Person{alice, bob, carol} {
		require.NoError(t, g.CreateNode(ctx, p))
	}
	return alice, bob, carol
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	alice, bob, _ := seedPeople(t, g)
	require.NoError(t, g.CreateRelationship(ctx, &Knows{Since: 2019, Source: alice, Target: bob}))

	t.Run("where with order and take", func(t *testing.T) {
		people, err := graphmodel.Nodes[Person](g).
			Where(query.Gte("age", 30)).
			OrderByDesc("age").
			Take(1).
			ToList(ctx)
		require.NoError(t, err)
		require.Len(t, people, 1)
		assert.Equal(t, "Bob", people[0].Name)
	})

	t.Run("single and first", func(t *testing.T) {
		p, err := graphmodel.Nodes[Person](g).Where(query.Eq("name", "Alice")).Single(ctx)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, p.ID)

		_, err = graphmodel.Nodes[Person](g).Where(query.Eq("name", "Nobody")).First(ctx)
		assert.ErrorIs(t, err, query.ErrNoResults)

		_, err = graphmodel.Nodes[Person](g).Single(ctx)
		assert.ErrorIs(t, err, query.ErrMultipleResults)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		found, err := graphmodel.SearchNodes[Person](g, "ALICE").ToList(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Alice", found[0].Name)
	})

	t.Run("where and search compose regardless of order", func(t *testing.T) {
		// Springfield matches Alice and Carol through the home subtree;
		// the age predicate keeps only Alice.
		found, err := graphmodel.Nodes[Person](g).
			Where(query.Gt("age", 30)).
			Search("springfield").
			Where(query.StartsWith("name", "A")).
			ToList(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Alice", found[0].Name)

		flipped, err := graphmodel.Nodes[Person](g).
			Search("springfield").
			Where(query.StartsWith("name", "A"), query.Gt("age", 30)).
			ToList(ctx)
		require.NoError(t, err)
		require.Len(t, flipped, 1)
		assert.Equal(t, alice.ID, flipped[0].ID)
	})

	t.Run("search across labels yields dynamic nodes", func(t *testing.T) {
		found, err := graphmodel.Search(g, "bob").ToList(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		name, _ := found[0].Get("name")
		assert.Equal(t, "Bob", name)
	})

	t.Run("relationship query", func(t *testing.T) {
		rels, err := graphmodel.Relationships[Knows](g).Where(query.Gte("since", 2019)).ToList(ctx)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, alice.ID, rels[0].StartNodeID)
	})

	t.Run("traverse to endpoints", func(t *testing.T) {
		friends, err := graphmodel.Traverse[Person](
			graphmodel.Nodes[Person](g).Where(query.Eq("name", "Alice")),
			"KNOWS", types.Outgoing,
		).ToList(ctx)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		assert.Equal(t, "Bob", friends[0].Name)
	})

	t.Run("path segments", func(t *testing.T) {
		segs, err := query.Segments(
			graphmodel.Nodes[Person](g).Where(query.Eq("name", "Alice")),
			"KNOWS", types.Outgoing,
		).ToList(ctx)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, "Alice", segs[0].Source["name"])
		assert.Equal(t, "KNOWS", segs[0].Rel["type"])
		assert.Equal(t, "Bob", segs[0].Target["name"])
	})

	t.Run("projection", func(t *testing.T) {
		rows, err := graphmodel.Select(
			graphmodel.Nodes[Person](g).Where(query.Eq("name", "Alice")),
			"name", "age",
		).ToList(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Alice", rows[0]["name"])
		assert.NotContains(t, rows[0], "home")
	})

	t.Run("any and count", func(t *testing.T) {
		ok, err := graphmodel.Nodes[Person](g).Where(query.Lt("age", 30)).Any(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := graphmodel.Nodes[Person](g).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("queries on a transaction see its writes", func(t *testing.T) {
		tx, err := g.BeginTransaction(ctx)
		require.NoError(t, err)
		defer tx.Close(ctx)

		require.NoError(t, tx.CreateNode(ctx, &Person{Name: "Dana", Age: 50}))
		n, err := graphmodel.Nodes[Person](tx).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		n, err = graphmodel.Nodes[Person](g).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n, "uncommitted writes stay invisible outside")
	})
}

func TestDynamicEntities(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)

	doc := types.NewDynamicNode("Document").Set("title", "Q3 Report").Set("pages", 12)
	require.NoError(t, g.CreateNode(ctx, doc))

	loaded, err := graphmodel.GetNode[types.DynamicNode](ctx, g, doc.GetID())
	require.NoError(t, err)
	assert.Equal(t, []string{"Document"}, loaded.Labels)
	title, ok := loaded.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Q3 Report", title)

	other := types.NewDynamicNode("Document").Set("title", "Q4 Plan")
	require.NoError(t, g.CreateNode(ctx, other))

	rel := types.NewDynamicRelationship("SUPERSEDES", other.GetID(), doc.GetID())
	require.NoError(t, g.CreateRelationship(ctx, rel))

	got, err := graphmodel.GetRelationship[types.DynamicRelationship](ctx, g, rel.GetID())
	require.NoError(t, err)
	assert.Equal(t, "SUPERSEDES", got.Type)
	assert.Equal(t, other.GetID(), got.StartNodeID)
}

func TestPropertyRelationshipNaming(t *testing.T) {
	relType := graphmodel.PropertyNameToRelationshipType("Friends")
	assert.Equal(t, "__PROPERTY__Friends__", relType)
	assert.Equal(t, "Friends", graphmodel.RelationshipTypeToPropertyName(relType))
	assert.Equal(t, "KNOWS", graphmodel.RelationshipTypeToPropertyName("KNOWS"))
}
