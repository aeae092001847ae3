package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type Person struct {
	types.NodeBase `graph:"label=Person"`
	Name           string
	EmailAddress   string `graph:"name=email"`
	Age            int
	Tags           []string
	Home           Address
	Extras         map[string]any
	Knows          []*Knows `graph:"rel=KNOWS"`
	Secret         string   `graph:"-"`
}

func TestClassifyNode(t *testing.T) {
	s, err := Of(&Person{})
	require.NoError(t, err)

	assert.Equal(t, KindNode, s.Kind)
	assert.Equal(t, []string{"Person"}, s.Labels)

	byName := map[string]Category{}
	for _, p := range s.Properties {
		byName[p.Name] = p.Category
	}
	assert.Equal(t, Scalar, byName["name"])
	assert.Equal(t, Scalar, byName["email"])
	assert.Equal(t, Scalar, byName["age"])
	assert.Equal(t, ScalarCollection, byName["tags"])
	assert.Equal(t, ValueSubtree, byName["home"])
	assert.Equal(t, ValueSubtree, byName["extras"])
	assert.NotContains(t, byName, "secret")
	assert.NotContains(t, byName, "knows")

	require.Len(t, s.Navigations, 1)
	nav := s.Navigations[0]
	assert.Equal(t, "KNOWS", nav.RelType)
	assert.Equal(t, types.Outgoing, nav.Direction)
}

func TestClassifyRelationship(t *testing.T) {
	s, err := Of(&Knows{})
	require.NoError(t, err)

	assert.Equal(t, KindRelationship, s.Kind)
	assert.Equal(t, []string{"KNOWS"}, s.Labels)
	require.NotNil(t, s.SourceIndex)
	require.NotNil(t, s.TargetIndex)
	assert.Equal(t, "Person", s.SourceType.Name())
	assert.Equal(t, "Person", s.TargetType.Name())

	require.Len(t, s.Properties, 1)
	assert.Equal(t, "since", s.Properties[0].Name)
}

func TestClassificationIsCached(t *testing.T) {
	a, err := Of(&Person{})
	require.NoError(t, err)
	b, err := Of(&Person{})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

type hasNodeRef struct {
	types.NodeBase
	Friend *Person
}

type hasNodeSlice struct {
	types.NodeBase
	Friends []*Person
}

type hasEntityMap struct {
	types.NodeBase
	Friends map[string]*Person
}

type badSubtree struct {
	Leader *Person
}

type hasEntityInSubtree struct {
	types.NodeBase
	Team badSubtree
}

func TestForbiddenShapes(t *testing.T) {
	cases := []struct {
		name   string
		entity types.Entity
	}{
		{"direct node reference", &hasNodeRef{}},
		{"collection of nodes", &hasNodeSlice{}},
		{"dictionary of nodes", &hasEntityMap{}},
		{"node reference inside value subtree", &hasEntityInSubtree{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Of(tc.entity)
			assert.ErrorIs(t, err, types.ErrInvalidGraph)
		})
	}
}

func TestPropertiesRoundTrip(t *testing.T) {
	p := &Person{
		Name:         "Alice",
		EmailAddress: "alice@example.com",
		Age:          34,
		Tags:         []string{"admin", "ops"},
		Home:         Address{Street: "1 Main St", City: "Springfield"},
		Extras:       map[string]any{"nickname": "Al"},
		Secret:       "hidden",
	}

	props, err := Properties(p)
	require.NoError(t, err)
	assert.Equal(t, "Alice", props["name"])
	assert.Equal(t, "alice@example.com", props["email"])
	assert.NotContains(t, props, "secret")
	assert.NotContains(t, props, "id")

	// value subtrees travel as one serialized property
	encoded, ok := props["home"].(string)
	require.True(t, ok)
	var home Address
	require.NoError(t, json.Unmarshal([]byte(encoded), &home))
	assert.Equal(t, p.Home, home)

	restored := &Person{}
	require.NoError(t, SetProperties(restored, props))
	assert.Equal(t, p.Name, restored.Name)
	assert.Equal(t, p.EmailAddress, restored.EmailAddress)
	assert.Equal(t, p.Age, restored.Age)
	assert.Equal(t, p.Tags, restored.Tags)
	assert.Equal(t, p.Home, restored.Home)
	assert.Equal(t, "Al", restored.Extras["nickname"])
}

func TestDynamicEntities(t *testing.T) {
	t.Run("dynamic node properties", func(t *testing.T) {
		n := types.NewDynamicNode("Document").Set("title", "Q3 Report").Set("pages", 12)
		props, err := Properties(n)
		require.NoError(t, err)
		assert.Equal(t, "Q3 Report", props["title"])
		assert.Equal(t, 12, props["pages"])

		labels, err := Labels(n)
		require.NoError(t, err)
		assert.Equal(t, []string{"Document"}, labels)
	})

	t.Run("dynamic relationship type", func(t *testing.T) {
		r := types.NewDynamicRelationship("MENTIONS", "a", "b")
		relType, err := RelType(r)
		require.NoError(t, err)
		assert.Equal(t, "MENTIONS", relType)

		_, err = RelType(&types.DynamicRelationship{})
		assert.ErrorIs(t, err, types.ErrInvalidGraph)
	})
}

type waypoint struct {
	Lat float64
	Lon float64
}

type route struct {
	types.NodeBase `graph:"label=Route"`
	Name           string
	Stops          []waypoint
}

func TestStructCollectionsAreValueSubtrees(t *testing.T) {
	s, err := Of(&route{})
	require.NoError(t, err)
	byName := map[string]Category{}
	for _, p := range s.Properties {
		byName[p.Name] = p.Category
	}
	assert.Equal(t, ValueSubtree, byName["stops"])

	r := &route{
		Name:  "commute",
		Stops: []waypoint{{Lat: 47.6, Lon: -122.3}, {Lat: 47.7, Lon: -122.2}},
	}
	props, err := Properties(r)
	require.NoError(t, err)
	_, ok := props["stops"].(string)
	require.True(t, ok, "collections of value objects travel as one serialized property")

	restored := &route{}
	require.NoError(t, SetProperties(restored, props))
	assert.Equal(t, r.Stops, restored.Stops)
}

type treeNode struct {
	Label    string
	Children []*treeNode
}

type hasTree struct {
	types.NodeBase
	Root *treeNode
}

func TestValueCycles(t *testing.T) {
	t.Run("type-level recursion is legal", func(t *testing.T) {
		_, err := Of(&hasTree{})
		require.NoError(t, err)
	})

	t.Run("instance DAG sharing is legal", func(t *testing.T) {
		shared := &treeNode{Label: "shared"}
		n := &hasTree{Root: &treeNode{Children: []*treeNode{
			{Label: "a", Children: []*treeNode{shared}},
			{Label: "b", Children: []*treeNode{shared}},
		}}}
		assert.NoError(t, CheckValueCycles(n))
	})

	t.Run("instance cycle is rejected", func(t *testing.T) {
		loop := &treeNode{Label: "loop"}
		loop.Children = []*treeNode{loop}
		n := &hasTree{Root: loop}
		assert.ErrorIs(t, CheckValueCycles(n), types.ErrInvalidGraph)
	})

	t.Run("cycle through a map is rejected", func(t *testing.T) {
		extras := map[string]any{}
		extras["self"] = extras
		n := types.NewDynamicNode("X")
		n.Properties["extras"] = extras
		assert.ErrorIs(t, CheckValueCycles(n), types.ErrInvalidGraph)
	})
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"Name":         "name",
		"EmailAddress": "email_address",
		"HTTPTimeout":  "httptimeout",
		"Age":          "age",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnake(in), in)
	}
}
