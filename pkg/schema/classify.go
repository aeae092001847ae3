package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/graphmodel/pkg/types"
)

// Category classifies the shape of a single entity property.
type Category string

const (
	// Scalar properties (string, number, boolean, timestamp) are stored
	// directly on the node or relationship.
	Scalar Category = "scalar"
	// ValueSubtree properties are nested plain-object trees with no entity
	// identity, required to be acyclic at the instance level.
	ValueSubtree Category = "value_subtree"
	// ScalarCollection properties are homogeneous ordered collections of
	// scalars.
	ScalarCollection Category = "scalar_collection"
	// RelationshipNavigation properties are typed collections holding
	// attached relationships.
	RelationshipNavigation Category = "relationship_navigation"
	// Invalid marks forbidden shapes: entity references, collections or
	// dictionaries of entities, and unclassifiable types.
	Invalid Category = "invalid"
)

// EntityKind distinguishes node schemas from relationship schemas.
type EntityKind string

const (
	KindNode         EntityKind = "node"
	KindRelationship EntityKind = "relationship"
)

// Property describes one classified data property of an entity type.
type Property struct {
	// Name is the store property name (graph tag, or snake_case field name).
	Name string
	// Index is the struct field index path.
	Index []int
	// Category is the classified shape.
	Category Category
	// Type is the declared field type.
	Type reflect.Type
}

// Navigation describes one relationship navigation collection on a node type.
type Navigation struct {
	// Name is the struct field name.
	Name string
	// Index is the struct field index path.
	Index []int
	// RelType is the relationship type label traversed by this property.
	RelType string
	// Direction filters which endpoint the owning node plays.
	Direction types.Direction
	// ElemType is the relationship struct type (element of the slice,
	// without the pointer).
	ElemType reflect.Type
}

// TypeSchema is the cached classification of one entity type.
type TypeSchema struct {
	Type        reflect.Type
	Kind        EntityKind
	Labels      []string
	Properties  []Property
	Navigations []Navigation

	// SourceIndex and TargetIndex locate the optional resolved endpoint
	// node pointer fields on relationship types. Nil when not declared.
	SourceIndex []int
	TargetIndex []int
	// SourceType and TargetType are the endpoint node struct types.
	SourceType reflect.Type
	TargetType reflect.Type
}

// Label returns the primary label.
func (s *TypeSchema) Label() string {
	if len(s.Labels) == 0 {
		return s.Type.Name()
	}
	return s.Labels[0]
}

var (
	nodeIface     = reflect.TypeOf((*types.Node)(nil)).Elem()
	relIface      = reflect.TypeOf((*types.Relationship)(nil)).Elem()
	timeType      = reflect.TypeOf(time.Time{})
	nodeBaseType  = reflect.TypeOf(types.NodeBase{})
	relBaseType   = reflect.TypeOf(types.RelationshipBase{})
	dynNodeType   = reflect.TypeOf(types.DynamicNode{})
	dynRelType    = reflect.TypeOf(types.DynamicRelationship{})
	schemaCache   sync.Map // reflect.Type -> *cacheEntry
)

type cacheEntry struct {
	schema *TypeSchema
	err    error
}

// Of classifies the dynamic type of the given entity.
func Of(entity types.Entity) (*TypeSchema, error) {
	t := reflect.TypeOf(entity)
	if t == nil {
		return nil, fmt.Errorf("classify: nil entity: %w", types.ErrInvalidGraph)
	}
	return For(t)
}

// For classifies a node or relationship type. The result is computed once
// per type and cached.
func For(t reflect.Type) (*TypeSchema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := schemaCache.Load(t); ok {
		entry := e.(*cacheEntry)
		return entry.schema, entry.err
	}
	s, err := classifyType(t)
	schemaCache.Store(t, &cacheEntry{schema: s, err: err})
	return s, err
}

func classifyType(t reflect.Type) (*TypeSchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("classify %s: entity must be a struct: %w", t, types.ErrInvalidGraph)
	}
	pt := reflect.PointerTo(t)
	s := &TypeSchema{Type: t}
	switch {
	case pt.Implements(relIface):
		s.Kind = KindRelationship
	case pt.Implements(nodeIface):
		s.Kind = KindNode
	default:
		return nil, fmt.Errorf("classify %s: type embeds neither NodeBase nor RelationshipBase: %w", t, types.ErrInvalidGraph)
	}

	if err := collectFields(t, nil, s); err != nil {
		return nil, err
	}
	if len(s.Labels) == 0 {
		s.Labels = []string{t.Name()}
	}
	if s.Kind == KindNode && (s.SourceIndex != nil || s.TargetIndex != nil) {
		return nil, fmt.Errorf("classify %s: endpoint fields are only valid on relationships: %w", t, types.ErrInvalidGraph)
	}
	return s, nil
}

// collectFields walks t's fields, following anonymous embedded entity structs
// so labels and properties promote the way Go promotes fields.
func collectFields(t reflect.Type, prefix []int, s *TypeSchema) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		tag := parseTag(f.Tag.Get("graph"))

		if f.Anonymous {
			switch f.Type {
			case nodeBaseType, relBaseType:
				s.Labels = append(s.Labels, tag.labels...)
				continue
			case dynNodeType, dynRelType:
				// dynamic bases carry their own labels and property map
				continue
			}
			if f.Type.Kind() == reflect.Struct && isEntityType(f.Type) {
				if err := collectFields(f.Type, idx, s); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() || tag.skip {
			continue
		}

		// Relationship endpoint fields are the sanctioned entity references.
		if s.Kind == KindRelationship {
			if tag.startNode || (f.Name == "Source" && tag.relType == "") {
				st, err := endpointType(t, f)
				if err != nil {
					return err
				}
				s.SourceIndex, s.SourceType = idx, st
				continue
			}
			if tag.endNode || (f.Name == "Target" && tag.relType == "") {
				et, err := endpointType(t, f)
				if err != nil {
					return err
				}
				s.TargetIndex, s.TargetType = idx, et
				continue
			}
		}

		cat, err := classifyField(f.Type, map[reflect.Type]bool{})
		if err != nil {
			return fmt.Errorf("classify %s.%s: %w", t.Name(), f.Name, err)
		}
		if cat == RelationshipNavigation {
			if s.Kind != KindNode {
				return fmt.Errorf("classify %s.%s: navigation properties are only valid on nodes: %w", t.Name(), f.Name, types.ErrInvalidGraph)
			}
			nav, err := navigationFor(f, idx, tag)
			if err != nil {
				return err
			}
			s.Navigations = append(s.Navigations, nav)
			continue
		}
		name := tag.name
		if name == "" {
			name = toSnake(f.Name)
		}
		s.Properties = append(s.Properties, Property{Name: name, Index: idx, Category: cat, Type: f.Type})
	}
	return nil
}

// classifyField applies the shape rules in priority order. seen guards
// against unbounded recursion on type-recursive value subtrees; instance
// cycles are rejected separately at write time.
func classifyField(t reflect.Type, seen map[reflect.Type]bool) (Category, error) {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	// Rule 1: a property typed as an entity reference is invalid.
	if isEntityType(base) {
		return Invalid, fmt.Errorf("entity-typed property %s: %w", t, types.ErrInvalidGraph)
	}

	if isScalar(base) {
		return Scalar, nil
	}

	switch base.Kind() {
	case reflect.Slice, reflect.Array:
		elem := base.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		// Rule 3: collections of relationships are navigation properties.
		if isRelationshipType(elem) {
			return RelationshipNavigation, nil
		}
		// Rule 2: collections of entities are invalid.
		if isEntityType(elem) {
			return Invalid, fmt.Errorf("collection of entities %s: %w", t, types.ErrInvalidGraph)
		}
		// Rule 4: collections of scalars.
		if isScalar(elem) {
			return ScalarCollection, nil
		}
		// Collections of plain objects are stored as a value subtree,
		// recursively checked like any other nested shape.
		if err := checkSubtreeType(elem, seen); err != nil {
			return Invalid, err
		}
		return ValueSubtree, nil

	case reflect.Map:
		val := base.Elem()
		for val.Kind() == reflect.Pointer {
			val = val.Elem()
		}
		// Rule 2: dictionaries whose values are entities are invalid.
		if isEntityType(val) {
			return Invalid, fmt.Errorf("dictionary of entities %s: %w", t, types.ErrInvalidGraph)
		}
		if !isScalar(base.Key()) {
			return Invalid, fmt.Errorf("dictionary with non-scalar keys %s: %w", t, types.ErrInvalidGraph)
		}
		if val.Kind() == reflect.Interface {
			// open property maps (map[string]any) are stored as subtrees
			return ValueSubtree, nil
		}
		if err := checkSubtreeType(val, seen); err != nil {
			return Invalid, err
		}
		return ValueSubtree, nil

	case reflect.Struct:
		// Rule 5: plain nested objects are value subtrees, recursively
		// classified.
		if err := checkSubtreeType(base, seen); err != nil {
			return Invalid, err
		}
		return ValueSubtree, nil
	}

	return Invalid, fmt.Errorf("unsupported property type %s: %w", t, types.ErrInvalidGraph)
}

// checkSubtreeType ensures every type reachable inside a value subtree is
// itself scalar, scalar collection, or value subtree, with no entity
// references anywhere.
func checkSubtreeType(t reflect.Type, seen map[reflect.Type]bool) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if isScalar(t) {
		return nil
	}
	if isEntityType(t) {
		return fmt.Errorf("entity reference inside value subtree %s: %w", t, types.ErrInvalidGraph)
	}
	if seen[t] {
		// type-level recursion is legal; instances must form a DAG and
		// are checked at write time
		return nil
	}
	seen[t] = true
	defer delete(seen, t)

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if _, err := classifyField(f.Type, seen); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array, reflect.Map:
		return checkSubtreeType(t.Elem(), seen)
	}
	return fmt.Errorf("unsupported type inside value subtree %s: %w", t, types.ErrInvalidGraph)
}

func navigationFor(f reflect.StructField, idx []int, tag graphTag) (Navigation, error) {
	elem := f.Type.Elem()
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	relType := tag.relType
	if relType == "" {
		es, err := For(elem)
		if err != nil {
			return Navigation{}, err
		}
		relType = es.Label()
	}
	dir := types.Outgoing
	if tag.direction != "" {
		dir = types.Direction(tag.direction)
		if dir != types.Outgoing && dir != types.Incoming {
			return Navigation{}, fmt.Errorf("classify %s: unknown direction %q: %w", f.Name, tag.direction, types.ErrInvalidGraph)
		}
	}
	return Navigation{
		Name:      f.Name,
		Index:     idx,
		RelType:   relType,
		Direction: dir,
		ElemType:  elem,
	}, nil
}

func endpointType(owner reflect.Type, f reflect.StructField) (reflect.Type, error) {
	t := f.Type
	if t.Kind() != reflect.Pointer || !isNodeType(t.Elem()) {
		return nil, fmt.Errorf("classify %s.%s: endpoint field must be a pointer to a node type: %w", owner.Name(), f.Name, types.ErrInvalidGraph)
	}
	return t.Elem(), nil
}

func isScalar(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isEntityType(t reflect.Type) bool {
	return isNodeType(t) || isRelationshipType(t)
}

func isNodeType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(nodeIface)
}

func isRelationshipType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(relIface)
}

type graphTag struct {
	skip      bool
	name      string
	labels    []string
	relType   string
	direction string
	startNode bool
	endNode   bool
}

// parseTag reads a graph struct tag: comma-separated items, each either a
// bare property name or key=value (label, rel, direction, startNode,
// endNode). "-" skips the field.
func parseTag(raw string) graphTag {
	var t graphTag
	if raw == "" {
		return t
	}
	if raw == "-" {
		t.skip = true
		return t
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			switch key {
			case "startNode":
				t.startNode = true
			case "endNode":
				t.endNode = true
			default:
				t.name = key
			}
			continue
		}
		switch key {
		case "label":
			t.labels = append(t.labels, value)
		case "rel":
			t.relType = value
		case "direction":
			t.direction = value
		case "name":
			t.name = value
		}
	}
	return t
}

// toSnake converts a Go field name to its snake_case store property name.
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (name[i-1] < 'A' || name[i-1] > 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
