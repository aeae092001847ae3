package graphmodel

import "strings"

// DefaultDepthAllowed is the traversal depth used when no explicit depth is
// configured or passed. Five hops is deep enough for typical object graphs
// while keeping accidental full-graph loads unlikely.
const DefaultDepthAllowed = 5

const (
	propertyRelPrefix = "__PROPERTY__"
	propertyRelSuffix = "__"
)

// PropertyNameToRelationshipType derives the backing relationship type for a
// navigation property name.
func PropertyNameToRelationshipType(name string) string {
	return propertyRelPrefix + name + propertyRelSuffix
}

// RelationshipTypeToPropertyName recovers the property name from a derived
// relationship type. It returns the input unchanged when the type was not
// derived from a property name.
func RelationshipTypeToPropertyName(relType string) string {
	if strings.HasPrefix(relType, propertyRelPrefix) && strings.HasSuffix(relType, propertyRelSuffix) {
		return relType[len(propertyRelPrefix) : len(relType)-len(propertyRelSuffix)]
	}
	return relType
}
