// Package schema inspects an entity type's declared shape once and decides,
// per property, whether it is a scalar, a value-object subtree, a homogeneous
// collection of scalars, a relationship navigation collection, or a forbidden
// shape. Classification is computed per type, cached, and side-effect-free;
// it never touches the store.
//
// The package also owns the runtime pieces that depend on classification:
// flattening an entity into a store property map, hydrating an entity back
// from one, and the identity-keyed cycle check over value-object instance
// graphs.
package schema
