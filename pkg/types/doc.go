// Package types defines the core data model for graphmodel: node and
// relationship base types that application structs embed, dynamic
// (schema-less) entity variants, traversal options, and the shared
// domain error taxonomy.
package types
