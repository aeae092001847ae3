// Package driver provides graph store backends for graphmodel.
//
// The package defines the GraphStore interface — the boundary between the
// object-graph mapping engine and the backing store — and two
// implementations:
//
//   - Neo4j: full-featured remote graph database, lowered to Cypher
//   - Embedded: a Badger-backed embedded store (optionally fully in-memory)
//
// A gobreaker-based decorator is available to wrap any store with circuit
// breaking.
//
// # Transactions
//
// Begin returns a store unit-of-work handle. Operations that receive a
// non-nil Tx are buffered in that unit of work: they are visible to reads
// through the same handle and invisible elsewhere until Commit. A nil Tx
// auto-commits each operation.
//
// # Thread Safety
//
// Store implementations are safe for concurrent use. A Tx handle is not; the
// engine serializes operations per transaction.
package driver
