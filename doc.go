// Package graphmodel maps typed Go structs onto a graph database.
//
// Node and relationship types are plain structs that embed types.NodeBase or
// types.RelationshipBase. Scalar fields become graph properties, nested value
// structs are stored as a single serialized property, and slices of
// relationship structs become navigable graph relationships.
//
// # Basic Usage
//
// Open a graph over an embedded store and persist an object graph:
//
//	store, err := driver.NewEmbeddedStore("./graph_db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	g, err := graphmodel.New(store, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Close(ctx)
//
//	alice := &Person{Name: "Alice"}
//	if err := g.CreateNode(ctx, alice); err != nil {
//		log.Fatal(err)
//	}
//
//	loaded, err := graphmodel.GetNode[Person](ctx, g, alice.ID)
//
// # Transactions
//
// A transaction groups operations into one atomic unit of work. Writes are
// visible to reads through the same handle and invisible elsewhere until
// commit:
//
//	tx, err := g.BeginTransaction(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer tx.Close(ctx)
//
//	if err := tx.CreateNode(ctx, alice); err != nil {
//		log.Fatal(err)
//	}
//	if err := tx.Commit(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Queries
//
// Queries are deferred descriptions. Operators refine the description;
// nothing touches the store until a terminal operator runs:
//
//	adults, err := graphmodel.Nodes[Person](g).
//		Where(query.Gte("age", 18)).
//		OrderBy("name").
//		Take(10).
//		ToList(ctx)
package graphmodel
