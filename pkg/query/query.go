package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/soundprediction/graphmodel/pkg/types"
)

var (
	// ErrNoResults is returned by First and Single when the query matches
	// nothing.
	ErrNoResults = errors.New("query returned no results")
	// ErrMultipleResults is returned by Single and SingleOrDefault when the
	// query matches more than one entity.
	ErrMultipleResults = errors.New("query returned multiple results")
)

// Record is one raw result row from the store: property values plus the
// reserved keys "id", "labels" (nodes) and "id", "type", "start_node_id",
// "end_node_id" (relationships).
type Record map[string]any

// Decode maps the record onto a struct using mapstructure tags, weakly
// converting scalar types. Useful for consuming projected results.
func (r Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(r))
}

// ExecFunc lowers a spec to the store's query language and executes it.
type ExecFunc func(ctx context.Context, spec *Spec) ([]Record, error)

// DecodeFunc materializes one record into the query's element type.
type DecodeFunc[T any] func(Record) (T, error)

// Query is a lazy, composable query description over nodes or relationships
// of one type. Operators return new queries; nothing executes until a
// terminal operator runs.
type Query[T any] struct {
	spec   *Spec
	exec   ExecFunc
	decode DecodeFunc[T]
}

// New builds the root query for a label.
func New[T any](kind Kind, label string, exec ExecFunc, decode DecodeFunc[T]) *Query[T] {
	return &Query[T]{
		spec:   &Spec{Kind: kind, Label: label},
		exec:   exec,
		decode: decode,
	}
}

func (q *Query[T]) derive(mutate func(*Spec)) *Query[T] {
	spec := q.spec.Clone()
	mutate(spec)
	return &Query[T]{spec: spec, exec: q.exec, decode: q.decode}
}

// Spec exposes the accumulated description, cloned so callers cannot mutate
// the query.
func (q *Query[T]) Spec() *Spec { return q.spec.Clone() }

// Where adds predicate conditions, combined with AND.
func (q *Query[T]) Where(conds ...Cond) *Query[T] {
	return q.derive(func(s *Spec) { s.addWhere(conds...) })
}

// Search adds a case-insensitive full-text term. It composes before or after
// any other operator; each term filters the result independently.
func (q *Query[T]) Search(text string) *Query[T] {
	return q.derive(func(s *Spec) { s.addSearch(text) })
}

// OrderBy starts a new ascending ordering by the given property.
func (q *Query[T]) OrderBy(field string) *Query[T] {
	return q.derive(func(s *Spec) { s.Order = []OrderKey{{Field: field}} })
}

// OrderByDesc starts a new descending ordering by the given property.
func (q *Query[T]) OrderByDesc(field string) *Query[T] {
	return q.derive(func(s *Spec) { s.Order = []OrderKey{{Field: field, Desc: true}} })
}

// ThenBy adds a secondary ascending ordering.
func (q *Query[T]) ThenBy(field string) *Query[T] {
	return q.derive(func(s *Spec) { s.Order = append(s.Order, OrderKey{Field: field}) })
}

// ThenByDesc adds a secondary descending ordering.
func (q *Query[T]) ThenByDesc(field string) *Query[T] {
	return q.derive(func(s *Spec) { s.Order = append(s.Order, OrderKey{Field: field, Desc: true}) })
}

// Skip drops the first n results.
func (q *Query[T]) Skip(n int) *Query[T] {
	return q.derive(func(s *Spec) { s.SkipCount = n })
}

// Take limits the result set to n entries.
func (q *Query[T]) Take(n int) *Query[T] {
	return q.derive(func(s *Spec) { s.LimitCount = n })
}

// Distinct removes duplicate results.
func (q *Query[T]) Distinct() *Query[T] {
	return q.derive(func(s *Spec) { s.Distinct = true })
}

// ToList executes the query and materializes all results.
func (q *Query[T]) ToList(ctx context.Context) ([]T, error) {
	records, err := q.exec(ctx, q.spec.Clone())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		item, err := q.decode(rec)
		if err != nil {
			return nil, fmt.Errorf("decode query result: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

// First returns the first result, or ErrNoResults.
func (q *Query[T]) First(ctx context.Context) (T, error) {
	var zero T
	items, err := q.Take(1).ToList(ctx)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNoResults
	}
	return items[0], nil
}

// FirstOrDefault returns the first result, or the zero value when nothing
// matches.
func (q *Query[T]) FirstOrDefault(ctx context.Context) (T, error) {
	item, err := q.First(ctx)
	if errors.Is(err, ErrNoResults) {
		var zero T
		return zero, nil
	}
	return item, err
}

// Single returns the only result; ErrNoResults when empty, or
// ErrMultipleResults when more than one entity matches.
func (q *Query[T]) Single(ctx context.Context) (T, error) {
	var zero T
	items, err := q.Take(2).ToList(ctx)
	if err != nil {
		return zero, err
	}
	switch len(items) {
	case 0:
		return zero, ErrNoResults
	case 1:
		return items[0], nil
	}
	return zero, ErrMultipleResults
}

// SingleOrDefault returns the only result, the zero value when nothing
// matches, or ErrMultipleResults.
func (q *Query[T]) SingleOrDefault(ctx context.Context) (T, error) {
	item, err := q.Single(ctx)
	if errors.Is(err, ErrNoResults) {
		var zero T
		return zero, nil
	}
	return item, err
}

// Any reports whether the query matches at least one entity.
func (q *Query[T]) Any(ctx context.Context) (bool, error) {
	records, err := q.exec(ctx, q.Take(1).spec.Clone())
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// All reports whether every entity matched by the query also satisfies the
// given conditions.
func (q *Query[T]) All(ctx context.Context, conds ...Cond) (bool, error) {
	total, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	matching, err := q.Where(conds...).Count(ctx)
	if err != nil {
		return false, err
	}
	return total == matching, nil
}

// Count executes the query and returns the number of results.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	records, err := q.exec(ctx, q.spec.Clone())
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

// Traverse projects the query across relationships of relType in the given
// direction to the opposite-endpoint nodes, yielding a still-lazy query over
// the endpoint type. Conditions and search terms composed afterwards apply
// to the projected endpoints.
func Traverse[U, T any](q *Query[T], relType string, dir types.Direction, targetLabel string, decode DecodeFunc[U]) *Query[U] {
	spec := q.spec.Clone()
	spec.Traversals = append(spec.Traversals, Step{RelType: relType, Direction: dir, TargetLabel: targetLabel})
	spec.Segments = false
	return &Query[U]{spec: spec, exec: q.exec, decode: decode}
}

// Segment is one adjacent path triple produced by Segments.
type Segment struct {
	Source Record
	Rel    Record
	Target Record
}

// Segments projects the query across relationships of relType into a query
// over adjacent path segments (source, relationship, target triples).
func Segments[T any](q *Query[T], relType string, dir types.Direction) *Query[Segment] {
	spec := q.spec.Clone()
	spec.Traversals = append(spec.Traversals, Step{RelType: relType, Direction: dir})
	spec.Segments = true
	return &Query[Segment]{spec: spec, exec: q.exec, decode: decodeSegment}
}

func decodeSegment(rec Record) (Segment, error) {
	seg := Segment{}
	var ok bool
	if seg.Source, ok = rec["source"].(Record); !ok {
		return seg, fmt.Errorf("segment record missing source")
	}
	if seg.Rel, ok = rec["rel"].(Record); !ok {
		return seg, fmt.Errorf("segment record missing rel")
	}
	if seg.Target, ok = rec["target"].(Record); !ok {
		return seg, fmt.Errorf("segment record missing target")
	}
	return seg, nil
}

// Project restricts the returned properties and yields raw records; use it
// for select-style projections that do not materialize a full entity.
func Project[T any](q *Query[T], fields ...string) *Query[Record] {
	spec := q.spec.Clone()
	spec.Projection = append([]string(nil), fields...)
	return &Query[Record]{
		spec:   spec,
		exec:   q.exec,
		decode: func(rec Record) (Record, error) { return rec, nil },
	}
}
