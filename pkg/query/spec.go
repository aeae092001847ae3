package query

import (
	"github.com/soundprediction/graphmodel/pkg/types"
)

// Kind selects what a query enumerates.
type Kind string

const (
	// KindNodes queries enumerate nodes by label.
	KindNodes Kind = "nodes"
	// KindRelationships queries enumerate relationships by type.
	KindRelationships Kind = "relationships"
)

// Op is a comparison operator in a predicate condition.
type Op string

const (
	OpEq         Op = "eq"
	OpNe         Op = "ne"
	OpGt         Op = "gt"
	OpGte        Op = "gte"
	OpLt         Op = "lt"
	OpLte        Op = "lte"
	OpStartsWith Op = "startswith"
	OpEndsWith   Op = "endswith"
	OpContains   Op = "contains"
	OpIn         Op = "in"
)

// Cond is a single predicate condition over a property. The value is
// captured at build time; conditions on one query combine with AND.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Condition helpers; Value is evaluated by the caller before the call, so
// captured locals become literals in the description.

func Eq(field string, value any) Cond         { return Cond{Field: field, Op: OpEq, Value: value} }
func Ne(field string, value any) Cond         { return Cond{Field: field, Op: OpNe, Value: value} }
func Gt(field string, value any) Cond         { return Cond{Field: field, Op: OpGt, Value: value} }
func Gte(field string, value any) Cond        { return Cond{Field: field, Op: OpGte, Value: value} }
func Lt(field string, value any) Cond         { return Cond{Field: field, Op: OpLt, Value: value} }
func Lte(field string, value any) Cond        { return Cond{Field: field, Op: OpLte, Value: value} }
func StartsWith(field, prefix string) Cond    { return Cond{Field: field, Op: OpStartsWith, Value: prefix} }
func EndsWith(field, suffix string) Cond      { return Cond{Field: field, Op: OpEndsWith, Value: suffix} }
func Contains(field, substring string) Cond   { return Cond{Field: field, Op: OpContains, Value: substring} }
func In(field string, values ...any) Cond     { return Cond{Field: field, Op: OpIn, Value: values} }

// OrderKey is one ordering criterion.
type OrderKey struct {
	Field string
	Desc  bool
}

// Step is one path-navigation hop: follow relationships of RelType in
// Direction to endpoint nodes labeled TargetLabel. Conditions and search
// terms composed after the hop apply to the projected endpoint.
type Step struct {
	RelType     string
	Direction   types.Direction
	TargetLabel string
	Where       []Cond
	Search      []string
}

// Spec is the immutable, store-agnostic description of a deferred query.
// Drivers lower it to their native query language at enumeration time.
type Spec struct {
	Kind  Kind
	Label string

	// Where and Search apply to the query root; after a traversal step they
	// accumulate on the step instead.
	Where  []Cond
	Search []string

	Traversals []Step

	Order      []OrderKey
	SkipCount  int
	LimitCount int // 0 means no limit
	Distinct   bool
	Projection []string

	// Segments asks the driver to return (source, rel, target) triples for
	// the final traversal hop instead of endpoint records.
	Segments bool
}

// Clone deep-copies the spec so derived queries never alias their parent.
func (s *Spec) Clone() *Spec {
	out := *s
	out.Where = append([]Cond(nil), s.Where...)
	out.Search = append([]string(nil), s.Search...)
	out.Order = append([]OrderKey(nil), s.Order...)
	out.Projection = append([]string(nil), s.Projection...)
	out.Traversals = make([]Step, len(s.Traversals))
	for i, step := range s.Traversals {
		step.Where = append([]Cond(nil), step.Where...)
		step.Search = append([]string(nil), step.Search...)
		out.Traversals[i] = step
	}
	return &out
}

// head returns the condition sink for newly composed predicates: the last
// traversal step when present, the root otherwise.
func (s *Spec) addWhere(conds ...Cond) {
	if n := len(s.Traversals); n > 0 {
		s.Traversals[n-1].Where = append(s.Traversals[n-1].Where, conds...)
		return
	}
	s.Where = append(s.Where, conds...)
}

func (s *Spec) addSearch(text string) {
	if n := len(s.Traversals); n > 0 {
		s.Traversals[n-1].Search = append(s.Traversals[n-1].Search, text)
		return
	}
	s.Search = append(s.Search, text)
}
