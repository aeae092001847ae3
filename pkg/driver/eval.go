package driver

import (
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/spf13/cast"

	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// Reserved record keys that carry entity identity rather than property
// values.
var reservedKeys = map[string]bool{
	"id":            true,
	"labels":        true,
	"type":          true,
	"start_node_id": true,
	"end_node_id":   true,
}

// evalSpec evaluates a deferred query description in memory. This is the
// embedded store's equivalent of lowering to Cypher.
func evalSpec(txn *badger.Txn, spec *query.Spec) ([]query.Record, error) {
	var records []query.Record

	switch spec.Kind {
	case query.KindNodes:
		nodes, err := scanNodes(txn, spec.Label)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			records = append(records, nodeQueryRecord(n))
		}
	case query.KindRelationships:
		if len(spec.Traversals) > 0 {
			return nil, fmt.Errorf("path navigation starts from a node query")
		}
		rels, err := scanRels(txn, spec.Label)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			records = append(records, relQueryRecord(r))
		}
	default:
		return nil, fmt.Errorf("unknown query kind %q", spec.Kind)
	}

	records = filterRecords(records, spec.Where, spec.Search)

	var segments []query.Record
	for i, step := range spec.Traversals {
		wantSegments := spec.Segments && i == len(spec.Traversals)-1
		next, segs, err := evalStep(txn, records, step, wantSegments)
		if err != nil {
			return nil, err
		}
		records, segments = next, segs
	}
	if spec.Segments {
		records = segments
	}

	if spec.Distinct {
		records = distinctRecords(records)
	}
	if len(spec.Order) > 0 {
		orderRecords(records, spec.Order)
	}
	if spec.SkipCount > 0 {
		if spec.SkipCount >= len(records) {
			records = nil
		} else {
			records = records[spec.SkipCount:]
		}
	}
	if spec.LimitCount > 0 && len(records) > spec.LimitCount {
		records = records[:spec.LimitCount]
	}
	if len(spec.Projection) > 0 {
		records = projectRecords(records, spec.Projection)
	}
	return records, nil
}

// evalStep expands one traversal hop from the current frontier, returning
// the filtered endpoint records and, when requested, the path segments.
func evalStep(txn *badger.Txn, frontier []query.Record, step query.Step, wantSegments bool) ([]query.Record, []query.Record, error) {
	var endpoints []query.Record
	var segments []query.Record

	for _, src := range frontier {
		srcID, _ := src["id"].(string)
		if srcID == "" {
			continue
		}
		relIDs, err := incidentRelIDs(txn, srcID)
		if err != nil {
			return nil, nil, err
		}
		sort.Strings(relIDs)
		for _, relID := range relIDs {
			var rel RelRecord
			if err := getJSON(txn, relKey(relID), &rel); err != nil {
				return nil, nil, err
			}
			if step.RelType != "" && rel.Type != step.RelType {
				continue
			}
			var targetID string
			switch step.Direction {
			case types.Outgoing:
				if rel.StartID != srcID {
					continue
				}
				targetID = rel.EndID
			case types.Incoming:
				if rel.EndID != srcID {
					continue
				}
				targetID = rel.StartID
			default:
				if rel.StartID == srcID {
					targetID = rel.EndID
				} else {
					targetID = rel.StartID
				}
			}
			var target NodeRecord
			if err := getJSON(txn, nodeKey(targetID), &target); err != nil {
				return nil, nil, fmt.Errorf("relationship %s endpoint %s: %w", relID, targetID, err)
			}
			if step.TargetLabel != "" && !hasLabel(target.Labels, step.TargetLabel) {
				continue
			}
			targetRec := nodeQueryRecord(&target)
			if !matchRecord(targetRec, step.Where, step.Search) {
				continue
			}
			endpoints = append(endpoints, targetRec)
			if wantSegments {
				segments = append(segments, query.Record{
					"source": src,
					"rel":    relQueryRecord(&rel),
					"target": targetRec,
				})
			}
		}
	}
	return endpoints, segments, nil
}

func nodeQueryRecord(n *NodeRecord) query.Record {
	rec := make(query.Record, len(n.Props)+2)
	for k, v := range n.Props {
		rec[k] = v
	}
	rec["id"] = n.ID
	rec["labels"] = n.Labels
	return rec
}

func relQueryRecord(r *RelRecord) query.Record {
	rec := make(query.Record, len(r.Props)+4)
	for k, v := range r.Props {
		rec[k] = v
	}
	rec["id"] = r.ID
	rec["type"] = r.Type
	rec["start_node_id"] = r.StartID
	rec["end_node_id"] = r.EndID
	return rec
}

func filterRecords(records []query.Record, conds []query.Cond, search []string) []query.Record {
	if len(conds) == 0 && len(search) == 0 {
		return records
	}
	out := records[:0:0]
	for _, rec := range records {
		if matchRecord(rec, conds, search) {
			out = append(out, rec)
		}
	}
	return out
}

func matchRecord(rec query.Record, conds []query.Cond, search []string) bool {
	for _, c := range conds {
		if !matchCond(rec, c) {
			return false
		}
	}
	for _, term := range search {
		if !matchSearch(rec, term) {
			return false
		}
	}
	return true
}

func matchCond(rec query.Record, c query.Cond) bool {
	value, ok := rec[c.Field]
	if !ok {
		return false
	}
	switch c.Op {
	case query.OpEq:
		return compareAny(value, c.Value) == 0
	case query.OpNe:
		return compareAny(value, c.Value) != 0
	case query.OpGt:
		return compareAny(value, c.Value) > 0
	case query.OpGte:
		return compareAny(value, c.Value) >= 0
	case query.OpLt:
		return compareAny(value, c.Value) < 0
	case query.OpLte:
		return compareAny(value, c.Value) <= 0
	case query.OpStartsWith:
		return strings.HasPrefix(cast.ToString(value), cast.ToString(c.Value))
	case query.OpEndsWith:
		return strings.HasSuffix(cast.ToString(value), cast.ToString(c.Value))
	case query.OpContains:
		return strings.Contains(cast.ToString(value), cast.ToString(c.Value))
	case query.OpIn:
		items, err := cast.ToSliceE(c.Value)
		if err != nil {
			return false
		}
		for _, item := range items {
			if compareAny(value, item) == 0 {
				return true
			}
		}
		return false
	}
	return false
}

// matchSearch reports whether any property value contains the term,
// case-insensitively.
func matchSearch(rec query.Record, term string) bool {
	needle := strings.ToLower(term)
	for key, value := range rec {
		if reservedKeys[key] {
			continue
		}
		var haystack string
		if s, ok := value.(string); ok {
			haystack = s
		} else {
			haystack = fmt.Sprint(value)
		}
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	return false
}

// compareAny orders two property values: numerically when both coerce to
// numbers, lexically otherwise.
func compareAny(a, b any) int {
	af, aerr := cast.ToFloat64E(a)
	bf, berr := cast.ToFloat64E(b)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}

func orderRecords(records []query.Record, keys []query.OrderKey) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			c := compareAny(records[i][k.Field], records[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func distinctRecords(records []query.Record) []query.Record {
	seen := map[string]bool{}
	out := records[:0:0]
	for _, rec := range records {
		id, _ := rec["id"].(string)
		if id == "" {
			id = fmt.Sprint(rec)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, rec)
	}
	return out
}

func projectRecords(records []query.Record, fields []string) []query.Record {
	out := make([]query.Record, len(records))
	for i, rec := range records {
		proj := make(query.Record, len(fields))
		for _, f := range fields {
			if v, ok := rec[f]; ok {
				proj[f] = v
			}
		}
		out[i] = proj
	}
	return out
}
