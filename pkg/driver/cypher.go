package driver

import (
	"fmt"
	"strings"

	"github.com/soundprediction/graphmodel/pkg/query"
	"github.com/soundprediction/graphmodel/pkg/types"
)

// CompileCypher lowers a deferred query description to a single Cypher
// statement with parameters. It is a pure function of the spec.
func CompileCypher(spec *query.Spec) (string, map[string]any, error) {
	c := &cypherBuilder{params: map[string]any{}}
	return c.compile(spec)
}

type cypherBuilder struct {
	params map[string]any
	n      int
}

func (c *cypherBuilder) param(v any) string {
	name := fmt.Sprintf("p%d", c.n)
	c.n++
	c.params[name] = v
	return "$" + name
}

func (c *cypherBuilder) compile(spec *query.Spec) (string, map[string]any, error) {
	var sb strings.Builder
	var alias string

	switch spec.Kind {
	case query.KindNodes:
		alias = "n"
		sb.WriteString("MATCH (n")
		if spec.Label != "" {
			sb.WriteString(":" + escapeLabel(spec.Label))
		}
		sb.WriteString(")")
	case query.KindRelationships:
		if len(spec.Traversals) > 0 {
			return "", nil, fmt.Errorf("path navigation starts from a node query")
		}
		alias = "r"
		sb.WriteString("MATCH (rs)-[r")
		if spec.Label != "" {
			sb.WriteString(":" + escapeLabel(spec.Label))
		}
		sb.WriteString("]->(re)")
	default:
		return "", nil, fmt.Errorf("unknown query kind %q", spec.Kind)
	}

	if where := c.whereClause(alias, spec.Where, spec.Search); where != "" {
		sb.WriteString("\nWHERE " + where)
	}

	// Each traversal hop adds a MATCH over the next relationship and
	// endpoint; composed conditions constrain the endpoint alias.
	prev := alias
	var lastRel string
	for i, step := range spec.Traversals {
		rel := fmt.Sprintf("r%d", i)
		target := fmt.Sprintf("t%d", i)
		lastRel = rel
		relPattern := rel
		if step.RelType != "" {
			relPattern += ":" + escapeLabel(step.RelType)
		}
		targetPattern := target
		if step.TargetLabel != "" {
			targetPattern += ":" + escapeLabel(step.TargetLabel)
		}
		switch step.Direction {
		case types.Incoming:
			sb.WriteString(fmt.Sprintf("\nMATCH (%s)<-[%s]-(%s)", prev, relPattern, targetPattern))
		case types.Outgoing:
			sb.WriteString(fmt.Sprintf("\nMATCH (%s)-[%s]->(%s)", prev, relPattern, targetPattern))
		default:
			sb.WriteString(fmt.Sprintf("\nMATCH (%s)-[%s]-(%s)", prev, relPattern, targetPattern))
		}
		if where := c.whereClause(target, step.Where, step.Search); where != "" {
			sb.WriteString("\nWHERE " + where)
		}
		prev = target
	}

	distinct := ""
	if spec.Distinct {
		distinct = "DISTINCT "
	}
	switch {
	case spec.Segments && len(spec.Traversals) > 0:
		source := "n"
		if len(spec.Traversals) > 1 {
			source = fmt.Sprintf("t%d", len(spec.Traversals)-2)
		}
		sb.WriteString(fmt.Sprintf("\nRETURN %s%s AS source, %s AS rel, %s AS target", distinct, source, lastRel, prev))
	case len(spec.Projection) > 0:
		items := make([]string, len(spec.Projection))
		for i, f := range spec.Projection {
			items[i] = fmt.Sprintf("%s.%s AS %s", prev, escapeLabel(f), escapeLabel(f))
		}
		sb.WriteString("\nRETURN " + distinct + strings.Join(items, ", "))
	case spec.Kind == query.KindRelationships:
		sb.WriteString(fmt.Sprintf("\nRETURN %s%s, rs.id AS start_node_id, re.id AS end_node_id", distinct, alias))
	default:
		sb.WriteString(fmt.Sprintf("\nRETURN %s%s", distinct, prev))
	}

	for i, k := range spec.Order {
		if i == 0 {
			sb.WriteString("\nORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(prev + "." + escapeLabel(k.Field))
		if k.Desc {
			sb.WriteString(" DESC")
		}
	}
	if spec.SkipCount > 0 {
		sb.WriteString(fmt.Sprintf("\nSKIP %d", spec.SkipCount))
	}
	if spec.LimitCount > 0 {
		sb.WriteString(fmt.Sprintf("\nLIMIT %d", spec.LimitCount))
	}
	return sb.String(), c.params, nil
}

func (c *cypherBuilder) whereClause(alias string, conds []query.Cond, search []string) string {
	var parts []string
	for _, cond := range conds {
		expr, ok := c.condExpr(alias, cond)
		if !ok {
			continue
		}
		parts = append(parts, expr)
	}
	for _, term := range search {
		p := c.param(strings.ToLower(term))
		parts = append(parts, fmt.Sprintf(
			"ANY(k IN keys(%s) WHERE toLower(toString(%s[k])) CONTAINS %s)", alias, alias, p))
	}
	return strings.Join(parts, " AND ")
}

func (c *cypherBuilder) condExpr(alias string, cond query.Cond) (string, bool) {
	field := alias + "." + escapeLabel(cond.Field)
	p := c.param(cond.Value)
	switch cond.Op {
	case query.OpEq:
		return field + " = " + p, true
	case query.OpNe:
		return field + " <> " + p, true
	case query.OpGt:
		return field + " > " + p, true
	case query.OpGte:
		return field + " >= " + p, true
	case query.OpLt:
		return field + " < " + p, true
	case query.OpLte:
		return field + " <= " + p, true
	case query.OpStartsWith:
		return field + " STARTS WITH " + p, true
	case query.OpEndsWith:
		return field + " ENDS WITH " + p, true
	case query.OpContains:
		return field + " CONTAINS " + p, true
	case query.OpIn:
		return field + " IN " + p, true
	}
	return "", false
}

// escapeLabel backtick-quotes an identifier when it is not a plain name.
func escapeLabel(s string) string {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	}
	return s
}
