package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
)

const (
	conceptPrefix      = "DC"
	atomPrefix         = "DA"
	relationshipPrefix = "DR"
	synonymRel         = "has_synonym"
)

var _ store.Exporter = (*Client)(nil)

// statement is one parameterised UNWIND query together with its rows.
type statement struct {
	cypher string
	rows   []map[string]any
	// concepts is the number of concepts the statement creates.
	concepts int
}

type plan struct {
	labels     []string
	statements []statement
	concepts   int
}

// quote escapes a label or relationship type for use in Cypher.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func atomLabel(conceptType string) string {
	return conceptType + "_ATOM"
}

// propValue converts v into a value Neo4j can store as a property. Nested
// maps are stored as JSON text.
func propValue(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string, bool, int64, float64:
		return x, true
	case int:
		return int64(x), true
	case float32:
		return float64(x), true
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if pv, ok := propValue(e); ok {
				out = append(out, pv)
			}
		}
		return out, true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x), true
		}
		return string(b), true
	}
}

// attributeProps maps attribute names to values, the last value of a name
// wins.
func attributeProps(attrs []*common.Attribute) map[string]any {
	props := make(map[string]any, len(attrs)+2)
	for _, attr := range attrs {
		props[attr.Name] = attr.Value
	}
	return props
}

func conceptNode(c *common.Concept) map[string]any {
	props := attributeProps(c.Attributes)
	props["ui"] = c.ID.WithPrefix(conceptPrefix).String()
	props["name"] = c.PreferredTerm()
	return props
}

func atomNode(a *common.Atom) map[string]any {
	props := make(map[string]any, len(a.Extra)+5)
	for k, v := range a.Extra {
		if pv, ok := propValue(v); ok {
			props[k] = pv
		}
	}
	props["ui"] = a.ID.WithPrefix(atomPrefix).String()
	props["name"] = a.Term
	props["src"] = a.Source
	props["src_id"] = a.SourceID
	props["is_preferred"] = a.IsPreferred
	return props
}

// atomKey identifies an atom below its concept. Atom UIs are numbered per
// run, so they cannot tell atoms of separate exports apart.
func atomKey(a *common.Atom) string {
	k := a.Key()
	return strings.Join([]string{k.Term, k.Source, k.SourceID, k.TermType, k.Extra}, "\x1f")
}

type edgeKey struct {
	from string
	name string
	to   string
}

// buildPlan turns concepts, and every concept reachable from them, into
// UNWIND statements grouped by label. Statements hold at most batch rows.
func buildPlan(concepts []*common.Concept, batch int) plan {
	all := store.Reachable(concepts)

	nodes := make(map[string][]map[string]any)
	atoms := make(map[string][]map[string]any)
	edges := make(map[edgeKey][]map[string]any)
	for _, c := range all {
		ui := c.ID.WithPrefix(conceptPrefix).String()
		nodes[c.Type] = append(nodes[c.Type], conceptNode(c))
		for _, a := range c.Atoms() {
			atoms[c.Type] = append(atoms[c.Type], map[string]any{
				"concept": ui,
				"key":     atomKey(a),
				"props":   atomNode(a),
			})
		}
		for _, rel := range c.Relationships {
			obj := rel.Object.Concept()
			if obj == nil {
				continue
			}
			props := attributeProps(rel.Attributes)
			props["ui"] = rel.ID.WithPrefix(relationshipPrefix).String()
			props["src"] = rel.Source
			key := edgeKey{from: c.Type, name: rel.Name, to: obj.Type}
			edges[key] = append(edges[key], map[string]any{
				"from":  ui,
				"to":    obj.ID.WithPrefix(conceptPrefix).String(),
				"props": props,
			})
		}
	}

	p := plan{concepts: len(all)}
	types := sortedKeys(nodes)
	p.labels = types

	for _, t := range types {
		cypher := fmt.Sprintf("UNWIND $rows AS r\nMERGE (c:%s {ui: r.ui})\nSET c += r", quote(t))
		p.statements = appendBatches(p.statements, cypher, nodes[t], batch, true)
	}
	for _, t := range types {
		cypher := fmt.Sprintf("UNWIND $rows AS r\nMATCH (c:%s {ui: r.concept})\nMERGE (c)-[:%s]->(a:%s {key: r.key})\nSET a += r.props",
			quote(t), quote(synonymRel), quote(atomLabel(t)))
		p.statements = appendBatches(p.statements, cypher, atoms[t], batch, false)
	}

	keys := make([]edgeKey, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b edgeKey) int {
		return strings.Compare(a.from+"\x00"+a.name+"\x00"+a.to, b.from+"\x00"+b.name+"\x00"+b.to)
	})
	for _, k := range keys {
		cypher := fmt.Sprintf("UNWIND $rows AS r\nMATCH (a:%s {ui: r.from})\nMATCH (b:%s {ui: r.to})\nMERGE (a)-[e:%s {src: r.props.src}]->(b)\nSET e += r.props",
			quote(k.from), quote(k.to), quote(k.name))
		p.statements = appendBatches(p.statements, cypher, edges[k], batch, false)
	}
	return p
}

func appendBatches(out []statement, cypher string, rows []map[string]any, batch int, concepts bool) []statement {
	_ = store.ChunkRange(len(rows), batch, func(start, end int) error {
		s := statement{cypher: cypher, rows: rows[start:end]}
		if concepts {
			s.concepts = end - start
		}
		out = append(out, s)
		return nil
	})
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Export writes concepts with their atoms, attributes and relationships to
// the graph. Concept nodes are labelled with their type and merged on
// their UI. Atom nodes are labelled "<TYPE>_ATOM" and merged below their
// concept through has_synonym edges, relationships on their source.
func (c *Client) Export(ctx context.Context, concepts []*common.Concept) error {
	start := time.Now()
	p := buildPlan(concepts, c.batchSize)

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, label := range p.labels {
		query := fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.ui IS UNIQUE", quote(label))
		res, err := session.Run(ctx, query, nil)
		if err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "label", label, "err", err)
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "label", label, "err", err)
		}
	}

	done, logged := 0, 0
	for _, st := range p.statements {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, st.cypher, map[string]any{"rows": st.rows})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to export to neo4j: %w", err)
		}
		done += st.concepts
		if st.concepts > 0 && done-logged >= c.progressEvery {
			logger.Info(fmt.Sprintf("[Neo4j] %d/%d", done, p.concepts))
			logged = done
		}
	}

	logger.Info("[Neo4j] Export finished", "concepts", p.concepts, "statements", len(p.statements), "duration", time.Since(start))
	return nil
}
