package pgx

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

// conceptAttr marks an attribute owned by the concept itself.
const conceptAttr = -1

type conceptRow struct {
	Pos  int
	UI   string
	Type string
}

type atomRow struct {
	ConceptPos  int
	Pos         int
	UI          string
	Term        string
	Source      string
	SourceID    string
	TermType    string
	IsPreferred bool
	Extra       []byte
}

type attributeRow struct {
	ConceptPos int
	RelPos     int
	Pos        int
	UI         string
	Name       string
	Value      string
	Source     string
}

type relationshipRow struct {
	ConceptPos int
	Pos        int
	UI         string
	Name       string
	Object     string
	Source     string
}

var (
	conceptColumns      = []string{"kb", "pos", "ui", "concept_type"}
	atomColumns         = []string{"kb", "concept_pos", "pos", "ui", "term", "src", "src_id", "term_type", "is_preferred", "extra"}
	attributeColumns    = []string{"kb", "concept_pos", "rel_pos", "pos", "ui", "name", "value", "src"}
	relationshipColumns = []string{"kb", "concept_pos", "pos", "ui", "name", "object", "src"}
)

// rowSet is the relational form of a knowledge base. Elements are keyed
// by their position so duplicate identifiers survive a round trip.
type rowSet struct {
	concepts      []conceptRow
	atoms         []atomRow
	attributes    []attributeRow
	relationships []relationshipRow
}

func buildRows(concepts []*common.Concept) (rowSet, error) {
	var rows rowSet
	rows.concepts = make([]conceptRow, 0, len(concepts))
	for ci, c := range concepts {
		rows.concepts = append(rows.concepts, conceptRow{Pos: ci, UI: c.ID.String(), Type: c.Type})

		for ai, a := range c.Atoms() {
			var extra []byte
			if len(a.Extra) > 0 {
				b, err := json.Marshal(a.Extra)
				if err != nil {
					return rowSet{}, fmt.Errorf("failed to encode extras of atom %s: %w", a.ID, err)
				}
				extra = b
			}
			rows.atoms = append(rows.atoms, atomRow{
				ConceptPos:  ci,
				Pos:         ai,
				UI:          a.ID.String(),
				Term:        util.SanitizePostgresText(a.Term),
				Source:      a.Source,
				SourceID:    a.SourceID,
				TermType:    a.TermType,
				IsPreferred: a.IsPreferred,
				Extra:       extra,
			})
		}

		rows.attributes = appendAttributeRows(rows.attributes, ci, conceptAttr, c.Attributes)
		for ri, rel := range c.Relationships {
			rows.relationships = append(rows.relationships, relationshipRow{
				ConceptPos: ci,
				Pos:        ri,
				UI:         rel.ID.String(),
				Name:       rel.Name,
				Object:     rel.Object.String(),
				Source:     rel.Source,
			})
			rows.attributes = appendAttributeRows(rows.attributes, ci, ri, rel.Attributes)
		}
	}
	return rows, nil
}

func appendAttributeRows(out []attributeRow, conceptPos, relPos int, attrs []*common.Attribute) []attributeRow {
	for i, attr := range attrs {
		out = append(out, attributeRow{
			ConceptPos: conceptPos,
			RelPos:     relPos,
			Pos:        i,
			UI:         attr.ID.String(),
			Name:       attr.Name,
			Value:      util.SanitizePostgresText(attr.Value),
			Source:     attr.Source,
		})
	}
	return out
}

func (r conceptRow) values(kb string) []any {
	return []any{kb, r.Pos, r.UI, r.Type}
}

func (r atomRow) values(kb string) []any {
	return []any{kb, r.ConceptPos, r.Pos, r.UI, r.Term, r.Source, r.SourceID, r.TermType, r.IsPreferred, r.Extra}
}

func (r attributeRow) values(kb string) []any {
	return []any{kb, r.ConceptPos, r.RelPos, r.Pos, r.UI, r.Name, r.Value, r.Source}
}

func (r relationshipRow) values(kb string) []any {
	return []any{kb, r.ConceptPos, r.Pos, r.UI, r.Name, r.Object, r.Source}
}

func copyRows[T interface{ values(string) []any }](kb string, rows []T) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.values(kb)
	}
	return out
}

type relKey struct {
	concept int
	rel     int
}

// assemble rebuilds concepts from rows. Every stored identifier is
// observed on ids. Relationship objects stay unresolved references.
func assemble(rows rowSet, ids *common.IDAllocator, vocab *common.Vocabulary) ([]*common.Concept, error) {
	atoms := make(map[int][]*common.Atom, len(rows.concepts))
	for _, r := range rows.atoms {
		a, err := common.NewAtom(ids, common.NewAtomParams{
			ID:          r.UI,
			Term:        r.Term,
			Source:      r.Source,
			SourceID:    r.SourceID,
			TermType:    r.TermType,
			IsPreferred: r.IsPreferred,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load atom %s: %w", r.UI, err)
		}
		if len(r.Extra) > 0 {
			if err := json.Unmarshal(r.Extra, &a.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode extras of atom %s: %w", r.UI, err)
			}
		}
		atoms[r.ConceptPos] = append(atoms[r.ConceptPos], a)
	}

	attrs := make(map[relKey][]*common.Attribute)
	for _, r := range rows.attributes {
		attr, err := common.NewAttribute(ids, common.NewAttributeParams{
			ID:     r.UI,
			Name:   r.Name,
			Value:  r.Value,
			Source: r.Source,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load attribute %s: %w", r.UI, err)
		}
		key := relKey{concept: r.ConceptPos, rel: r.RelPos}
		attrs[key] = append(attrs[key], attr)
	}

	rels := make(map[int][]relationshipRow)
	for _, r := range rows.relationships {
		rels[r.ConceptPos] = append(rels[r.ConceptPos], r)
	}

	concepts := make([]*common.Concept, 0, len(rows.concepts))
	for _, r := range rows.concepts {
		c, err := common.NewConcept(ids, common.NewConceptParams{
			ID:         r.UI,
			Type:       r.Type,
			Atoms:      atoms[r.Pos],
			Vocabulary: vocab,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load concept %s: %w", r.UI, err)
		}
		for _, attr := range attrs[relKey{concept: r.Pos, rel: conceptAttr}] {
			c.AddAttribute(attr)
		}
		for _, rr := range rels[r.Pos] {
			rel, err := common.NewRelationship(ids, common.NewRelationshipParams{
				ID:     rr.UI,
				Name:   rr.Name,
				Object: common.RefObject(rr.Object),
				Source: rr.Source,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to load relationship %s: %w", rr.UI, err)
			}
			for _, attr := range attrs[relKey{concept: r.Pos, rel: rr.Pos}] {
				rel.AddAttribute(attr)
			}
			c.AddRelationship(rel)
		}
		concepts = append(concepts, c)
	}
	return concepts, nil
}
