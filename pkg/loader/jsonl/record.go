package jsonl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"

	"github.com/invopop/jsonschema"
)

// Record is one persisted concept, stored as a single line of JSON.
type Record struct {
	UI            string               `json:"ui" validate:"required"`
	ConceptType   string               `json:"concept_type" validate:"required"`
	Synonyms      []AtomRecord         `json:"synonyms" validate:"dive"`
	Attributes    []AttributeRecord    `json:"attributes" validate:"dive"`
	Relationships []RelationshipRecord `json:"relationships" validate:"dive"`
}

// AtomRecord is a synonym of a Record. Any key besides the fixed ones is
// kept as an extra attribute of the atom.
type AtomRecord struct {
	Term        string         `json:"term" validate:"required"`
	Source      string         `json:"src" validate:"required"`
	SourceID    string         `json:"src_id"`
	TermType    string         `json:"term_type"`
	IsPreferred bool           `json:"is_preferred"`
	Extra       map[string]any `json:"-"`
}

type AttributeRecord struct {
	Name   string    `json:"atr_name" validate:"required"`
	Value  AttrValue `json:"atr_value"`
	Source string    `json:"src" validate:"required"`
}

type RelationshipRecord struct {
	Name       string            `json:"rel_name" validate:"required"`
	Object     string            `json:"object" validate:"required"`
	Source     string            `json:"src" validate:"required"`
	Attributes []AttributeRecord `json:"attributes" validate:"dive"`
}

// AttrValue is an attribute value. Numbers are accepted and kept in their
// literal form.
type AttrValue string

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty attribute value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = AttrValue(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = AttrValue(n.String())
		return nil
	default:
		return fmt.Errorf("attribute value must be a string or a number, got %s", data)
	}
}

func (AttrValue) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "number"}},
	}
}

var atomFields = []string{"term", "src", "src_id", "term_type", "is_preferred"}

func (a *AtomRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	targets := map[string]any{
		"term":         &a.Term,
		"src":          &a.Source,
		"src_id":       &a.SourceID,
		"term_type":    &a.TermType,
		"is_preferred": &a.IsPreferred,
	}
	for key, value := range raw {
		if target, ok := targets[key]; ok {
			if err := json.Unmarshal(value, target); err != nil {
				return fmt.Errorf("synonym field %q: %w", key, err)
			}
			continue
		}
		var extra any
		if err := json.Unmarshal(value, &extra); err != nil {
			return fmt.Errorf("synonym field %q: %w", key, err)
		}
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[key] = extra
	}
	return nil
}

// MarshalJSON writes the fixed fields first, followed by the extra
// attributes in key order.
func (a AtomRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	values := []any{a.Term, a.Source, a.SourceID, a.TermType, a.IsPreferred}
	for i, key := range atomFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeField(&buf, key, values[i]); err != nil {
			return nil, err
		}
	}
	for _, key := range slices.Sorted(maps.Keys(a.Extra)) {
		if slices.Contains(atomFields, key) {
			continue
		}
		buf.WriteByte(',')
		if err := writeField(&buf, key, a.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func (AtomRecord) JSONSchemaExtend(s *jsonschema.Schema) {
	s.AdditionalProperties = jsonschema.TrueSchema
	s.Required = []string{"term", "src"}
}

// FromConcept converts a concept into its persisted form. Atoms are sorted
// by lowercased term, source, source id and term type; attributes and
// relationships keep their order.
func FromConcept(c *common.Concept) Record {
	atoms := c.Atoms()
	slices.SortStableFunc(atoms, func(a, b *common.Atom) int {
		ka, kb := a.Key(), b.Key()
		return cmpKeys(
			[]string{ka.Term, ka.Source, ka.SourceID, ka.TermType},
			[]string{kb.Term, kb.Source, kb.SourceID, kb.TermType},
		)
	})

	rec := Record{
		UI:            c.ID.String(),
		ConceptType:   c.Type,
		Synonyms:      make([]AtomRecord, 0, len(atoms)),
		Attributes:    fromAttributes(c.Attributes),
		Relationships: make([]RelationshipRecord, 0, len(c.Relationships)),
	}
	for _, a := range atoms {
		rec.Synonyms = append(rec.Synonyms, AtomRecord{
			Term:        a.Term,
			Source:      a.Source,
			SourceID:    a.SourceID,
			TermType:    a.TermType,
			IsPreferred: a.IsPreferred,
			Extra:       a.Extra,
		})
	}
	for _, rel := range c.Relationships {
		rec.Relationships = append(rec.Relationships, RelationshipRecord{
			Name:       rel.Name,
			Object:     rel.Object.String(),
			Source:     rel.Source,
			Attributes: fromAttributes(rel.Attributes),
		})
	}
	return rec
}

func fromAttributes(attrs []*common.Attribute) []AttributeRecord {
	out := make([]AttributeRecord, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, AttributeRecord{
			Name:   attr.Name,
			Value:  AttrValue(attr.Value),
			Source: attr.Source,
		})
	}
	return out
}

func cmpKeys(a, b []string) int {
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
