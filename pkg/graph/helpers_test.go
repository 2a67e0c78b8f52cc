package graph

import (
	"strings"
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

type testAtom struct {
	term      string
	src       string
	preferred bool
	extra     map[string]any
}

func newConcept(t *testing.T, ids *common.IDAllocator, typ string, atoms ...testAtom) *common.Concept {
	t.Helper()
	out := make([]*common.Atom, 0, len(atoms))
	for i, a := range atoms {
		src := a.src
		if src == "" {
			src = "NMCD"
		}
		atom, err := common.NewAtom(ids, common.NewAtomParams{
			Term:        a.term,
			Source:      src,
			SourceID:    strings.ToLower(a.term),
			TermType:    "SY",
			IsPreferred: a.preferred || i == 0,
			Extra:       a.extra,
		})
		if err != nil {
			t.Fatalf("NewAtom: %v", err)
		}
		out = append(out, atom)
	}
	c, err := common.NewConcept(ids, common.NewConceptParams{Type: typ, Atoms: out})
	if err != nil {
		t.Fatalf("NewConcept: %v", err)
	}
	return c
}

func terms(t *testing.T, ids *common.IDAllocator, typ string, ts ...string) *common.Concept {
	t.Helper()
	atoms := make([]testAtom, len(ts))
	for i, term := range ts {
		atoms[i] = testAtom{term: term}
	}
	return newConcept(t, ids, typ, atoms...)
}

func relate(t *testing.T, ids *common.IDAllocator, from *common.Concept, name string, to *common.Concept) *common.Relationship {
	t.Helper()
	rel, err := common.NewRelationship(ids, common.NewRelationshipParams{
		Name:   name,
		Object: common.ConceptObject(to),
		Source: "NMCD",
	})
	if err != nil {
		t.Fatalf("NewRelationship: %v", err)
	}
	from.AddRelationship(rel)
	return rel
}

func attribute(t *testing.T, ids *common.IDAllocator, name, value, src string) *common.Attribute {
	t.Helper()
	attr, err := common.NewAttribute(ids, common.NewAttributeParams{Name: name, Value: value, Source: src})
	if err != nil {
		t.Fatalf("NewAttribute: %v", err)
	}
	return attr
}

func vitaminExample(t *testing.T) []*common.Concept {
	ids := common.NewIDAllocator()
	return []*common.Concept{
		terms(t, ids, "SDSI", "vitamin c", "ascorbic acid"),
		terms(t, ids, "SDSI", "Ascorbic Acid", "vit C"),
		terms(t, ids, "SDSI", "turmeric"),
	}
}
