package pgx

import (
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func sampleConcepts(t *testing.T) []*common.Concept {
	t.Helper()
	ids := common.NewIDAllocator()

	atom := func(term, src string, extra map[string]any) *common.Atom {
		a, err := common.NewAtom(ids, common.NewAtomParams{Term: term, Source: src, SourceID: term, TermType: "SY", Extra: extra})
		if err != nil {
			t.Fatal(err)
		}
		return a
	}
	concept := func(typ string, atoms ...*common.Atom) *common.Concept {
		c, err := common.NewConcept(ids, common.NewConceptParams{Type: typ, Atoms: atoms})
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	attr := func(name, value string) *common.Attribute {
		a, err := common.NewAttribute(ids, common.NewAttributeParams{Name: name, Value: value, Source: "NMCD"})
		if err != nil {
			t.Fatal(err)
		}
		return a
	}

	ingredient := concept("SDSI", atom("vitamin c", "NMCD", nil), atom("ascorbic acid", "DSLD", map[string]any{"linking_score": 0.75}))
	ingredient.AddAttribute(attr("background", "an essential vitamin"))
	product := concept("DSP", atom("multi vitamin", "DSLD", nil))

	rel, err := common.NewRelationship(ids, common.NewRelationshipParams{Name: "has_ingredient", Object: common.ConceptObject(ingredient), Source: "DSLD"})
	if err != nil {
		t.Fatal(err)
	}
	rel.AddAttribute(attr("amount", "100 mg"))
	product.AddRelationship(rel)

	dangling, _ := common.NewRelationship(ids, common.NewRelationshipParams{Name: "has_ingredient", Object: common.RefObject("DC0009999"), Source: "DSLD"})
	product.AddRelationship(dangling)

	return []*common.Concept{ingredient, product}
}

func TestBuildRows(t *testing.T) {
	rows, err := buildRows(sampleConcepts(t))
	if err != nil {
		t.Fatalf("buildRows: %v", err)
	}
	if len(rows.concepts) != 2 || len(rows.atoms) != 3 || len(rows.relationships) != 2 || len(rows.attributes) != 2 {
		t.Fatalf("unexpected row counts: %d concepts, %d atoms, %d relationships, %d attributes",
			len(rows.concepts), len(rows.atoms), len(rows.relationships), len(rows.attributes))
	}
	if rows.attributes[0].RelPos != conceptAttr {
		t.Fatalf("expected concept attribute first, got %+v", rows.attributes[0])
	}
	if rows.attributes[1].ConceptPos != 1 || rows.attributes[1].RelPos != 0 {
		t.Fatalf("expected relationship attribute on product, got %+v", rows.attributes[1])
	}
	if rows.relationships[0].Object != rows.concepts[0].UI {
		t.Fatalf("expected resolved object %s, got %s", rows.concepts[0].UI, rows.relationships[0].Object)
	}
	if string(rows.atoms[1].Extra) != `{"linking_score":0.75}` {
		t.Fatalf("unexpected extras %s", rows.atoms[1].Extra)
	}
	if got := copyRows("kb", rows.atoms)[0]; len(got) != len(atomColumns) {
		t.Fatalf("atom values do not match columns: %d vs %d", len(got), len(atomColumns))
	}
}

func TestAssembleRoundTrip(t *testing.T) {
	original := sampleConcepts(t)
	rows, err := buildRows(original)
	if err != nil {
		t.Fatal(err)
	}

	ids := common.NewIDAllocator()
	loaded, err := assemble(rows, ids, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(loaded) != len(original) {
		t.Fatalf("expected %d concepts, got %d", len(original), len(loaded))
	}
	for i := range original {
		if !loaded[i].Equal(original[i]) {
			t.Errorf("concept %d differs after round trip", i)
		}
		if loaded[i].ID != original[i].ID {
			t.Errorf("concept %d: id %s, want %s", i, loaded[i].ID, original[i].ID)
		}
		if len(loaded[i].Attributes) != len(original[i].Attributes) {
			t.Errorf("concept %d: attributes lost", i)
		}
	}

	dangling := common.ResolveRelationships(loaded, common.IndexByID(loaded))
	if len(dangling) != 1 || dangling[0].Object.Ref() != "DC0009999" {
		t.Fatalf("expected one dangling relationship, got %v", dangling)
	}
	rel := loaded[1].Relationships[0]
	if rel.Object.Concept() != loaded[0] {
		t.Fatalf("relationship not resolved to loaded ingredient")
	}
	if len(rel.Attributes) != 1 || rel.Attributes[0].Value != "100 mg" {
		t.Fatalf("relationship attributes lost: %v", rel.Attributes)
	}
	if score := loaded[0].Atoms()[1].Extra["linking_score"]; score != 0.75 {
		t.Fatalf("unexpected linking score %v", score)
	}

	if ids.Current(common.KindConcept) < original[1].ID.Number {
		t.Fatalf("allocator not advanced past stored concept ids")
	}
}

func TestAssembleRejectsEmptyConcept(t *testing.T) {
	rows := rowSet{concepts: []conceptRow{{Pos: 0, UI: "DC0000001", Type: "SDSI"}}}
	if _, err := assemble(rows, common.NewIDAllocator(), nil); err == nil {
		t.Fatal("expected error for concept without atoms")
	}
}
