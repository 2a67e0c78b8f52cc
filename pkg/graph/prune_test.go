package graph

import (
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func TestRemoveSource(t *testing.T) {
	ids := common.NewIDAllocator()
	onlyNMCD := newConcept(t, ids, "SDSI", testAtom{term: "melatonin", src: "NMCD"})
	mixed := newConcept(t, ids, "SDSI",
		testAtom{term: "iron", src: "DSLD"},
		testAtom{term: "ferrous sulfate", src: "NMCD"},
	)
	product := newConcept(t, ids, "DSP", testAtom{term: "multi", src: "DSLD"})

	mixed.AddAttribute(attribute(t, ids, "background", "mineral", "NMCD"))
	mixed.AddAttribute(attribute(t, ids, "form", "tablet", "DSLD"))
	relate(t, ids, product, "has_ingredient", onlyNMCD)
	toMixed := relate(t, ids, product, "has_ingredient", mixed)
	toMixed.Source = "DSLD"
	toMixed.AddAttribute(attribute(t, ids, "amount", "10mg", "DSLD"))
	toMixed.AddAttribute(attribute(t, ids, "note", "x", "nmcd"))

	out, stats := RemoveSource([]*common.Concept{onlyNMCD, mixed, product}, "NMCD")

	if len(out) != 2 {
		t.Fatalf("expected 2 concepts left, got %d", len(out))
	}
	if stats.Concepts != 1 || stats.Atoms != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	gotMixed := out[0]
	if gotMixed.NumAtoms() != 1 || gotMixed.Atoms()[0].Term != "iron" {
		t.Fatalf("expected only the DSLD atom left, got %v", gotMixed.Atoms())
	}
	if len(gotMixed.Attributes) != 1 || gotMixed.Attributes[0].Name != "form" {
		t.Fatalf("expected NMCD attribute removed, got %v", gotMixed.Attributes)
	}
	if gotMixed.Attributes[0].Subject != gotMixed {
		t.Fatal("attributes must point at the new concept value")
	}

	gotProduct := out[1]
	if len(gotProduct.Relationships) != 1 {
		t.Fatalf("expected relationship to the dropped concept removed, got %d", len(gotProduct.Relationships))
	}
	rel := gotProduct.Relationships[0]
	if rel.Object.Concept() != gotMixed {
		t.Fatal("relationship must point at the new value of its object")
	}
	if len(rel.Attributes) != 1 || rel.Attributes[0].Name != "amount" {
		t.Fatalf("expected NMCD relationship attribute removed, got %v", rel.Attributes)
	}
	if stats.Relationships != 1 || stats.Attributes != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
