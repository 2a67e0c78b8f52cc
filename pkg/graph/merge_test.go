package graph

import (
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func TestMergePrefix(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"NMCD", "DSLD", "NMCD_DSLD"},
		{"NMCD_DSLD", "DSLD", "NMCD_DSLD"},
		{"DSLD", "NMCD_DSLD_NHPID", "DSLD_NMCD_NHPID"},
		{"DC", "DC", "DC"},
		{"", "DC", "DC"},
	}
	for _, tt := range tests {
		if got := MergePrefix(tt.a, tt.b); got != tt.want {
			t.Errorf("MergePrefix(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	ids := common.NewIDAllocator()
	a := terms(t, ids, "SDSI", "vitamin c", "ascorbic acid")
	b := terms(t, ids, "SDSI", "ascorbic acid", "vit c")
	a.ID = a.ID.WithPrefix("NMCD")
	b.ID = b.ID.WithPrefix("DSLD")

	a.AddAttribute(attribute(t, ids, "background", "antioxidant", "NMCD"))
	b.AddAttribute(attribute(t, ids, "background", "antioxidant", "NMCD"))
	dose := attribute(t, ids, "dosage", "500mg", "DSLD")
	b.AddAttribute(dose)

	target := terms(t, ids, "DIS", "scurvy")
	relate(t, ids, a, "is_effective_for", target)
	relB := relate(t, ids, b, "is_effective_for", target)
	relAttr := attribute(t, ids, "rating", "A", "DSLD")
	relB.AddAttribute(relAttr)
	relate(t, ids, b, "interacts_with", target)

	merged := Merge(a, b)

	if merged == a || merged == b {
		t.Fatal("merge must return a new concept value")
	}
	if merged.ID.Prefix != "NMCD_DSLD" || merged.ID.Number != a.ID.Number {
		t.Fatalf("unexpected merged id %s", merged.ID)
	}
	if merged.NumAtoms() != 3 {
		t.Fatalf("expected 3 atoms, got %d", merged.NumAtoms())
	}
	if merged.NumAtoms() < max(a.NumAtoms(), b.NumAtoms()) {
		t.Fatal("merged concept lost atoms")
	}
	if len(merged.Attributes) != 2 {
		t.Fatalf("expected equal attributes to collapse, got %d", len(merged.Attributes))
	}
	if len(merged.Relationships) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(merged.Relationships))
	}
	for _, attr := range merged.Attributes {
		if attr.Subject != merged {
			t.Fatalf("attribute %s not re-pointed", attr.Name)
		}
	}
	for _, rel := range merged.Relationships {
		if rel.Subject != merged {
			t.Fatalf("relationship %s not re-pointed", rel.Name)
		}
	}
	if dose.Subject != merged {
		t.Fatal("attributes of b must be shared, not copied")
	}
	if relAttr.Subject != relB {
		t.Fatal("relationship attributes keep pointing at their relationship")
	}
	if a.NumAtoms() != 2 {
		t.Fatal("merge must not change the atoms of its inputs")
	}

	for i, x := range merged.Atoms() {
		for _, y := range merged.Atoms()[i+1:] {
			if x.Equal(y) {
				t.Fatalf("duplicate atom %s", x)
			}
		}
	}
}
