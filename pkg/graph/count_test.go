package graph

import (
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func TestCount(t *testing.T) {
	ids := common.NewIDAllocator()
	iron := newConcept(t, ids, "SDSI",
		testAtom{term: "iron", src: "NMCD"},
		testAtom{term: "fe", src: "DSLD"},
	)
	zinc := newConcept(t, ids, "SDSI", testAtom{term: "zinc", src: "NMCD"})
	anemia := newConcept(t, ids, "DIS", testAtom{term: "anemia", src: "MEDDRA"})
	iron.AddAttribute(attribute(t, ids, "background", "mineral", "NMCD"))
	relate(t, ids, iron, "is_effective_for", anemia)

	counts := Count([]*common.Concept{iron, zinc, anemia})

	if counts.Concepts != 3 || counts.ConceptTypes["SDSI"] != 2 || counts.ConceptTypes["DIS"] != 1 {
		t.Fatalf("unexpected concept counts %+v", counts.ConceptTypes)
	}
	if counts.AtomSources["NMCD"] != 2 || counts.AtomSources["DSLD"] != 1 {
		t.Fatalf("unexpected atom counts %+v", counts.AtomSources)
	}
	if counts.AttributeNames["background"] != 1 || counts.RelationshipNames["is_effective_for"] != 1 {
		t.Fatalf("unexpected element counts %+v %+v", counts.AttributeNames, counts.RelationshipNames)
	}
	if counts.SourceOverlap["SDSI"]["DSLD_NMCD"] != 1 || counts.SourceOverlap["SDSI"]["NMCD"] != 1 {
		t.Fatalf("unexpected overlap %+v", counts.SourceOverlap)
	}
}
