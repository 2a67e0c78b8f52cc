package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func smallestTerms(concepts []*common.Concept) []string {
	out := make([]string, 0, len(concepts))
	for _, c := range concepts {
		termList := make([]string, 0)
		for term := range c.Terms() {
			termList = append(termList, term)
		}
		slices.Sort(termList)
		out = append(out, termList[0])
	}
	return out
}

func TestUnionFind_SetOperations(t *testing.T) {
	concepts := vitaminExample(t)
	uf := NewUnionFind(concepts)
	if err := uf.Apply(Collect(FindConnections(concepts, Options{}))); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	uf.Repair()

	union := uf.Merged()
	if len(union) != 2 {
		t.Fatalf("expected 2 concepts in union, got %d", len(union))
	}
	if union[0].NumAtoms() != 3 {
		t.Fatalf("expected merged concept with 3 distinct atoms, got %d", union[0].NumAtoms())
	}
	if union[1] != concepts[2] {
		t.Fatalf("expected turmeric untouched")
	}

	inter := uf.Intersection()
	if len(inter) != 1 || inter[0] != union[0] {
		t.Fatalf("expected intersection to hold the merged concept, got %v", inter)
	}
	diff := uf.Difference()
	if len(diff) != 1 || diff[0] != concepts[2] {
		t.Fatalf("expected difference to hold turmeric, got %v", diff)
	}
}

func TestUnionFind_Transitive(t *testing.T) {
	ids := common.NewIDAllocator()
	concepts := []*common.Concept{
		terms(t, ids, "SDSI", "a"),
		terms(t, ids, "SDSI", "b"),
		terms(t, ids, "SDSI", "c"),
	}
	uf := NewUnionFind(concepts)
	if err := uf.Apply([]common.Connection{{I: 0, J: 1}, {I: 1, J: 2}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	merged := uf.Merged()
	if len(merged) != 1 {
		t.Fatalf("expected one component, got %d", len(merged))
	}
	if merged[0].NumAtoms() != 3 {
		t.Fatalf("expected 3 atoms, got %d", merged[0].NumAtoms())
	}
	if len(uf.Difference()) != 0 {
		t.Fatalf("expected empty difference")
	}
}

func TestUnionFind_Idempotent(t *testing.T) {
	concepts := vitaminExample(t)
	uf := NewUnionFind(concepts)
	uf.Union(2, 2)
	if uf.Concept(2) != concepts[2] {
		t.Fatal("union with itself must not change the concept")
	}

	uf.Union(0, 1)
	merged := uf.Concept(uf.Find(0))
	uf.Union(1, 0)
	uf.Union(0, 1)
	if uf.Concept(uf.Find(0)) != merged {
		t.Fatal("re-unioning a merged pair must not change the result")
	}
}

func TestUnionFind_BiggerSurvives(t *testing.T) {
	ids := common.NewIDAllocator()
	small := terms(t, ids, "SDSI", "x")
	big := terms(t, ids, "SDSI", "x", "y", "z")
	uf := NewUnionFind([]*common.Concept{small, big})
	uf.Union(0, 1)

	if uf.Find(0) != 1 {
		t.Fatalf("expected the larger concept's slot to be the root")
	}
	merged := uf.Concept(1)
	if merged.ID.Number != big.ID.Number {
		t.Fatalf("expected merged id number %d, got %s", big.ID.Number, merged.ID)
	}
}

func TestUnionFind_TieKeepsLowerIndex(t *testing.T) {
	ids := common.NewIDAllocator()
	concepts := []*common.Concept{
		terms(t, ids, "SDSI", "x"),
		terms(t, ids, "SDSI", "y"),
	}
	uf := NewUnionFind(concepts)
	uf.Union(1, 0)
	if uf.Find(1) != 0 {
		t.Fatalf("expected lower index to survive a tie")
	}
}

func TestUnionFind_ApplyValidatesFirst(t *testing.T) {
	concepts := vitaminExample(t)
	uf := NewUnionFind(concepts)
	err := uf.Apply([]common.Connection{{I: 0, J: 1}, {I: 1, J: 3}})
	if !errors.Is(err, common.ErrConnectionOutOfRange) {
		t.Fatalf("expected ErrConnectionOutOfRange, got %v", err)
	}
	if len(uf.Merged()) != 3 {
		t.Fatal("no union may run when a connection is invalid")
	}

	err = uf.Apply([]common.Connection{{I: -1, J: 0}})
	if !errors.Is(err, common.ErrConnectionOutOfRange) {
		t.Fatalf("expected ErrConnectionOutOfRange for negative index, got %v", err)
	}
}

func TestUnionFind_FindLongChain(t *testing.T) {
	n := 100_000
	uf := &UnionFind{parent: make([]int, n)}
	// Build the chain by hand: i points at i-1.
	for i := 1; i < n; i++ {
		uf.parent[i] = i - 1
	}
	if root := uf.Find(n - 1); root != 0 {
		t.Fatalf("expected root 0, got %d", root)
	}
	for i := range n {
		if uf.parent[i] != 0 {
			t.Fatalf("slot %d not compressed", i)
		}
	}
}

func TestUnionFind_NoAtomLoss(t *testing.T) {
	concepts := mixedConcepts(t, 40)
	// Atoms are shared across concept types, which never merge.
	type typedKey struct {
		typ string
		key common.AtomKey
	}
	before := make(map[typedKey]struct{})
	for _, c := range concepts {
		for _, a := range c.Atoms() {
			before[typedKey{c.Type, a.Key()}] = struct{}{}
		}
	}

	uf := NewUnionFind(concepts)
	if err := uf.Apply(FindConnectionsIndexed(concepts, Options{})); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	after := make(map[typedKey]struct{})
	roots := 0
	for _, c := range uf.Merged() {
		roots++
		for _, a := range c.Atoms() {
			k := typedKey{c.Type, a.Key()}
			if _, dup := after[k]; dup {
				t.Fatalf("atom %s appears in two components", a)
			}
			after[k] = struct{}{}
		}
	}
	if len(after) != len(before) {
		t.Fatalf("expected %d distinct atoms, got %d", len(before), len(after))
	}
	if roots != len(uf.Roots()) {
		t.Fatalf("union size %d differs from root count %d", roots, len(uf.Roots()))
	}
	for i := range uf.Len() {
		if r := uf.Find(i); uf.Find(r) != r {
			t.Fatalf("find(%d) is not a root", i)
		}
	}
}

func TestUnionFind_RepairRelationships(t *testing.T) {
	ids := common.NewIDAllocator()
	product := terms(t, ids, "DSP", "multivitamin")
	vitC := terms(t, ids, "SDSI", "vitamin c")
	ascorbic := terms(t, ids, "SDSI", "vitamin c", "ascorbic acid")
	outside := terms(t, ids, "SDSI", "zinc")

	relate(t, ids, product, "has_ingredient", vitC)
	relate(t, ids, product, "has_ingredient", ascorbic)
	relate(t, ids, product, "has_ingredient", outside)

	concepts := []*common.Concept{product, vitC, ascorbic}
	uf := NewUnionFind(concepts)
	if err := uf.Apply([]common.Connection{{I: 1, J: 2}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if missing := uf.Repair(); missing != 1 {
		t.Fatalf("expected 1 relationship with unknown object, got %d", missing)
	}

	merged := uf.Concept(uf.Find(1))
	rels := uf.Concept(0).Relationships
	if len(rels) != 2 {
		t.Fatalf("expected equal relationships to collapse, got %d", len(rels))
	}
	if rels[0].Object.Concept() != merged {
		t.Fatalf("expected relationship to point at the merged concept")
	}
	if rels[1].Object.Concept() != outside {
		t.Fatalf("expected unknown object to stay")
	}

	roots := uf.Roots()
	for _, r := range roots {
		for _, rel := range uf.Concept(r).Relationships {
			obj := rel.Object.Concept()
			if obj == outside {
				continue
			}
			slot, ok := uf.slotOf(obj)
			if !ok || uf.Find(slot) != slot {
				t.Fatalf("relationship points at a non-root concept")
			}
		}
	}
}

func TestUnionFind_MergedTerms(t *testing.T) {
	concepts := vitaminExample(t)
	uf := NewUnionFind(concepts)
	uf.Union(0, 1)
	got := smallestTerms(uf.Merged())
	want := []string{"ascorbic acid", "turmeric"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUnionFind_ApplySeqMatchesApply(t *testing.T) {
	want := mixedConcepts(t, 40)
	cnxs := Collect(FindConnections(want, Options{}))
	eager := NewUnionFind(want)
	if err := eager.Apply(cnxs); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got := mixedConcepts(t, 40)
	lazy := NewUnionFind(got)
	n, err := lazy.ApplySeq(FindConnections(got, Options{}))
	if err != nil {
		t.Fatalf("ApplySeq: %v", err)
	}
	if n != len(cnxs) {
		t.Fatalf("expected %d applied connections, got %d", len(cnxs), n)
	}
	if !slices.Equal(smallestTerms(lazy.Merged()), smallestTerms(eager.Merged())) {
		t.Fatal("streamed union differs from collected union")
	}
}

func TestUnionFind_ApplySeqOutOfRange(t *testing.T) {
	concepts := vitaminExample(t)
	uf := NewUnionFind(concepts)
	n, err := uf.ApplySeq(slices.Values([]common.Connection{{I: 0, J: 1}, {I: 1, J: 9}}))
	if !errors.Is(err, common.ErrConnectionOutOfRange) {
		t.Fatalf("expected ErrConnectionOutOfRange, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied connection, got %d", n)
	}
}
