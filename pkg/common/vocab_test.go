package common

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadVocabulary(t *testing.T) {
	doc := `
sources: [NMCD, DSLD]
concept_types: [SDSI]
strict: true
`
	v, err := LoadVocabulary(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if !v.Strict {
		t.Fatalf("expected strict vocabulary")
	}
	if v.SourceRank("dsld") != 1 || v.SourceRank("UMLS") != 2 {
		t.Fatalf("unexpected ranks: dsld=%d umls=%d", v.SourceRank("dsld"), v.SourceRank("UMLS"))
	}
	if len(v.TermTypes) == 0 {
		t.Fatalf("missing lists must keep their defaults")
	}
}

func TestLoadVocabulary_UnknownField(t *testing.T) {
	_, err := LoadVocabulary(strings.NewReader("sourcez: [NMCD]\n"))
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestVocabulary_ValidateConcept(t *testing.T) {
	v := DefaultVocabulary()
	ids := NewIDAllocator()
	c, _ := NewConcept(ids, NewConceptParams{Type: "GADGET", Vocabulary: v, Atoms: []*Atom{
		{Term: "x", Source: "NMCD", SourceID: "1", TermType: "SY"},
	}})

	if err := v.ValidateConcept(c); err != nil {
		t.Fatalf("non strict vocabulary must accept anything, got %v", err)
	}

	v.Strict = true
	if err := v.ValidateConcept(c); !errors.Is(err, ErrUnknownVocabulary) {
		t.Fatalf("expected ErrUnknownVocabulary, got %v", err)
	}

	bad := &Atom{Term: "x", Source: "NOWHERE", SourceID: "1", TermType: "SY"}
	if err := v.ValidateAtom(bad); !errors.Is(err, ErrUnknownVocabulary) {
		t.Fatalf("expected unknown source error, got %v", err)
	}
}
