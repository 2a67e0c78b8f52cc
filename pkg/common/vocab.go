package common

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary lists the known sources, in priority order, and the known
// term types, concept types, attribute names and relationship names.
//
// With Strict set, the Validate methods reject unknown values with
// ErrUnknownVocabulary. Empty lists are never enforced.
type Vocabulary struct {
	Sources           []string `yaml:"sources"`
	TermTypes         []string `yaml:"term_types"`
	ConceptTypes      []string `yaml:"concept_types"`
	AttributeNames    []string `yaml:"attribute_names"`
	RelationshipNames []string `yaml:"relationship_names"`
	Strict            bool     `yaml:"strict"`
}

// DefaultVocabulary returns the built in vocabulary. The source order is
// the preferred term priority.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Sources:      []string{"IDISK", "NMCD", "DSLD", "NHPID", "LNHPD", "UMLS", "MEDDRA", "MSKCC"},
		TermTypes:    []string{"SN", "PT", "SY", "AB", "CN", "PN"},
		ConceptTypes: []string{"SDSI", "DSP", "DIS", "SS", "SPD", "TC"},
		AttributeNames: []string{
			"background", "safety", "mechanism_of_action", "pharmacokinetics",
			"source_material", "dosage", "form", "route", "sources",
			"part_of_plant", "brand_name", "src_url", "active_ingredient_percentage",
		},
		RelationshipNames: []string{
			"has_ingredient", "interacts_with", "is_effective_for",
			"has_adverse_reaction", "has_therapeutic_class", "has_mechanism_of_action",
			"has_part",
		},
	}
}

// LoadVocabulary decodes a YAML vocabulary. Lists that are missing from
// the document keep their defaults.
func LoadVocabulary(r io.Reader) (*Vocabulary, error) {
	v := DefaultVocabulary()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	return v, nil
}

func LoadVocabularyFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()
	return LoadVocabulary(f)
}

// SourceRank returns the priority of src, lower is better. Unknown sources
// rank after every known one.
func (v *Vocabulary) SourceRank(src string) int {
	if v == nil {
		return 0
	}
	upper := strings.ToUpper(src)
	if i := slices.Index(v.Sources, upper); i >= 0 {
		return i
	}
	return len(v.Sources)
}

func (v *Vocabulary) IsSource(src string) bool {
	return contains(v.Sources, strings.ToUpper(src))
}

func (v *Vocabulary) IsTermType(tty string) bool {
	return contains(v.TermTypes, strings.ToUpper(tty))
}

func (v *Vocabulary) IsConceptType(t string) bool {
	return contains(v.ConceptTypes, t)
}

func (v *Vocabulary) IsAttributeName(name string) bool {
	return contains(v.AttributeNames, name)
}

func (v *Vocabulary) IsRelationshipName(name string) bool {
	return contains(v.RelationshipNames, name)
}

// contains treats an empty list as "anything goes".
func contains(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	return slices.Contains(list, value)
}

// ValidateAtom checks source and term type in strict mode.
func (v *Vocabulary) ValidateAtom(a *Atom) error {
	if v == nil || !v.Strict {
		return nil
	}
	if !v.IsSource(a.Source) {
		return fmt.Errorf("%w: source %q of atom %q", ErrUnknownVocabulary, a.Source, a.Term)
	}
	if !v.IsTermType(a.TermType) {
		return fmt.Errorf("%w: term type %q of atom %q", ErrUnknownVocabulary, a.TermType, a.Term)
	}
	return nil
}

// ValidateConcept checks the concept type, every atom and the sources of
// attributes and relationships in strict mode.
func (v *Vocabulary) ValidateConcept(c *Concept) error {
	if v == nil || !v.Strict {
		return nil
	}
	if !v.IsConceptType(c.Type) {
		return fmt.Errorf("%w: concept type %q", ErrUnknownVocabulary, c.Type)
	}
	for _, a := range c.atoms {
		if err := v.ValidateAtom(a); err != nil {
			return err
		}
	}
	for _, attr := range c.Attributes {
		if !v.IsSource(attr.Source) {
			return fmt.Errorf("%w: source %q of attribute %q", ErrUnknownVocabulary, attr.Source, attr.Name)
		}
	}
	for _, rel := range c.Relationships {
		if !v.IsSource(rel.Source) {
			return fmt.Errorf("%w: source %q of relationship %q", ErrUnknownVocabulary, rel.Source, rel.Name)
		}
	}
	return nil
}
