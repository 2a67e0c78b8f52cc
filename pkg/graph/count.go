package graph

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

// Counts summarizes a knowledge base.
//
// SourceOverlap counts, per concept type, the concepts by the sorted set of
// sources of their atoms, e.g. "DSLD_NMCD".
type Counts struct {
	Concepts          int                       `json:"concepts"`
	ConceptTypes      map[string]int            `json:"concept_types"`
	AtomSources       map[string]int            `json:"atom_sources"`
	AttributeNames    map[string]int            `json:"attribute_names"`
	RelationshipNames map[string]int            `json:"relationship_names"`
	SourceOverlap     map[string]map[string]int `json:"source_overlap"`
}

func Count(concepts []*common.Concept) Counts {
	counts := Counts{
		Concepts:          len(concepts),
		ConceptTypes:      make(map[string]int),
		AtomSources:       make(map[string]int),
		AttributeNames:    make(map[string]int),
		RelationshipNames: make(map[string]int),
		SourceOverlap:     make(map[string]map[string]int),
	}
	for _, c := range concepts {
		counts.ConceptTypes[c.Type]++

		var sources []string
		for _, a := range c.Atoms() {
			counts.AtomSources[a.Source]++
			if !slices.Contains(sources, a.Source) {
				sources = append(sources, a.Source)
			}
		}
		slices.Sort(sources)
		if counts.SourceOverlap[c.Type] == nil {
			counts.SourceOverlap[c.Type] = make(map[string]int)
		}
		counts.SourceOverlap[c.Type][strings.Join(sources, "_")]++

		for _, attr := range c.Attributes {
			counts.AttributeNames[attr.Name]++
		}
		for _, rel := range c.Relationships {
			counts.RelationshipNames[rel.Name]++
		}
	}
	return counts
}
