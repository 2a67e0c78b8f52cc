package graph

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

// MergePrefix joins the source tokens of two identifier prefixes, e.g.
// "NMCD" and "DSLD_NMCD" give "NMCD_DSLD". Tokens keep their first-seen
// order.
func MergePrefix(a, b string) string {
	tokens := common.PrefixTokens(a)
	for _, t := range common.PrefixTokens(b) {
		if !slices.Contains(tokens, t) {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, "_")
}

// Merge returns a new concept holding the content of a and b. It keeps the
// type and identifier number of a; the prefix records the sources of both.
// Atoms, attributes and relationships of b are added unless an equal one is
// already present. They are shared, not copied, and their subjects are
// re-pointed at the new concept.
func Merge(a, b *common.Concept) *common.Concept {
	merged := a.WithAtoms(b.Atoms()...)
	merged.ID = common.ID{
		Prefix: MergePrefix(a.ID.Prefix, b.ID.Prefix),
		Number: a.ID.Number,
	}
	merged.Adopt()

	for _, attr := range b.Attributes {
		merged.AddAttribute(attr)
	}
	for _, rel := range b.Relationships {
		merged.AddRelationship(rel)
	}
	return merged
}
