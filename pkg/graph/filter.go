package graph

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader/prodigy"
)

// LinkingScore is the atom extra attribute set by entity linking.
const LinkingScore = "linking_score"

func preferredTerms(c *common.Concept) (all, linked map[string]struct{}) {
	all = make(map[string]struct{})
	linked = make(map[string]struct{})
	for _, a := range c.Atoms() {
		if !a.IsPreferred {
			continue
		}
		all[a.LowerTerm()] = struct{}{}
		if a.HasExtra(LinkingScore) {
			linked[a.LowerTerm()] = struct{}{}
		}
	}
	return all, linked
}

func overlaps(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// FilterBasic keeps the connections whose concepts share a preferred term
// and a linked preferred term. Connections whose first concept has a type
// in ignoreTypes are dropped; types are compared upper cased.
func FilterBasic(concepts []*common.Concept, cnxs []common.Connection, ignoreTypes []string) ([]common.Connection, error) {
	if err := common.CheckConnections(cnxs, len(concepts)); err != nil {
		return nil, err
	}
	ignore := make([]string, len(ignoreTypes))
	for i, t := range ignoreTypes {
		ignore[i] = strings.ToUpper(t)
	}

	out := make([]common.Connection, 0, len(cnxs))
	for _, c := range cnxs {
		if slices.Contains(ignore, strings.ToUpper(concepts[c.I].Type)) {
			continue
		}
		iAll, iLinked := preferredTerms(concepts[c.I])
		jAll, jLinked := preferredTerms(concepts[c.J])
		if overlaps(iAll, jAll) && overlaps(iLinked, jLinked) {
			out = append(out, c)
		}
	}
	return out, nil
}

// FilterAnnotated keeps the connections a reviewer accepted as equal and
// those that were never reviewed. Annotations refer to connections by
// position; the result keeps the order of cnxs.
func FilterAnnotated(cnxs []common.Connection, annotations []prodigy.Annotation) []common.Connection {
	annotated := make(map[int]bool, len(annotations))
	for _, ann := range annotations {
		annotated[ann.InputHash] = annotated[ann.InputHash] || ann.Accepted()
	}

	out := make([]common.Connection, 0, len(cnxs))
	for k, c := range cnxs {
		accepted, seen := annotated[k]
		if !seen || accepted {
			out = append(out, c)
		}
	}
	return out
}
