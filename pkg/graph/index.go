package graph

import (
	"slices"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

type postingKey struct {
	typ  string
	term string
}

// FindConnectionsIndexed finds the same pairs as FindConnections, in the
// same order, through an inverted index from (concept type, term) to the
// concepts carrying it. Its cost grows with the number of shared terms
// instead of the number of pairs.
func FindConnectionsIndexed(concepts []*common.Concept, opts Options) []common.Connection {
	cands := prepare(concepts, opts.IgnoreTypes)

	postings := make(map[postingKey][]int)
	for x := range cands {
		for term := range cands[x].terms {
			key := postingKey{typ: cands[x].typ, term: term}
			postings[key] = append(postings[key], x)
		}
	}

	var cnxs []common.Connection
	stamp := make([]int, len(cands))
	var neighbours []int
	for x := range cands {
		neighbours = neighbours[:0]
		for term := range cands[x].terms {
			list := postings[postingKey{typ: cands[x].typ, term: term}]
			// Lists are ascending, skip everything up to x.
			start, _ := slices.BinarySearch(list, x+1)
			for _, y := range list[start:] {
				if stamp[y] == x+1 {
					continue
				}
				stamp[y] = x + 1
				neighbours = append(neighbours, y)
			}
		}
		slices.Sort(neighbours)
		for _, y := range neighbours {
			cnxs = append(cnxs, common.Connection{I: cands[x].index, J: cands[y].index})
		}
	}

	logger.Info("[Connections] Index scan done", "terms", len(postings), "connections", len(cnxs))
	return cnxs
}
