package graph

import (
	"iter"
	"slices"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

// Options controls connection discovery.
//
// IgnoreTypes excludes concepts of the listed concept types, compared case
// sensitively. ProgressEvery is the number of scanned pairs between two
// progress lines, Workers the number of goroutines of the parallel scan.
type Options struct {
	IgnoreTypes   []string
	ProgressEvery int64
	Workers       int
}

// candidate caches what the pair test needs of one concept.
type candidate struct {
	index int
	typ   string
	terms map[string]struct{}
}

func prepare(concepts []*common.Concept, ignore []string) []candidate {
	out := make([]candidate, 0, len(concepts))
	for i, c := range concepts {
		if slices.Contains(ignore, c.Type) {
			continue
		}
		out = append(out, candidate{index: i, typ: c.Type, terms: c.Terms()})
	}
	return out
}

func connected(a, b *candidate) bool {
	if a.typ != b.typ {
		return false
	}
	small, large := a.terms, b.terms
	if len(small) > len(large) {
		small, large = large, small
	}
	for term := range small {
		if _, ok := large[term]; ok {
			return true
		}
	}
	return false
}

// FindConnections lazily yields every pair (i, j), i < j, of concepts with
// the same concept type and at least one lowercased atom term in common.
// The concepts are not modified. Every iteration rescans from the start.
func FindConnections(concepts []*common.Concept, opts Options) iter.Seq[common.Connection] {
	return func(yield func(common.Connection) bool) {
		cands := prepare(concepts, opts.IgnoreTypes)
		progress := util.NewPairProgress("[Connections] Scanning", len(cands), opts.ProgressEvery)

		var scanned, found int64
		for x := range cands {
			for y := x + 1; y < len(cands); y++ {
				progress.Tick(scanned, found)
				scanned++
				if !connected(&cands[x], &cands[y]) {
					continue
				}
				found++
				if !yield(common.Connection{I: cands[x].index, J: cands[y].index}) {
					return
				}
			}
		}
		progress.Done(found)
	}
}

// Collect materializes a connection sequence.
func Collect(seq iter.Seq[common.Connection]) []common.Connection {
	return slices.Collect(seq)
}
