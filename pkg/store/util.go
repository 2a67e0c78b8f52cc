package store

import "github.com/OFFIS-RIT/idisk/backend/pkg/common"

// ChunkRange calls fn for consecutive [start, end) ranges of at most
// chunkSize elements.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// Reachable returns concepts followed by every concept reachable from them
// through resolved relationship objects, each once, in discovery order.
func Reachable(concepts []*common.Concept) []*common.Concept {
	seen := make(map[*common.Concept]struct{}, len(concepts))
	out := make([]*common.Concept, 0, len(concepts))
	for _, c := range concepts {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for i := 0; i < len(out); i++ {
		for _, rel := range out[i].Relationships {
			obj := rel.Object.Concept()
			if obj == nil {
				continue
			}
			if _, ok := seen[obj]; ok {
				continue
			}
			seen[obj] = struct{}{}
			out = append(out, obj)
		}
	}
	return out
}
