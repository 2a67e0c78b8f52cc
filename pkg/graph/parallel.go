package graph

import (
	"context"
	"fmt"
	"runtime"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// shardBounds splits the first positions of an m element triangular pair
// scan into at most workers contiguous ranges with about the same number of
// pairs each.
func shardBounds(m, workers int) [][2]int {
	if m < 2 {
		return nil
	}
	workers = max(1, min(workers, m-1))
	total := int64(m) * int64(m-1) / 2
	per := (total + int64(workers) - 1) / int64(workers)

	var bounds [][2]int
	start := 0
	var acc int64
	for x := 0; x < m-1; x++ {
		acc += int64(m - 1 - x)
		if acc >= per {
			bounds = append(bounds, [2]int{start, x + 1})
			start = x + 1
			acc = 0
		}
	}
	if start < m-1 {
		bounds = append(bounds, [2]int{start, m - 1})
	}
	return bounds
}

// FindConnectionsParallel runs the pairwise scan of FindConnections on
// opts.Workers goroutines. Each worker scans a contiguous range of first
// indices; the shard results are concatenated in order, so the output
// equals the sequential one.
func FindConnectionsParallel(ctx context.Context, concepts []*common.Concept, opts Options) ([]common.Connection, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cands := prepare(concepts, opts.IgnoreTypes)
	bounds := shardBounds(len(cands), workers)
	results := make([][]common.Connection, len(bounds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s, b := range bounds {
		g.Go(func() error {
			var out []common.Connection
			for x := b[0]; x < b[1]; x++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for y := x + 1; y < len(cands); y++ {
					if connected(&cands[x], &cands[y]) {
						out = append(out, common.Connection{I: cands[x].index, J: cands[y].index})
					}
				}
			}
			results[s] = out
			logger.Debug("[Connections] Shard done", "shard", s, "from", b[0], "to", b[1], "connections", len(out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to scan connections: %w", err)
	}

	var n int
	for _, r := range results {
		n += len(r)
	}
	cnxs := make([]common.Connection, 0, n)
	for _, r := range results {
		cnxs = append(cnxs, r...)
	}
	logger.Info("[Connections] Parallel scan done", "shards", len(bounds), "connections", len(cnxs))
	return cnxs, nil
}
