package graph

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// Discovery selects how candidate connections are found.
type Discovery string

const (
	DiscoveryPairwise Discovery = "pairwise"
	DiscoveryIndex    Discovery = "index"
)

// ctxCheckEvery is how many connections pass between context checks.
const ctxCheckEvery = 4096

// Operation is a set operation over the components of a merge run.
type Operation string

const (
	OperationUnion        Operation = "union"
	OperationIntersection Operation = "intersection"
	OperationDifference   Operation = "difference"
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OperationUnion, OperationIntersection, OperationDifference:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// GraphClient runs connection discovery and merges over concept lists.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	discovery     Discovery
	workers       int
	progressEvery int64
}

// NewGraphClientParams defines the configuration of a GraphClient.
//
// Workers above one shard the pairwise scan. ProgressEvery defaults to one
// progress line per million scanned pairs.
type NewGraphClientParams struct {
	Discovery     Discovery
	Workers       int
	ProgressEvery int64
}

func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	discovery := params.Discovery
	switch discovery {
	case "":
		discovery = DiscoveryPairwise
	case DiscoveryPairwise, DiscoveryIndex:
	default:
		return nil, fmt.Errorf("unknown discovery %q", discovery)
	}
	progressEvery := params.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = util.DefaultProgressEvery
	}

	return &GraphClient{
		discovery:     discovery,
		workers:       max(params.Workers, 1),
		progressEvery: progressEvery,
	}, nil
}

// Connections returns the candidate connections among concepts as a
// sequence. The single worker pairwise scan yields pairs as it finds them;
// the other strategies compute their result before the first pair. A
// canceled ctx ends the sequence early.
func (g *GraphClient) Connections(ctx context.Context, concepts []*common.Concept, ignoreTypes []string) (iter.Seq[common.Connection], error) {
	start := time.Now()
	opts := Options{
		IgnoreTypes:   ignoreTypes,
		ProgressEvery: g.progressEvery,
		Workers:       g.workers,
	}

	var seq iter.Seq[common.Connection]
	switch {
	case g.discovery == DiscoveryIndex:
		seq = slices.Values(FindConnectionsIndexed(concepts, opts))
	case g.workers > 1:
		cnxs, err := FindConnectionsParallel(ctx, concepts, opts)
		if err != nil {
			return nil, err
		}
		seq = slices.Values(cnxs)
	default:
		seq = FindConnections(concepts, opts)
	}

	return func(yield func(common.Connection) bool) {
		n := 0
		for c := range seq {
			if n%ctxCheckEvery == 0 && ctx.Err() != nil {
				return
			}
			n++
			if !yield(c) {
				return
			}
		}
		logger.Info("[Graph] Found connections", "concepts", len(concepts), "connections", n,
			"discovery", g.discovery, "duration", util.FormatDuration(time.Since(start)))
	}, nil
}

// FindConnections returns the candidate connections among concepts.
func (g *GraphClient) FindConnections(ctx context.Context, concepts []*common.Concept, ignoreTypes []string) ([]common.Connection, error) {
	seq, err := g.Connections(ctx, concepts, ignoreTypes)
	if err != nil {
		return nil, err
	}
	cnxs := Collect(seq)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cnxs, nil
}

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Concepts   []*common.Concept
	Components int
	Missing    int
}

// Merge unions concepts along cnxs, repairs relationships and returns the
// concepts selected by op. A nil cnxs discovers connections first. A bad
// connection fails the merge before anything is merged.
func (g *GraphClient) Merge(ctx context.Context, concepts []*common.Concept, cnxs []common.Connection, op Operation, ignoreTypes []string) (*MergeResult, error) {
	start := time.Now()
	uf := NewUnionFind(concepts)
	applied := len(cnxs)
	if cnxs == nil {
		seq, err := g.Connections(ctx, concepts, ignoreTypes)
		if err != nil {
			return nil, err
		}
		// discovered pairs are unioned as they are found
		if applied, err = uf.ApplySeq(seq); err != nil {
			return nil, err
		}
	} else if err := uf.Apply(cnxs); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	missing := uf.Repair()

	var out []*common.Concept
	switch op {
	case OperationUnion:
		out = uf.Merged()
	case OperationIntersection:
		out = uf.Intersection()
	case OperationDifference:
		out = uf.Difference()
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	res := &MergeResult{
		Concepts:   out,
		Components: len(uf.Roots()),
		Missing:    missing,
	}
	logger.Info("[Graph] Merged concepts", "operation", op, "input", len(concepts),
		"connections", applied, "components", res.Components, "output", len(out),
		"duration", util.FormatDuration(time.Since(start)))
	return res, nil
}
