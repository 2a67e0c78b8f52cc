package graph

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func TestFindConnections(t *testing.T) {
	concepts := vitaminExample(t)

	got := Collect(FindConnections(concepts, Options{}))
	want := []common.Connection{{I: 0, J: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFindConnections_TypeMustMatch(t *testing.T) {
	ids := common.NewIDAllocator()
	concepts := []*common.Concept{
		terms(t, ids, "SDSI", "iron"),
		terms(t, ids, "DIS", "iron"),
		terms(t, ids, "SDSI", "IRON"),
	}

	got := Collect(FindConnections(concepts, Options{}))
	want := []common.Connection{{I: 0, J: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFindConnections_IgnoreTypes(t *testing.T) {
	ids := common.NewIDAllocator()
	concepts := []*common.Concept{
		terms(t, ids, "SDSI", "iron"),
		terms(t, ids, "SDSI", "iron"),
		terms(t, ids, "DIS", "anemia"),
		terms(t, ids, "DIS", "anemia"),
	}

	got := Collect(FindConnections(concepts, Options{IgnoreTypes: []string{"DIS"}}))
	want := []common.Connection{{I: 0, J: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// Comparison is case sensitive.
	got = Collect(FindConnections(concepts, Options{IgnoreTypes: []string{"dis"}}))
	if len(got) != 2 {
		t.Fatalf("expected lower case ignore type to match nothing, got %v", got)
	}
}

func TestFindConnections_StopsEarly(t *testing.T) {
	ids := common.NewIDAllocator()
	var concepts []*common.Concept
	for range 10 {
		concepts = append(concepts, terms(t, ids, "SDSI", "same"))
	}

	n := 0
	for range FindConnections(concepts, Options{}) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("expected to stop after 3, got %d", n)
	}
}

// mixedConcepts builds concepts whose terms overlap in a non trivial way.
func mixedConcepts(t *testing.T, n int) []*common.Concept {
	ids := common.NewIDAllocator()
	types := []string{"SDSI", "DIS", "SS"}
	concepts := make([]*common.Concept, 0, n)
	for i := range n {
		concepts = append(concepts, terms(t, ids, types[i%len(types)],
			fmt.Sprintf("term-%d", i%7),
			fmt.Sprintf("term-%d", (i*3)%11),
			fmt.Sprintf("unique-%d", i),
		))
	}
	return concepts
}

func TestFindConnectionsIndexed_MatchesPairwise(t *testing.T) {
	concepts := mixedConcepts(t, 60)
	opts := Options{IgnoreTypes: []string{"SS"}}

	want := Collect(FindConnections(concepts, opts))
	got := FindConnectionsIndexed(concepts, opts)
	if len(want) == 0 {
		t.Fatal("test data produced no connections")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("indexed scan differs:\n got %v\nwant %v", got, want)
	}
}

func TestFindConnectionsParallel_MatchesPairwise(t *testing.T) {
	concepts := mixedConcepts(t, 45)
	want := Collect(FindConnections(concepts, Options{}))

	for _, workers := range []int{1, 2, 3, 8, 100} {
		got, err := FindConnectionsParallel(context.Background(), concepts, Options{Workers: workers})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("workers=%d: parallel scan differs", workers)
		}
	}
}

func TestFindConnectionsParallel_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindConnectionsParallel(ctx, mixedConcepts(t, 20), Options{Workers: 2})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestShardBounds(t *testing.T) {
	for _, m := range []int{0, 1, 2, 3, 10, 101} {
		for _, workers := range []int{1, 2, 4, 7} {
			bounds := shardBounds(m, workers)
			next := 0
			for _, b := range bounds {
				if b[0] != next || b[1] <= b[0] {
					t.Fatalf("m=%d workers=%d: bad bounds %v", m, workers, bounds)
				}
				next = b[1]
			}
			if m >= 2 && next != m-1 {
				t.Fatalf("m=%d workers=%d: bounds %v do not cover all positions", m, workers, bounds)
			}
			if len(bounds) > workers {
				t.Fatalf("m=%d workers=%d: %d shards", m, workers, len(bounds))
			}
		}
	}
}
