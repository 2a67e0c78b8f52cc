package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

const nmcdVitaminC = `{"ui": "DC0000001", "concept_type": "SDSI", "synonyms": [{"term": "Vitamin C", "src": "NMCD", "src_id": "1", "term_type": "SY", "is_preferred": true}], "attributes": [], "relationships": []}`

const dsldVitaminC = `{"ui": "DC0000002", "concept_type": "SDSI", "synonyms": [{"term": "vitamin c", "src": "DSLD", "src_id": "7", "term_type": "SY", "is_preferred": true}], "attributes": [], "relationships": []}`

func testConfig() *config {
	return &config{vocab: common.DefaultVocabulary(), workers: 1, parallel: 2}
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func lines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return strings.Fields(strings.TrimSpace(string(data)))
}

func TestListFlag(t *testing.T) {
	l := listFlag{values: []string{"SDSI"}}
	if err := l.Set("DIS, SS"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := l.Set("AR,"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := []string{"DIS", "SS", "AR"}
	if !reflect.DeepEqual(l.values, want) {
		t.Fatalf("expected %v, got %v", want, l.values)
	}
	if l.String() != "DIS,SS,AR" {
		t.Fatalf("unexpected String %q", l.String())
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"missing flag", []string{"union"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), testConfig(), tt.args)
			if !errors.Is(err, errUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
		})
	}
}

func TestRun_FindConnectionsAndUnion(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.jsonl", nmcdVitaminC+"\n")
	b := writeTemp(t, dir, "b.jsonl", dsldVitaminC+"\n")
	cnxFile := filepath.Join(dir, "cnx.csv")
	merged := filepath.Join(dir, "merged.jsonl")

	ctx := context.Background()
	if err := run(ctx, testConfig(), []string{"find-connections", "-concepts", a + "," + b, "-out", cnxFile}); err != nil {
		t.Fatalf("find-connections: %v", err)
	}
	if got := lines(t, cnxFile); !reflect.DeepEqual(got, []string{"0,1"}) {
		t.Fatalf("unexpected connections %v", got)
	}

	if err := run(ctx, testConfig(), []string{"union", "-concepts", a, "-concepts", b, "-connections", cnxFile, "-out", merged}); err != nil {
		t.Fatalf("union: %v", err)
	}
	if got := lines(t, merged); len(got) == 0 {
		t.Fatalf("expected merged output")
	}
	data, _ := os.ReadFile(merged)
	if n := strings.Count(strings.TrimSpace(string(data)), "\n") + 1; n != 1 {
		t.Fatalf("expected one merged concept, got %d", n)
	}
}

func TestRun_UnionWithEmptyConnections(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.jsonl", nmcdVitaminC+"\n"+dsldVitaminC+"\n")
	empty := writeTemp(t, dir, "empty.csv", "")
	out := filepath.Join(dir, "out.jsonl")

	if err := run(context.Background(), testConfig(), []string{"union", "-concepts", a, "-connections", empty, "-out", out}); err != nil {
		t.Fatalf("union: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Fatalf("expected both concepts kept, got %d", n)
	}
}

func TestReportMissing_DoesNotCountAsWarning(t *testing.T) {
	logger.ResetWarnCount()
	reportMissing(3)
	if got := logger.WarnCount(); got != 0 {
		t.Fatalf("expected no extra warning, got %d", got)
	}
}
