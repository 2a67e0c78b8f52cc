package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
)

func TestLint(t *testing.T) {
	vocab := common.DefaultVocabulary()
	input := strings.Join([]string{
		`{"ui": "DC0000001", "concept_type": "SDSI", "synonyms": [{"term": "iron\t", "src": "NMCD"}], "attributes": [{"atr_name": "colour", "atr_value": "grey", "src": "NMCD"}], "relationships": [{"rel_name": "likes", "object": "DC0000002", "src": "NMCD", "attributes": []}]}`,
		`{"ui": "X1", "concept_type": "PLANET", "synonyms": [{"term": "mars", "src": "NMCD"}], "attributes": [{"atr_name": "colour", "atr_value": "red", "src": "NMCD"}], "relationships": []}`,
		`not json`,
		`{"ui": "DC0000003", "concept_type": "SDSI", "synonyms": [{"term": "zinc", "src": "NMCD"}], "attributes": [{"atr_name": "background", "atr_value": "a\nb", "src": "NMCD"}], "relationships": []}`,
	}, "\n")

	report, err := Lint(context.Background(), strings.NewReader(input), "concepts.jsonl", VocabularySchema{Vocabulary: vocab})
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	want := []string{
		"Bad JSON at line 3. Skipping...",
		"Bad whitespace (newline or tab) in 'a\nb'.",
		"Bad whitespace (newline or tab) in 'iron\t'.",
		"Improperly formatted UI: 'X1'",
		"Label 'PLANET' not in schema.",
		"Relationship 'likes' not in schema.",
		"Unknown attribute name 'colour'.",
	}
	if !reflect.DeepEqual(report.Warnings, want) {
		t.Fatalf("unexpected warnings:\n got %q\nwant %q", report.Warnings, want)
	}
	if report.Concepts != 3 {
		t.Fatalf("expected 3 checked concepts, got %d", report.Concepts)
	}
}

type failingSchema struct{}

func (failingSchema) NodeProperties(ctx context.Context, label string) (map[string]struct{}, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingSchema) RelationshipProperties(ctx context.Context, name string) (map[string]struct{}, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestLint_SchemaError(t *testing.T) {
	input := `{"ui": "DC0000001", "concept_type": "SDSI", "synonyms": [{"term": "iron", "src": "NMCD"}]}`
	_, err := Lint(context.Background(), strings.NewReader(input), "c.jsonl", failingSchema{})
	if err == nil {
		t.Fatal("expected schema lookup error")
	}
}

func TestLintReport_WriteErrorFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "concepts.jsonl")

	clean := &LintReport{File: file}
	path, err := clean.WriteErrorFile()
	if err != nil || path != "" {
		t.Fatalf("expected nothing written for a clean report, got %q %v", path, err)
	}

	report := &LintReport{File: file, Warnings: []string{"Label 'X' not in schema."}}
	path, err = report.WriteErrorFile()
	if err != nil {
		t.Fatalf("WriteErrorFile: %v", err)
	}
	if path != file+".error" {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "concepts.jsonl") || !strings.Contains(out, "Label 'X' not in schema.") {
		t.Fatalf("unexpected error file content %q", out)
	}
}
