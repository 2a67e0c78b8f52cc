package queue

import (
	"testing"
)

func TestParseMergeJob(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid",
			body: `{"correlation_id":"abc","kb":"idisk-v1","operation":"union","concept_files":["uploads/nmcd.jsonl"],"exports":["rrf"]}`,
		},
		{
			name:    "unknown operation",
			body:    `{"correlation_id":"abc","kb":"idisk","operation":"xor","concept_files":["a.jsonl"]}`,
			wantErr: true,
		},
		{
			name:    "no files",
			body:    `{"correlation_id":"abc","kb":"idisk","operation":"union","concept_files":[]}`,
			wantErr: true,
		},
		{
			name:    "empty file name",
			body:    `{"correlation_id":"abc","kb":"idisk","operation":"union","concept_files":[""]}`,
			wantErr: true,
		},
		{
			name:    "bad export",
			body:    `{"correlation_id":"abc","kb":"idisk","operation":"union","concept_files":["a"],"exports":["xml"]}`,
			wantErr: true,
		},
		{
			name:    "path in kb",
			body:    `{"correlation_id":"abc","kb":"../etc","operation":"union","concept_files":["a"]}`,
			wantErr: true,
		},
		{
			name:    "dot dot kb",
			body:    `{"correlation_id":"abc","kb":"..","operation":"union","concept_files":["a"]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `{`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMergeJob([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.KnowledgeBase != "idisk-v1" || msg.Operation != "union" {
				t.Fatalf("unexpected message %+v", msg)
			}
		})
	}
}

func TestParseExportJob(t *testing.T) {
	if _, err := ParseExportJob([]byte(`{"correlation_id":"x","kb":"idisk","exports":[]}`)); err == nil {
		t.Fatal("expected error for empty exports")
	}
	msg, err := ParseExportJob([]byte(`{"correlation_id":"x","kb":"idisk","exports":["neo4j","rrf"]}`))
	if err != nil {
		t.Fatalf("ParseExportJob: %v", err)
	}
	if !WantsExport(msg.Exports, ExportNeo4j) || WantsExport(msg.Exports, ExportJSONL) {
		t.Fatalf("unexpected exports %v", msg.Exports)
	}
}

func TestWantsExportDefault(t *testing.T) {
	if !WantsExport(nil, ExportJSONL) || WantsExport(nil, ExportRRF) {
		t.Fatal("empty export list should mean JSON lines only")
	}
}

func TestResultPrefix(t *testing.T) {
	if got := ResultPrefix("idisk", "abc"); got != "results/idisk/abc/" {
		t.Fatalf("ResultPrefix = %q", got)
	}
	if got := KnowledgeBasePrefix("idisk"); got != "results/idisk/" {
		t.Fatalf("KnowledgeBasePrefix = %q", got)
	}
}

func TestNewCorrelationID(t *testing.T) {
	a, err := NewCorrelationID()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewCorrelationID()
	if len(a) != 21 || a == b {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
}
