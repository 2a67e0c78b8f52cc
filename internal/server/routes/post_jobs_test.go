package routes

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestUploadKey(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		filename string
		want     string
	}{
		{"concept file", "000", "concepts.jsonl", "uploads/abc/000_concepts.jsonl"},
		{"directory dropped", "001", "dsld/concepts.jsonl", "uploads/abc/001_concepts.jsonl"},
		{"connections", "connections", "cnx.csv", "uploads/abc/connections_cnx.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uploadKey("uploads/abc", tt.tag, tt.filename); got != tt.want {
				t.Fatalf("uploadKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUploadKey_DuplicateConceptFileNames(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, content := range []string{"nmcd", "dsld"} {
		fw, err := mw.CreateFormFile("concept_files", "concepts.jsonl")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/merge", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	c := echo.New().NewContext(req, httptest.NewRecorder())
	form, err := c.MultipartForm()
	if err != nil {
		t.Fatalf("MultipartForm: %v", err)
	}
	files := form.File["concept_files"]
	if len(files) != 2 {
		t.Fatalf("expected 2 concept files, got %d", len(files))
	}

	keys := conceptKeys("uploads/abc", files)
	want := []string{"uploads/abc/000_concepts.jsonl", "uploads/abc/001_concepts.jsonl"}
	if !slices.Equal(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}
