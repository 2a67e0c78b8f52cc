package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabulary(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("IDISK_VOCAB_FILE", "")
		t.Setenv("IDISK_STRICT", "true")
		v, err := LoadVocabulary()
		if err != nil {
			t.Fatalf("LoadVocabulary: %v", err)
		}
		if !v.Strict || v.SourceRank("IDISK") != 0 {
			t.Fatalf("unexpected vocabulary %+v", v)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vocab.yaml")
		if err := os.WriteFile(path, []byte("sources: [DSLD, NMCD]\nstrict: true\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		t.Setenv("IDISK_VOCAB_FILE", path)
		t.Setenv("IDISK_STRICT", "false")
		v, err := LoadVocabulary()
		if err != nil {
			t.Fatalf("LoadVocabulary: %v", err)
		}
		if v.Strict {
			t.Fatal("expected IDISK_STRICT to override the file")
		}
		if v.SourceRank("DSLD") != 0 || v.SourceRank("NMCD") != 1 {
			t.Fatalf("unexpected source order %v", v.Sources)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("IDISK_VOCAB_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := LoadVocabulary(); err == nil {
			t.Fatal("expected error")
		}
	})
}
