package csv

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"
)

func TestReadConnections(t *testing.T) {
	got, err := ReadConnections(strings.NewReader("0,1\n1,2\n"))
	if err != nil {
		t.Fatalf("ReadConnections: %v", err)
	}
	want := []common.Connection{{I: 0, J: 1}, {I: 1, J: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected connections: got %v want %v", got, want)
	}
}

func TestReadConnections_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{name: "three columns", input: "0,1\n1,2,3\n", wantLine: 2},
		{name: "one column", input: "4\n", wantLine: 1},
		{name: "not an integer", input: "0,1\n2,x\n", wantLine: 2},
		{name: "float", input: "0.5,1\n", wantLine: 1},
		{name: "unterminated quote", input: "\"0,1\n", wantLine: 1},
		{name: "bare quote", input: "0\"\n", wantLine: 1},
		{name: "bad quote after valid row", input: "0,1\n2,\"3\n", wantLine: 2},
		{name: "blank line between rows", input: "0,1\n\n1,2\n", wantLine: 2},
		{name: "leading blank line", input: "\n0,1\n", wantLine: 1},
		{name: "trailing blank line", input: "0,1\n\n", wantLine: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConnections(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformedRow) {
				t.Fatalf("expected ErrMalformedRow, got %v", err)
			}
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("expected RowError, got %T", err)
			}
			if rowErr.Line != tt.wantLine {
				t.Fatalf("expected line %d, got %d", tt.wantLine, rowErr.Line)
			}
		})
	}
}

func TestWriteConnections(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteConnections(&buf, Seq([]common.Connection{{I: 0, J: 1}, {I: 3, J: 7}}))
	if err != nil {
		t.Fatalf("WriteConnections: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	if buf.String() != "0,1\n3,7\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

type staticLoader struct {
	content []byte
	calls   int
}

func (s *staticLoader) GetFileContent(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	s.calls++
	return s.content, nil
}

func TestConnectionsLoader_Caches(t *testing.T) {
	base := &staticLoader{content: []byte("0,1\n")}
	l := NewConnectionsLoader(base)
	file := loader.NewConnectionsFile(loader.NewSourceFileParams{FilePath: "cnxs.csv", Loader: base})

	for range 2 {
		cnxs, err := l.Load(context.Background(), file)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(cnxs) != 1 {
			t.Fatalf("expected 1 connection, got %d", len(cnxs))
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected one read, got %d", base.calls)
	}
}
