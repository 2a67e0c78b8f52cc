package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// ErrMalformedRow is returned for rows that are not exactly two integers.
var ErrMalformedRow = errors.New("connection row must be two integer columns")

// RowError reports the 1-based line of a malformed connection row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadConnections parses a headerless two column CSV of concept indices.
// Any row that is not exactly two integers aborts the read, blank lines
// included.
func ReadConnections(r io.Reader) ([]common.Connection, error) {
	counter := &lineCounter{r: r}
	reader := csv.NewReader(counter)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	var cnxs []common.Connection
	last := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := last + 1
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)}
		}
		line, _ := reader.FieldPos(0)
		if line != last+1 {
			return nil, &RowError{Line: last + 1, Err: fmt.Errorf("%w: blank line", ErrMalformedRow)}
		}
		if len(row) != 2 {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: got %d columns", ErrMalformedRow, len(row))}
		}
		i, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: %q", ErrMalformedRow, row[0])}
		}
		j, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: %q", ErrMalformedRow, row[1])}
		}
		cnxs = append(cnxs, common.Connection{I: i, J: j})
		last = line
	}
	// encoding/csv drops blank lines silently, trailing ones included.
	if counter.newlines > last {
		return nil, &RowError{Line: last + 1, Err: fmt.Errorf("%w: blank line", ErrMalformedRow)}
	}
	return cnxs, nil
}

type lineCounter struct {
	r        io.Reader
	newlines int
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.newlines += bytes.Count(p[:n], []byte{'\n'})
	return n, err
}

func ParseConnections(content []byte) ([]common.Connection, error) {
	return ReadConnections(bytes.NewReader(content))
}

// WriteConnections writes one "i,j" row per connection and returns the
// number of rows written. The sequence is consumed lazily.
func WriteConnections(w io.Writer, cnxs iter.Seq[common.Connection]) (int, error) {
	writer := csv.NewWriter(w)
	n := 0
	row := make([]string, 2)
	for c := range cnxs {
		row[0] = strconv.Itoa(c.I)
		row[1] = strconv.Itoa(c.J)
		if err := writer.Write(row); err != nil {
			return n, fmt.Errorf("failed to write connection %s: %w", c, err)
		}
		n++
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return n, fmt.Errorf("failed to flush connections: %w", err)
	}
	return n, nil
}

// Seq adapts a slice of connections to WriteConnections.
func Seq(cnxs []common.Connection) iter.Seq[common.Connection] {
	return func(yield func(common.Connection) bool) {
		for _, c := range cnxs {
			if !yield(c) {
				return
			}
		}
	}
}

// ConnectionsLoader loads and parses connection files through a base
// FileLoader. Parsed results are cached per file.
type ConnectionsLoader struct {
	loader loader.FileLoader

	cache   map[string][]common.Connection
	cacheMu sync.RWMutex
	group   singleflight.Group
}

func NewConnectionsLoader(base loader.FileLoader) *ConnectionsLoader {
	return &ConnectionsLoader{
		loader: base,
		cache:  make(map[string][]common.Connection),
	}
}

// Load retrieves and parses the connections file.
func (l *ConnectionsLoader) Load(ctx context.Context, file loader.SourceFile) ([]common.Connection, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		content, err := l.loader.GetFileContent(ctx, file)
		if err != nil {
			return nil, err
		}

		parsed, err := ParseConnections(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.FilePath, err)
		}

		l.cacheMu.Lock()
		l.cache[key] = parsed
		l.cacheMu.Unlock()

		return parsed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]common.Connection), nil
}
