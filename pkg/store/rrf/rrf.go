// Package rrf writes knowledge bases as UMLS Metathesaurus style, pipe
// delimited RRF files.
package rrf

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/store"
)

const (
	MRSTY   = "MRSTY.RRF"
	MRCONSO = "MRCONSO.RRF"
	MRSAT   = "MRSAT.RRF"
	MRREL   = "MRREL.RRF"

	conceptPrefix      = "DC"
	atomPrefix         = "DA"
	attributePrefix    = "DAT"
	relationshipPrefix = "DR"

	conceptSubject      = "DSCUI"
	relationshipSubject = "DSRUI"
)

// Files lists the files an export produces.
var Files = []string{MRSTY, MRCONSO, MRSAT, MRREL}

var headers = map[string]string{
	MRSTY:   "CUI|STY",
	MRCONSO: "CUI|AUI|STR|TTY|SAB|SCODE|ISPREF",
	MRSAT:   "ATUI|UI|STYPE|ATN|ATV|SAB",
	MRREL:   "RUI|CUI1|REL|CUI2|SAB",
}

// CreateFunc opens the named output file for writing.
type CreateFunc func(name string) (io.WriteCloser, error)

type Exporter struct {
	create CreateFunc
}

var _ store.Exporter = (*Exporter)(nil)

func NewExporter(create CreateFunc) *Exporter {
	return &Exporter{create: create}
}

// NewDirExporter writes the files into dir, creating it if needed.
func NewDirExporter(dir string) *Exporter {
	return NewExporter(func(name string) (io.WriteCloser, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return os.Create(filepath.Join(dir, name))
	})
}

// Export writes the four RRF files concurrently. Identifiers are written
// with their kind's plain prefix, keeping the number.
func (e *Exporter) Export(ctx context.Context, concepts []*common.Concept) error {
	start := time.Now()
	writers := map[string]func(*csv.Writer, []*common.Concept) error{
		MRSTY:   writeMRSTY,
		MRCONSO: writeMRCONSO,
		MRSAT:   writeMRSAT,
		MRREL:   writeMRREL,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range Files {
		write := writers[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return e.writeFile(name, concepts, write)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("[RRF] Export finished", "concepts", len(concepts), "duration", time.Since(start))
	return nil
}

func (e *Exporter) writeFile(name string, concepts []*common.Concept, write func(*csv.Writer, []*common.Concept) error) error {
	f, err := e.create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := Write(f, name, concepts, write); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}

// Write emits the header of file name followed by the rows produced by
// write.
func Write(w io.Writer, name string, concepts []*common.Concept, write func(*csv.Writer, []*common.Concept) error) error {
	if _, err := io.WriteString(w, headers[name]+"\n"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = '|'
	if err := write(cw, concepts); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func conceptUI(c *common.Concept) string {
	return c.ID.WithPrefix(conceptPrefix).String()
}

func writeMRSTY(w *csv.Writer, concepts []*common.Concept) error {
	for _, c := range concepts {
		if err := w.Write([]string{conceptUI(c), c.Type}); err != nil {
			return err
		}
	}
	return nil
}

func writeMRCONSO(w *csv.Writer, concepts []*common.Concept) error {
	for _, c := range concepts {
		cui := conceptUI(c)
		for _, a := range c.Atoms() {
			pref := "N"
			if a.IsPreferred {
				pref = "Y"
			}
			row := []string{cui, a.ID.WithPrefix(atomPrefix).String(), a.Term, a.TermType, a.Source, a.SourceID, pref}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMRSAT writes concept attributes and the attributes of every
// relationship with a resolved object.
func writeMRSAT(w *csv.Writer, concepts []*common.Concept) error {
	write := func(subject, stype string, attr *common.Attribute) error {
		return w.Write([]string{attr.ID.WithPrefix(attributePrefix).String(), subject, stype, attr.Name, attr.Value, attr.Source})
	}
	for _, c := range concepts {
		cui := conceptUI(c)
		for _, attr := range c.Attributes {
			if err := write(cui, conceptSubject, attr); err != nil {
				return err
			}
		}
		for _, rel := range c.Relationships {
			if !rel.Object.IsResolved() {
				continue
			}
			rui := rel.ID.WithPrefix(relationshipPrefix).String()
			for _, attr := range rel.Attributes {
				if err := write(rui, relationshipSubject, attr); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeMRREL skips relationships whose object is unresolved.
func writeMRREL(w *csv.Writer, concepts []*common.Concept) error {
	for _, c := range concepts {
		cui := conceptUI(c)
		for _, rel := range c.Relationships {
			obj := rel.Object.Concept()
			if obj == nil {
				continue
			}
			row := []string{rel.ID.WithPrefix(relationshipPrefix).String(), cui, rel.Name, conceptUI(obj), rel.Source}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}
