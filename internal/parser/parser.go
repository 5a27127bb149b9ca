// Package parser reads and writes tables in the file formats the CLI accepts,
// selected by file extension.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnharveymath/oxcovid19db/internal/table"
	"github.com/johnharveymath/oxcovid19db/internal/utils"
)

// Options controls how files are read.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the extension (tab for .tsv, else comma).
	Delimiter rune
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Parse controls how text cells are typed.
	Parse table.ParseOptions
}

// Format is one table file format.
type Format interface {
	Name() string
	Extensions() []string
	Read(r io.Reader, name string, opt Options) (*table.Table, error)
	Write(w io.Writer, t *table.Table) error
}

var registry []Format

// Register adds a format to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// ErrUnsupported indicates a format or direction that is not supported.
var ErrUnsupported = errors.New("unsupported table format")

// Lookup returns the format registered for the extension of path.
func Lookup(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// ReadFile loads the table stored at path.
func ReadFile(path string, opt Options) (*table.Table, error) {
	f, err := Lookup(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer fh.Close()
	t, err := f.Read(fh, path, opt)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// WriteFile stores t at path in the format implied by its extension.
func WriteFile(path string, t *table.Table) error {
	f, err := Lookup(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.Write(&buf, t); err != nil {
		return fmt.Errorf("encode %s: %w", f.Name(), err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Write encodes t in the named format ("csv", "json", ...).
func Write(w io.Writer, format string, t *table.Table) error {
	for _, f := range registry {
		if strings.EqualFold(f.Name(), format) {
			return f.Write(w, t)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupported, format)
}

// newTable builds a table from a header, rejecting blank or repeated names.
func newTable(header []string) (*table.Table, error) {
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
		header[i] = h
	}
	return table.New(header...), nil
}

// appendText types and appends one record, padding short records with nulls.
func appendText(t *table.Table, rec []string, opt Options) error {
	cols := t.Columns()
	if len(rec) > len(cols) {
		return fmt.Errorf("row %d has %d fields, header has %d", t.Len()+1, len(rec), len(cols))
	}
	cells := make([]table.Value, len(cols))
	for j, c := range cols {
		if j < len(rec) {
			cells[j] = table.ParseCell(c, rec[j], opt.Parse)
		}
	}
	return t.Append(cells...)
}

func init() {
	Register(csvFormat{})
	Register(xlsxFormat{})
	Register(jsonFormat{})
	Register(markdownFormat{})
}
