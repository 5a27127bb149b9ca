package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// jsonFormat uses the table's own {"columns": [...], "rows": [[...]]} encoding.
type jsonFormat struct{}

func (jsonFormat) Name() string         { return "json" }
func (jsonFormat) Extensions() []string { return []string{".json"} }

func (jsonFormat) Read(r io.Reader, _ string, opt Options) (*table.Table, error) {
	var t table.Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if opt.MaxRows > 0 && t.Len() > opt.MaxRows {
		out := table.New(t.Columns()...)
		for i := 0; i < opt.MaxRows; i++ {
			if err := out.Append(t.Row(i)...); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return &t, nil
}

func (jsonFormat) Write(w io.Writer, t *table.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
