package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnharveymath/oxcovid19db/internal/gid"
)

type wireTable struct {
	Columns []string            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

// MarshalJSON renders v as null, a number, or a string; dates use DateLayout
// (or RFC 3339 when they carry a time of day).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString, KindDate:
		return json.Marshal(v.String())
	default:
		return []byte("null"), nil
	}
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		rows[i] = r
	}
	return json.Marshal(struct {
		Columns []string  `json:"columns"`
		Rows    [][]Value `json:"rows"`
	}{Columns: t.columns, Rows: rows})
}

// UnmarshalJSON decodes the format written by MarshalJSON. Strings in the date
// column become dates, and an array in the gid column becomes a composite gid.
func (t *Table) UnmarshalJSON(b []byte) error {
	var w wireTable
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	seen := make(map[string]bool, len(w.Columns))
	for _, c := range w.Columns {
		if seen[c] {
			return fmt.Errorf("decode table: duplicate column %q", c)
		}
		seen[c] = true
	}
	nt := New(w.Columns...)
	for i, raw := range w.Rows {
		if len(raw) != len(w.Columns) {
			return fmt.Errorf("decode table: row %d has %d cells, want %d", i, len(raw), len(w.Columns))
		}
		row := make([]Value, len(raw))
		for j, cell := range raw {
			v, err := decodeCell(w.Columns[j], cell)
			if err != nil {
				return fmt.Errorf("decode table: row %d column %q: %w", i, w.Columns[j], err)
			}
			row[j] = v
		}
		if err := nt.Append(row...); err != nil {
			return err
		}
	}
	*t = *nt
	return nil
}

func decodeCell(col string, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return Null(), nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Null(), err
		}
		if col == ColDate {
			if ts, ok := ParseTime(s); ok {
				return Date(ts), nil
			}
		}
		return String(s), nil
	case '[':
		var members []string
		if err := json.Unmarshal(raw, &members); err != nil {
			return Null(), err
		}
		if col == ColGID {
			return String(string(gid.Compose(members...))), nil
		}
		return String(strings.Join(members, ",")), nil
	case 't', 'f':
		var bv bool
		if err := json.Unmarshal(raw, &bv); err != nil {
			return Null(), err
		}
		if bv {
			return Number(1), nil
		}
		return Number(0), nil
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Null(), err
		}
		return Number(f), nil
	}
}
