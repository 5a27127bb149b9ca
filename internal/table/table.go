// Package table provides the in-memory record table shared by loaders, the
// merge engine and the renderers: ordered named columns over rows of typed
// cells.
package table

import (
	"fmt"
	"sort"
)

// Administrative name columns, country level first.
const (
	ColGID  = "gid"
	ColDate = "date"
	ColAdm1 = "adm_area_1"
	ColAdm2 = "adm_area_2"
	ColAdm3 = "adm_area_3"
)

// AdminColumns lists the administrative columns in hierarchy order.
var AdminColumns = []string{ColAdm1, ColAdm2, ColAdm3}

// IsAdminColumn reports whether col is one of AdminColumns.
func IsAdminColumn(col string) bool {
	for _, c := range AdminColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Row is one record; its cells line up with the table's columns.
type Row []Value

// Table is an ordered collection of rows with named columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New creates an empty table with the given columns. Duplicate names panic.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := t.index[c]; dup {
			panic(fmt.Sprintf("table: duplicate column %q", c))
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Has reports whether the table has column col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Index returns the position of column col.
func (t *Table) Index(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns row i. Callers must not modify it.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Append adds a row; the number of values must match the columns.
func (t *Table) Append(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("append row: got %d values for %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, Row(append([]Value(nil), values...)))
	return nil
}

// Get returns the cell of row i in column col, or null when the column is absent.
func (t *Table) Get(i int, col string) Value {
	j, ok := t.index[col]
	if !ok {
		return Null()
	}
	return t.rows[i][j]
}

// Set overwrites the cell of row i in column col.
func (t *Table) Set(i int, col string, v Value) error {
	j, ok := t.index[col]
	if !ok {
		return fmt.Errorf("set: unknown column %q", col)
	}
	t.rows[i][j] = v
	return nil
}

// Column returns the cells of col in row order.
func (t *Table) Column(col string) []Value {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out
}

// AddColumn appends column name, filling each row from fill.
func (t *Table) AddColumn(name string, fill func(i int) Value) error {
	if t.Has(name) {
		return fmt.Errorf("add column: %q already exists", name)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		v := Null()
		if fill != nil {
			v = fill(i)
		}
		t.rows[i] = append(t.rows[i], v)
	}
	return nil
}

// Rename renames columns according to m. Renaming onto an existing column is an error.
func (t *Table) Rename(m map[string]string) error {
	next := t.Columns()
	for i, c := range next {
		if to, ok := m[c]; ok {
			next[i] = to
		}
	}
	idx := make(map[string]int, len(next))
	for i, c := range next {
		if _, dup := idx[c]; dup {
			return fmt.Errorf("rename: duplicate column %q", c)
		}
		idx[c] = i
	}
	t.columns, t.index = next, idx
	return nil
}

// Drop removes the named columns; unknown names are ignored.
func (t *Table) Drop(cols ...string) {
	drop := make(map[int]bool, len(cols))
	for _, c := range cols {
		if j, ok := t.index[c]; ok {
			drop[j] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := make([]int, 0, len(t.columns)-len(drop))
	for j := range t.columns {
		if !drop[j] {
			keep = append(keep, j)
		}
	}
	cols2 := make([]string, len(keep))
	idx := make(map[string]int, len(keep))
	for k, j := range keep {
		cols2[k] = t.columns[j]
		idx[cols2[k]] = k
	}
	for i, r := range t.rows {
		nr := make(Row, len(keep))
		for k, j := range keep {
			nr[k] = r[j]
		}
		t.rows[i] = nr
	}
	t.columns, t.index = cols2, idx
}

// AllNull reports whether every cell of col is null. An absent column counts as null.
func (t *Table) AllNull(col string) bool {
	j, ok := t.index[col]
	if !ok {
		return true
	}
	for _, r := range t.rows {
		if !r[j].IsNull() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := New(t.columns...)
	c.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = append(Row(nil), r...)
	}
	return c
}

// SortBy stably sorts rows by the given columns, nulls last.
func (t *Table) SortBy(cols ...string) {
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		if j, ok := t.index[c]; ok {
			idx = append(idx, j)
		}
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, j := range idx {
			if c := Compare(t.rows[a][j], t.rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// RowKey encodes the cells of row i in the given columns as one comparable key.
// Absent columns contribute a null.
func (t *Table) RowKey(i int, cols []string) string {
	var b []byte
	for _, c := range cols {
		b = append(b, t.Get(i, c).Key()...)
		b = append(b, 0x1f)
	}
	return string(b)
}
