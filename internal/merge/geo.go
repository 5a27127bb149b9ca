package merge

import (
	"github.com/johnharveymath/oxcovid19db/internal/gid"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// Labels holds the administrative names known for one identifier, keyed by
// administrative column. Columns the source table lacked are absent.
type Labels map[string]table.Value

// GeoMap maps identifiers to their administrative names.
type GeoMap map[gid.ID]Labels

// Label returns the name recorded for id in column col, or null.
func (g GeoMap) Label(id gid.ID, col string) table.Value {
	if l, ok := g[id]; ok {
		if v, ok := l[col]; ok {
			return v
		}
	}
	return table.Null()
}

// BuildGeoMap collects the administrative names of every identifier in left
// and right. Within one side a later row replaces an earlier one; across
// sides the right entry replaces the left entry for the same identifier.
func BuildGeoMap(left, right *table.Table) GeoMap {
	out := sideGeoMap(left)
	for id, l := range sideGeoMap(right) {
		out[id] = l
	}
	return out
}

func sideGeoMap(t *table.Table) GeoMap {
	cols := adminColumns(t)
	m := make(GeoMap)
	for i := 0; i < t.Len(); i++ {
		s, ok := t.Get(i, table.ColGID).Str()
		if !ok {
			continue
		}
		l := make(Labels, len(cols))
		for _, c := range cols {
			l[c] = t.Get(i, c)
		}
		m[gid.ID(s)] = l
	}
	return m
}

// adminColumns returns the administrative columns present in t, in hierarchy order.
func adminColumns(t *table.Table) []string {
	var out []string
	for _, c := range table.AdminColumns {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
