package merge

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/johnharveymath/oxcovid19db/internal/rules"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// Working columns carrying the chosen ancestor and its administrative names.
const (
	colParent1   = "parent1"
	colParent2   = "parent2"
	colParent3   = "parent3"
	colParentGID = "parentgid"
)

var parentColumns = []string{colParent1, colParent2, colParent3}

// parentOf maps administrative columns to their ancestor working columns.
var parentOf = map[string]string{
	table.ColAdm1: colParent1,
	table.ColAdm2: colParent2,
	table.ColAdm3: colParent3,
}

// GroupColumns returns the grouping key of t: the ancestor working columns
// present, then date when present.
func GroupColumns(t *table.Table) []string {
	var keys []string
	for _, c := range append(append([]string(nil), parentColumns...), colParentGID) {
		if t.Has(c) {
			keys = append(keys, c)
		}
	}
	if t.Has(table.ColDate) {
		keys = append(keys, table.ColDate)
	}
	return keys
}

// Aggregate collapses t to one row per distinct grouping key (see
// GroupColumns), applying each rule whose column t carries. Null is a group
// value of its own. Output columns are the grouping columns followed by
// <column>_sum, <column>_mean or <column>_wtmean in rule order; rows are
// sorted by the grouping columns with nulls last.
//
// Sum and Mean ignore null cells; a group with none sums to 0 and has a null
// mean. A WeightedMean rule needs the weight column.
// WeightedMean uses the rows where both the value and the weight column are
// present and yields null when their total weight is zero.
func Aggregate(t *table.Table, rs rules.Rules, weight string) (*table.Table, error) {
	keys := GroupColumns(t)
	var applied rules.Rules
	for _, r := range rs {
		if !t.Has(r.Column) {
			continue
		}
		if r.Op == rules.WeightedMean && !t.Has(weight) {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("column %s needs weight column %s", r.Column, weight)}
		}
		applied = append(applied, r)
	}

	outCols := append([]string(nil), keys...)
	for _, r := range applied {
		outCols = append(outCols, r.Column+r.Op.Suffix())
	}

	var order []string
	members := make(map[string][]int)
	for i := 0; i < t.Len(); i++ {
		k := t.RowKey(i, keys)
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
	}

	out := table.New(outCols...)
	for _, k := range order {
		rows := members[k]
		cells := make([]table.Value, 0, len(outCols))
		for _, c := range keys {
			cells = append(cells, t.Get(rows[0], c))
		}
		for _, r := range applied {
			v, err := reduce(t, rows, r, weight)
			if err != nil {
				return nil, err
			}
			cells = append(cells, v)
		}
		if err := out.Append(cells...); err != nil {
			return nil, err
		}
	}
	out.SortBy(keys...)
	return out, nil
}

func reduce(t *table.Table, rows []int, r rules.Rule, weight string) (table.Value, error) {
	var xs, ws []float64
	for _, i := range rows {
		x, ok, err := numeric(t.Get(i, r.Column), r.Column)
		if err != nil {
			return table.Null(), err
		}
		if !ok {
			continue
		}
		if r.Op == rules.WeightedMean {
			w, ok, err := numeric(t.Get(i, weight), weight)
			if err != nil {
				return table.Null(), err
			}
			if !ok {
				continue
			}
			ws = append(ws, w)
		}
		xs = append(xs, x)
	}
	if len(xs) == 0 {
		if r.Op == rules.Sum {
			return table.Number(0), nil
		}
		return table.Null(), nil
	}
	switch r.Op {
	case rules.Sum:
		s, err := stats.Sum(xs)
		if err != nil {
			return table.Null(), fmt.Errorf("sum %s: %w", r.Column, err)
		}
		return table.Number(s), nil
	case rules.Mean:
		m, err := stats.Mean(xs)
		if err != nil {
			return table.Null(), fmt.Errorf("mean %s: %w", r.Column, err)
		}
		return table.Number(m), nil
	case rules.WeightedMean:
		total, err := stats.Sum(ws)
		if err != nil || total == 0 {
			return table.Null(), nil
		}
		return table.Number(stat.Mean(xs, ws)), nil
	}
	return table.Null(), fmt.Errorf("column %s: unsupported operator %v", r.Column, r.Op)
}

func numeric(v table.Value, col string) (float64, bool, error) {
	if v.IsNull() {
		return 0, false, nil
	}
	f, ok := v.Num()
	if !ok {
		return 0, false, fmt.Errorf("column %s: cannot aggregate non-numeric value %q", col, v.String())
	}
	return f, true, nil
}
