// Package analysis profiles a table: inferred column kinds, missingness,
// numeric statistics and the strongest numeric correlations, rendered as a
// compact Markdown report.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/johnharveymath/oxcovid19db/internal/gid"
	"github.com/johnharveymath/oxcovid19db/internal/merge"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// Options controls report detail.
type Options struct {
	// SampleRows is the number of leading rows shown; 0 disables samples.
	SampleRows int
	// TopValues is the number of frequent values listed for categorical columns.
	TopValues int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
}

// DefaultOptions returns reasonable defaults for a merge result.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 5, Correlations: true}
}

// Report is a markdown-friendly profile of a table.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Corr     []PairCorr
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|mixed|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min, Max, Mean, Median, Std float64
	// Date range
	First, Last string
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// PairCorr is a correlation between two numeric columns.
type PairCorr struct {
	A, B string
	R    float64
	N    int
}

// Analyze profiles t under the given report name.
func Analyze(name string, t *table.Table, opt Options) (*Report, error) {
	rep := &Report{Name: name, Rows: t.Len()}
	var numericCols []string
	for _, c := range t.Columns() {
		cs, err := summarize(c, t.Column(c), opt)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		rep.Cols = append(rep.Cols, cs)
		if cs.Kind == "numeric" {
			numericCols = append(numericCols, c)
		}
		if cs.Kind == "empty" && t.Len() > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", c))
		}
	}
	if err := merge.Validate(t, "this"); err != nil {
		rep.Warnings = append(rep.Warnings, err.Error()+"; it cannot be merged")
	} else if n := compositeCount(t); n > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d rows carry composite gids (members joined by %q)", n, gid.Sep))
	}
	if opt.Correlations && len(numericCols) >= 2 {
		corr, err := correlations(t, numericCols)
		if err != nil {
			return nil, err
		}
		rep.Corr = corr
	}
	for i := 0; i < t.Len() && i < opt.SampleRows; i++ {
		row := make([]string, 0, len(rep.Cols))
		for _, v := range t.Row(i) {
			row = append(row, v.String())
		}
		rep.Samples = append(rep.Samples, row)
	}
	return rep, nil
}

func summarize(name string, vals []table.Value, opt Options) (ColumnSummary, error) {
	cs := ColumnSummary{Name: name}
	kinds := map[table.Kind]int{}
	counts := map[string]int{}
	var nums []float64
	var first, last table.Value
	for _, v := range vals {
		if v.IsNull() {
			cs.Missing++
			continue
		}
		cs.NonNull++
		kinds[v.Kind()]++
		counts[v.Key()]++
		switch v.Kind() {
		case table.KindNumber:
			f, _ := v.Num()
			nums = append(nums, f)
		case table.KindDate:
			if first.IsNull() || table.Compare(v, first) < 0 {
				first = v
			}
			if last.IsNull() || table.Compare(v, last) > 0 {
				last = v
			}
		}
	}
	cs.Unique = len(counts)

	switch {
	case cs.NonNull == 0:
		cs.Kind = "empty"
	case len(kinds) > 1:
		cs.Kind = "mixed"
	case kinds[table.KindNumber] > 0:
		cs.Kind = "numeric"
		var err error
		if cs.Min, err = stats.Min(nums); err != nil {
			return cs, err
		}
		if cs.Max, err = stats.Max(nums); err != nil {
			return cs, err
		}
		if cs.Mean, err = stats.Mean(nums); err != nil {
			return cs, err
		}
		if cs.Median, err = stats.Median(nums); err != nil {
			return cs, err
		}
		if len(nums) > 1 {
			if cs.Std, err = stats.StandardDeviationSample(nums); err != nil {
				return cs, err
			}
		}
	case kinds[table.KindDate] > 0:
		cs.Kind = "datetime"
		cs.First, cs.Last = first.String(), last.String()
	default:
		cs.Kind = "text"
		if cs.Unique <= 50 || cs.Unique*2 <= cs.NonNull {
			cs.Kind = "categorical"
			cs.TopValues = topValues(vals, opt.TopValues)
		}
	}
	return cs, nil
}

func topValues(vals []table.Value, n int) []CategoryCount {
	if n <= 0 {
		return nil
	}
	counts := map[string]int{}
	for _, v := range vals {
		if !v.IsNull() {
			counts[v.String()]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, CategoryCount{Value: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// correlations returns Pearson r for every numeric column pair with at least
// three complete rows, strongest first.
func correlations(t *table.Table, cols []string) ([]PairCorr, error) {
	var out []PairCorr
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			var xs, ys []float64
			for r := 0; r < t.Len(); r++ {
				x, okx := t.Get(r, cols[i]).Num()
				y, oky := t.Get(r, cols[j]).Num()
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			if len(xs) < 3 {
				continue
			}
			rv, err := stats.Pearson(xs, ys)
			if err != nil || math.IsNaN(rv) {
				continue
			}
			out = append(out, PairCorr{A: cols[i], B: cols[j], R: rv, N: len(xs)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].R), math.Abs(out[j].R)
		if ai == aj {
			return out[i].A+out[i].B < out[j].A+out[j].B
		}
		return ai > aj
	})
	return out, nil
}

func compositeCount(t *table.Table) int {
	n := 0
	for _, v := range t.Column(table.ColGID) {
		if s, ok := v.Str(); ok && strings.Contains(s, gid.Sep) {
			n++
		}
	}
	return n
}
