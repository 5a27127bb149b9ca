package merge

import (
	"fmt"
	"strings"

	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// How is the relational join kind.
type How string

const (
	Inner How = "inner"
	Left  How = "left"
	Right How = "right"
	Outer How = "outer"
)

// ParseHow validates a join kind; the empty string means Inner.
func ParseHow(s string) (How, error) {
	switch h := How(strings.ToLower(strings.TrimSpace(s))); h {
	case "":
		return Inner, nil
	case Inner, Left, Right, Outer:
		return h, nil
	}
	return "", &InvalidInputError{Reason: fmt.Sprintf("unknown join kind %q (use inner|left|right|outer)", s)}
}

// Join joins l and r on the key columns, which both must carry. Null keys
// match null keys. Non-key columns present on both sides get "_x" and "_y"
// suffixes. Inner and left joins keep the order of l, right joins the order
// of r, and outer joins sort by the key columns.
func Join(l, r *table.Table, on []string, how How) (*table.Table, error) {
	how, err := ParseHow(string(how))
	if err != nil {
		return nil, err
	}
	for _, k := range on {
		if !l.Has(k) || !r.Has(k) {
			return nil, fmt.Errorf("join: key column %q missing", k)
		}
	}
	isKey := make(map[string]bool, len(on))
	for _, k := range on {
		isKey[k] = true
	}

	lcols, rcols := l.Columns(), r.Columns()
	inLeft := make(map[string]bool, len(lcols))
	for _, c := range lcols {
		inLeft[c] = true
	}
	shared := make(map[string]bool)
	for _, c := range rcols {
		if inLeft[c] && !isKey[c] {
			shared[c] = true
		}
	}

	var outCols []string
	for _, c := range lcols {
		if shared[c] {
			c += "_x"
		}
		outCols = append(outCols, c)
	}
	var rData []string
	for _, c := range rcols {
		if isKey[c] {
			continue
		}
		rData = append(rData, c)
		if shared[c] {
			c += "_y"
		}
		outCols = append(outCols, c)
	}
	out := table.New(outCols...)

	emit := func(li, ri int) error {
		cells := make([]table.Value, 0, len(outCols))
		for _, c := range lcols {
			switch {
			case li >= 0:
				cells = append(cells, l.Get(li, c))
			case isKey[c]:
				cells = append(cells, r.Get(ri, c))
			default:
				cells = append(cells, table.Null())
			}
		}
		for _, c := range rData {
			if ri >= 0 {
				cells = append(cells, r.Get(ri, c))
			} else {
				cells = append(cells, table.Null())
			}
		}
		return out.Append(cells...)
	}

	if how == Right {
		lidx := index(l, on)
		for ri := 0; ri < r.Len(); ri++ {
			matches := lidx[r.RowKey(ri, on)]
			if len(matches) == 0 {
				if err := emit(-1, ri); err != nil {
					return nil, err
				}
				continue
			}
			for _, li := range matches {
				if err := emit(li, ri); err != nil {
					return nil, err
				}
			}
		}
		return out, nil
	}

	ridx := index(r, on)
	matched := make([]bool, r.Len())
	for li := 0; li < l.Len(); li++ {
		matches := ridx[l.RowKey(li, on)]
		if len(matches) == 0 && (how == Left || how == Outer) {
			if err := emit(li, -1); err != nil {
				return nil, err
			}
		}
		for _, ri := range matches {
			matched[ri] = true
			if err := emit(li, ri); err != nil {
				return nil, err
			}
		}
	}
	if how == Outer {
		for ri, ok := range matched {
			if ok {
				continue
			}
			if err := emit(-1, ri); err != nil {
				return nil, err
			}
		}
		out.SortBy(on...)
	}
	return out, nil
}

func index(t *table.Table, on []string) map[string][]int {
	m := make(map[string][]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		k := t.RowKey(i, on)
		m[k] = append(m[k], i)
	}
	return m
}
