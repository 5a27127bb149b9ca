// Package merge joins two tables of regional data whose identifiers sit at
// different levels of the administrative hierarchy. Each row is lifted onto a
// common ancestor region, both sides are aggregated onto those ancestors, and
// the aggregates are joined.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/johnharveymath/oxcovid19db/internal/gid"
	"github.com/johnharveymath/oxcovid19db/internal/metrics"
	"github.com/johnharveymath/oxcovid19db/internal/rules"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

const validationReason = "columns must include gid and at least one of adm_area_1, adm_area_2, adm_area_3"

// RuleSource supplies the aggregation rules. *rules.Cache implements it.
type RuleSource interface {
	Rules(ctx context.Context) (rules.Rules, error)
	WeightColumn() string
}

// Merger runs merges against one rule source.
type Merger struct {
	rules  RuleSource
	logger *slog.Logger
}

// New returns a Merger. A nil logger means slog.Default.
func New(rs RuleSource, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{rules: rs, logger: logger}
}

// Merge lifts left and right onto common ancestor regions, aggregates each
// side per ancestor (and date, when both sides carry one) and joins the
// aggregates with the given join kind. The result names the ancestor gid and
// administrative columns gid and adm_area_1..3; administrative columns that
// end up entirely null are dropped. The inputs are not modified.
func (m *Merger) Merge(ctx context.Context, left, right *table.Table, how How) (out *table.Table, err error) {
	start := time.Now()
	label := "invalid"
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.MergesTotal.WithLabelValues(label, outcome).Inc()
		metrics.MergeDuration.Observe(time.Since(start).Seconds())
		if out != nil {
			metrics.MergeRows.Observe(float64(out.Len()))
		}
	}()

	if how, err = ParseHow(string(how)); err != nil {
		return nil, err
	}
	label = string(how)
	if err := Validate(left, "left"); err != nil {
		return nil, err
	}
	if err := Validate(right, "right"); err != nil {
		return nil, err
	}

	lids, err := distinctIDs(left, "left")
	if err != nil {
		return nil, err
	}
	rids, err := distinctIDs(right, "right")
	if err != nil {
		return nil, err
	}
	parent := Resolve(lids, rids)
	geo := BuildGeoMap(left, right)
	labelCols := unionAdminColumns(left, right)

	la, err := annotate(left, parent, geo, labelCols)
	if err != nil {
		return nil, err
	}
	ra, err := annotate(right, parent, geo, labelCols)
	if err != nil {
		return nil, err
	}

	rs, err := m.rules.Rules(ctx)
	if err != nil {
		return nil, err
	}
	weight := m.rules.WeightColumn()
	lg, err := Aggregate(la, rs, weight)
	if err != nil {
		return nil, fmt.Errorf("aggregate left: %w", err)
	}
	rg, err := Aggregate(ra, rs, weight)
	if err != nil {
		return nil, fmt.Errorf("aggregate right: %w", err)
	}

	on := JoinColumns(left, right)
	out, err = Join(lg, rg, on, how)
	if err != nil {
		return nil, err
	}
	if err := restoreNames(out); err != nil {
		return nil, err
	}

	m.logger.Debug("merge",
		"how", string(how),
		"left_rows", left.Len(), "right_rows", right.Len(),
		"ancestors", len(gid.Distinct(values(parent))),
		"rows", out.Len(),
	)
	return out, nil
}

// Validate checks that t has a gid column and at least one administrative column.
func Validate(t *table.Table, side string) error {
	if t == nil || !t.Has(table.ColGID) || len(adminColumns(t)) == 0 {
		return &InvalidInputError{Side: side, Reason: validationReason}
	}
	return nil
}

// JoinColumns returns the join key of a merge of l and r: date when both
// sides carry it, then the ancestor columns.
func JoinColumns(l, r *table.Table) []string {
	var on []string
	if l.Has(table.ColDate) && r.Has(table.ColDate) {
		on = append(on, table.ColDate)
	}
	on = append(on, parentColumns...)
	return append(on, colParentGID)
}

func distinctIDs(t *table.Table, side string) ([]gid.ID, error) {
	ids := make([]gid.ID, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, table.ColGID)
		s, ok := v.Str()
		if !ok || s == "" {
			return nil, &InvalidInputError{Side: side, Reason: fmt.Sprintf("row %d has no usable gid (got %s)", i+1, v.Kind())}
		}
		ids = append(ids, gid.ID(s))
	}
	return gid.Distinct(ids), nil
}

// annotate returns a copy of t with the ancestor gid and its administrative
// names attached as working columns. Ancestor names come from every
// administrative column present on either side, so both sides share one key.
func annotate(t *table.Table, parent ParentMap, geo GeoMap, labelCols []string) (*table.Table, error) {
	out := t.Clone()
	ancestor := func(i int) gid.ID {
		s, _ := out.Get(i, table.ColGID).Str()
		return parent[gid.ID(s)]
	}
	if err := out.AddColumn(colParentGID, func(i int) table.Value {
		return table.String(ancestor(i).String())
	}); err != nil {
		return nil, annotateErr(err)
	}
	for _, admin := range table.AdminColumns {
		col := parentOf[admin]
		fill := func(i int) table.Value { return table.Null() }
		if contains(labelCols, admin) {
			fill = func(i int) table.Value { return geo.Label(ancestor(i), admin) }
		}
		if err := out.AddColumn(col, fill); err != nil {
			return nil, annotateErr(err)
		}
	}
	return out, nil
}

func annotateErr(err error) error {
	return &InvalidInputError{Reason: fmt.Sprintf("input uses a reserved column name: %v", err)}
}

// restoreNames renames the ancestor columns back to gid and adm_area_1..3,
// replacing the source columns of the same name, and drops administrative
// columns with no values.
func restoreNames(t *table.Table) error {
	rename := map[string]string{colParentGID: table.ColGID}
	for admin, p := range parentOf {
		rename[p] = admin
	}
	var clash []string
	for _, to := range rename {
		if t.Has(to) {
			clash = append(clash, to)
		}
	}
	t.Drop(clash...)
	if err := t.Rename(rename); err != nil {
		return err
	}
	var empty []string
	for _, c := range table.AdminColumns {
		if t.Has(c) && t.AllNull(c) {
			empty = append(empty, c)
		}
	}
	t.Drop(empty...)
	return nil
}

func unionAdminColumns(l, r *table.Table) []string {
	var out []string
	for _, c := range table.AdminColumns {
		if l.Has(c) || r.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func values(p ParentMap) []gid.ID {
	out := make([]gid.ID, 0, len(p))
	for _, v := range p {
		out = append(out, v)
	}
	return out
}

// IsInvalidInput reports whether err is an input validation failure.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
