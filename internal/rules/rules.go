// Package rules builds the aggregation rule table: which operator collapses
// each data column, derived from the column lists of the backing store's
// source tables.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/johnharveymath/oxcovid19db/internal/metrics"
)

// WeightColumn is the per-row weight used by WeightedMean.
const WeightColumn = "samplesize"

// DropColumns are never data columns: identifiers, labels and the date key.
var DropColumns = []string{"source", "date", "country", "countrycode", "adm_area_1", "adm_area_2", "adm_area_3", "gid"}

// Source assigns one operator to every data column of a backing-store table.
type Source struct {
	Table string   `yaml:"table"`
	Op    Operator `yaml:"op"`
}

// DefaultSources mirrors the OxCOVID19 schema: case counts are summed,
// mobility indices averaged, and weather readings averaged by sample size.
func DefaultSources() []Source {
	return []Source{
		{Table: "epidemiology", Op: Sum},
		{Table: "mobility", Op: Mean},
		{Table: "weather", Op: WeightedMean},
	}
}

// Describer lists the columns of a backing-store table in schema order.
type Describer interface {
	DescribeColumns(ctx context.Context, table string) ([]string, error)
}

// Rule binds a column to its operator.
type Rule struct {
	Column string
	Op     Operator
}

// Rules is an ordered rule list; the order fixes the output column order.
type Rules []Rule

// Lookup returns the operator for col.
func (r Rules) Lookup(col string) (Operator, bool) {
	for _, rule := range r {
		if rule.Column == col {
			return rule.Op, true
		}
	}
	return 0, false
}

// Cache memoizes column lists per table for its whole lifetime; there is no
// invalidation. It is safe for concurrent use, and concurrent misses for the
// same table share one Describer call.
type Cache struct {
	describer Describer
	sources   []Source
	weight    string
	logger    *slog.Logger

	mu      sync.RWMutex
	columns map[string][]string
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithSources replaces DefaultSources.
func WithSources(s []Source) Option {
	return func(c *Cache) { c.sources = append([]Source(nil), s...) }
}

// WithWeightColumn replaces WeightColumn.
func WithWeightColumn(col string) Option {
	return func(c *Cache) {
		if col != "" {
			c.weight = col
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache returns an empty cache backed by d.
func NewCache(d Describer, opts ...Option) *Cache {
	c := &Cache{
		describer: d,
		sources:   DefaultSources(),
		weight:    WeightColumn,
		logger:    slog.Default(),
		columns:   make(map[string][]string),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WeightColumn returns the weight column used for WeightedMean.
func (c *Cache) WeightColumn() string { return c.weight }

// Sources returns the configured rule sources.
func (c *Cache) Sources() []Source { return append([]Source(nil), c.sources...) }

// Columns returns the data columns of table, asking the Describer on first use.
// A table unknown to the backing store yields a *SchemaMismatchError; any
// other Describer error is returned unchanged.
func (c *Cache) Columns(ctx context.Context, table string) ([]string, error) {
	c.mu.RLock()
	cols, ok := c.columns[table]
	c.mu.RUnlock()
	if ok {
		return cols, nil
	}
	v, err, _ := c.group.Do(table, func() (any, error) {
		c.mu.RLock()
		cols, ok := c.columns[table]
		c.mu.RUnlock()
		if ok {
			return cols, nil
		}
		raw, err := c.describer.DescribeColumns(ctx, table)
		if err != nil {
			if errors.Is(err, ErrUnknownTable) {
				return nil, &SchemaMismatchError{Table: table, Err: err}
			}
			return nil, err
		}
		cols = dataColumns(raw)
		c.mu.Lock()
		c.columns[table] = cols
		c.mu.Unlock()
		metrics.RuleCacheFills.WithLabelValues(table).Inc()
		c.logger.Debug("rule_cache_fill", "table", table, "columns", len(cols))
		return cols, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Rules classifies every column of every source table. When a column appears
// in several sources the later source decides its operator while the column
// keeps its first position. The weight column is never itself aggregated by a
// WeightedMean source.
func (c *Cache) Rules(ctx context.Context) (Rules, error) {
	var out Rules
	pos := make(map[string]int)
	for _, src := range c.sources {
		cols, err := c.Columns(ctx, src.Table)
		if err != nil {
			return nil, fmt.Errorf("rules for %s: %w", src.Table, err)
		}
		for _, col := range cols {
			if src.Op == WeightedMean && col == c.weight {
				continue
			}
			if i, ok := pos[col]; ok {
				out[i].Op = src.Op
				continue
			}
			pos[col] = len(out)
			out = append(out, Rule{Column: col, Op: src.Op})
		}
	}
	return out, nil
}

func dataColumns(raw []string) []string {
	drop := make(map[string]bool, len(DropColumns))
	for _, d := range DropColumns {
		drop[d] = true
	}
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if !drop[c] {
			out = append(out, c)
		}
	}
	return out
}

// StaticDescriber serves column lists from memory, for offline use and tests.
type StaticDescriber map[string][]string

// DescribeColumns implements Describer.
func (s StaticDescriber) DescribeColumns(_ context.Context, table string) ([]string, error) {
	cols, ok := s[table]
	if !ok {
		return nil, fmt.Errorf("describe %s: %w", table, ErrUnknownTable)
	}
	return append([]string(nil), cols...), nil
}
