package job

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/johnharveymath/oxcovid19db/internal/parser"
	"github.com/johnharveymath/oxcovid19db/internal/table"
	"github.com/johnharveymath/oxcovid19db/internal/utils"
)

// Querier runs SQL against the backing store. *store.Store implements it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*table.Table, error)
}

// Source names where one side of a merge comes from: a table file or a query.
type Source struct {
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
	Sheet string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Query string `yaml:"query,omitempty" json:"query,omitempty"`
	Args  []any  `yaml:"args,omitempty" json:"args,omitempty"`
}

// Validate requires exactly one of File and Query.
func (s Source) Validate() error {
	hasFile, hasQuery := strings.TrimSpace(s.File) != "", strings.TrimSpace(s.Query) != ""
	switch {
	case hasFile && hasQuery:
		return errors.New("set either file or query, not both")
	case !hasFile && !hasQuery:
		return errors.New("file or query is required")
	}
	return nil
}

// Describe returns a short label for logs.
func (s Source) Describe() string {
	if s.File != "" {
		return s.File
	}
	q := strings.Join(strings.Fields(s.Query), " ")
	if len(q) > 60 {
		q = q[:57] + "..."
	}
	return "query: " + q
}

// Load reads the source. Relative file paths resolve against base. A query
// source needs q.
func (s Source) Load(ctx context.Context, base string, q Querier, opt parser.Options) (*table.Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.File != "" {
		opt.Sheet = s.Sheet
		return parser.ReadFile(utils.ResolveRelative(base, utils.ExpandHome(s.File)), opt)
	}
	if q == nil {
		return nil, errors.New("query source needs a database connection")
	}
	return q.Query(ctx, s.Query, s.Args...)
}

// LoadPair loads both sides concurrently.
func LoadPair(ctx context.Context, base string, q Querier, opt parser.Options, left, right Source) (*table.Table, *table.Table, error) {
	var lt, rt *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if lt, err = left.Load(gctx, base, q, opt); err != nil {
			return fmt.Errorf("left (%s): %w", left.Describe(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rt, err = right.Load(gctx, base, q, opt); err != nil {
			return fmt.Errorf("right (%s): %w", right.Describe(), err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lt, rt, nil
}
