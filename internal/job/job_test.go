package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnharveymath/oxcovid19db/internal/merge"
	"github.com/johnharveymath/oxcovid19db/internal/parser"
	"github.com/johnharveymath/oxcovid19db/internal/rules"
	"github.com/johnharveymath/oxcovid19db/internal/table"
)

func testDeps(q Querier) Deps {
	rs := rules.NewCache(rules.StaticDescriber{
		"epidemiology": {"source", "date", "gid", "adm_area_1", "confirmed"},
		"mobility":     {"source", "date", "gid", "transit_stations"},
		"weather":      {"source", "date", "gid", "samplesize", "temperature_mean"},
	})
	return Deps{Merger: merge.New(rs, nil), Querier: q}
}

func writeJobDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"epi.csv": "gid,adm_area_1,confirmed\nFRA.1_1,Auvergne,10\nFRA.2_1,Bretagne,5\n",
		"mob.csv": "gid,adm_area_1,transit_stations\nFRA.1_1,Auvergne,-30\nFRA.2_1,Bretagne,-10\n",
		"merge.yaml": "name: france\nhow: inner\nleft:\n  file: epi.csv\nright:\n  file: mob.csv\n" +
			"output: out/merged.csv\nsummary: true\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

type fakeQuerier struct {
	tables map[string]*table.Table
}

func (f fakeQuerier) Query(_ context.Context, q string, _ ...any) (*table.Table, error) {
	tb, ok := f.tables[q]
	if !ok {
		return nil, errors.New("no such query")
	}
	return tb, nil
}

func TestRunWritesOutputAndHistory(t *testing.T) {
	dir := writeJobDir(t)
	j, err := Load(filepath.Join(dir, "merge.yaml"))
	require.NoError(t, err)

	res, err := j.Run(context.Background(), testDeps(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2, res.Table.Len())
	require.NotNil(t, res.Report)
	assert.Equal(t, 2, res.Report.Rows)

	out, err := parser.ReadFile(filepath.Join(dir, "out", "merged.csv"), parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"adm_area_1", "gid", "confirmed_sum", "transit_stations_mean"}, out.Columns())

	require.Len(t, j.History, 1)
	assert.Equal(t, res.ID, j.History[0].ID)
	assert.Equal(t, 2, j.History[0].Rows)
	require.NoError(t, j.Save())

	again, err := Load(j.Path())
	require.NoError(t, err)
	require.Len(t, again.History, 1)
	assert.Equal(t, res.ID, again.History[0].ID)
}

func TestRunRecordsFailure(t *testing.T) {
	dir := writeJobDir(t)
	j, err := Load(filepath.Join(dir, "merge.yaml"))
	require.NoError(t, err)
	j.Right = Source{File: "missing.csv"}

	_, err = j.Run(context.Background(), testDeps(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "right (missing.csv)")
	require.Len(t, j.History, 1)
	assert.NotEmpty(t, j.History[0].Error)
}

func TestRunFromQueries(t *testing.T) {
	left := table.New("gid", "adm_area_1", "confirmed")
	require.NoError(t, left.Append(table.String("ITA.1_1"), table.String("Abruzzo"), table.Number(3)))
	right := table.New("gid", "adm_area_1", "transit_stations")
	require.NoError(t, right.Append(table.String("ITA_1"), table.Null(), table.Number(-20)))
	q := fakeQuerier{tables: map[string]*table.Table{"left": left, "right": right}}

	j := &Job{Name: "italy", How: merge.Outer, Left: Source{Query: "left"}, Right: Source{Query: "right"}}
	res, err := j.Run(context.Background(), testDeps(q))
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	s, _ := res.Table.Get(0, "gid").Str()
	assert.Equal(t, "ITA_1", s)
}

func TestQuerySourceNeedsConnection(t *testing.T) {
	_, err := Source{Query: "select 1"}.Load(context.Background(), "", nil, parser.Options{})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]Job{
		"no name":    {Left: Source{File: "a.csv"}, Right: Source{File: "b.csv"}},
		"bad how":    {Name: "x", How: "cross", Left: Source{File: "a.csv"}, Right: Source{File: "b.csv"}},
		"both":       {Name: "x", Left: Source{File: "a.csv", Query: "q"}, Right: Source{File: "b.csv"}},
		"neither":    {Name: "x", Left: Source{File: "a.csv"}},
		"bad output": {Name: "x", Left: Source{File: "a.csv"}, Right: Source{File: "b.csv"}, Output: "out.parquet"},
	}
	for name, j := range cases {
		j := j
		assert.Error(t, j.Validate(), name)
	}
	ok := Job{Name: "x", Left: Source{File: "a.csv"}, Right: Source{Query: "q"}}
	require.NoError(t, ok.Validate())
	assert.Equal(t, merge.Inner, ok.How)
}

func TestHistoryIsBounded(t *testing.T) {
	j := &Job{}
	for i := 0; i < maxHistory+5; i++ {
		j.record(&Result{ID: strings.Repeat("x", i+1)}, nil)
	}
	require.Len(t, j.History, maxHistory)
	assert.Equal(t, strings.Repeat("x", maxHistory+5), j.History[maxHistory-1].ID)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
