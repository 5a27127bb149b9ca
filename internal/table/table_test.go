package table

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tb := New("gid", "adm_area_1", "date", "confirmed")
	d := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tb.Append(String("GBR.1_1"), String("England"), Date(d), Number(10)))
	require.NoError(t, tb.Append(String("GBR.2_1"), Null(), Date(d), Null()))
	return tb
}

func TestParseCellTypesByColumn(t *testing.T) {
	opt := ParseOptions{}
	assert.Equal(t, KindString, ParseCell("gid", "123", opt).Kind())
	assert.Equal(t, KindString, ParseCell("adm_area_2", "1", opt).Kind())
	assert.Equal(t, KindDate, ParseCell("date", "2020-03-01", opt).Kind())
	assert.Equal(t, KindNumber, ParseCell("confirmed", " 42 ", opt).Kind())
	assert.Equal(t, KindString, ParseCell("source", "GBR_PHE", opt).Kind())
	assert.True(t, ParseCell("confirmed", "  ", opt).IsNull())

	f, ok := ParseNumber("1.234,5", ParseOptions{DecimalSeparator: ',', ThousandsSeparator: '.'})
	require.True(t, ok)
	assert.InDelta(t, 1234.5, f, 1e-9)
	_, ok = ParseNumber("NaN", opt)
	assert.False(t, ok)
}

func TestCompareOrdersNullsLast(t *testing.T) {
	assert.Equal(t, -1, Compare(Number(1), Null()))
	assert.Equal(t, 1, Compare(Null(), String("a")))
	assert.Equal(t, 0, Compare(Null(), Null()))
	assert.Equal(t, -1, Compare(String("a"), String("b")))
	assert.Equal(t, 1, Compare(Number(3), Number(2)))
	assert.True(t, Equal(Null(), Null()))
	assert.False(t, Equal(Null(), String("")))
	assert.False(t, Equal(Number(1), String("1")))
}

func TestColumnOperations(t *testing.T) {
	tb := sample(t)
	require.NoError(t, tb.AddColumn("parentgid", func(i int) Value { return tb.Get(i, "gid") }))
	assert.Equal(t, []string{"gid", "adm_area_1", "date", "confirmed", "parentgid"}, tb.Columns())
	assert.Error(t, tb.AddColumn("gid", nil))

	assert.True(t, tb.AllNull("missing"))
	assert.False(t, tb.AllNull("adm_area_1"))

	require.NoError(t, tb.Rename(map[string]string{"parentgid": "ancestor"}))
	assert.True(t, tb.Has("ancestor"))
	assert.Error(t, tb.Rename(map[string]string{"ancestor": "gid"}))

	tb.Drop("date", "nope")
	assert.Equal(t, []string{"gid", "adm_area_1", "confirmed", "ancestor"}, tb.Columns())
	assert.Equal(t, "GBR.2_1", tb.Get(1, "ancestor").String())
	assert.True(t, tb.Get(0, "date").IsNull())

	c := tb.Clone()
	require.NoError(t, c.Set(0, "confirmed", Number(99)))
	v, _ := tb.Get(0, "confirmed").Num()
	assert.Equal(t, 10.0, v)
}

func TestSortByAndRowKey(t *testing.T) {
	tb := New("k", "v")
	require.NoError(t, tb.Append(Null(), Number(1)))
	require.NoError(t, tb.Append(String("b"), Number(2)))
	require.NoError(t, tb.Append(String("a"), Number(3)))
	tb.SortBy("k")
	assert.Equal(t, []Value{String("a"), String("b"), Null()}, tb.Column("k"))
	assert.NotEqual(t, tb.RowKey(0, []string{"k"}), tb.RowKey(2, []string{"k"}))
	assert.Equal(t, tb.RowKey(2, []string{"k", "absent"}), tb.RowKey(2, []string{"k", "absent"}))
}

func TestJSONRoundTripKeepsTypes(t *testing.T) {
	tb := sample(t)
	b, err := json.Marshal(tb)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"2020-04-01"`)

	var back Table
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, tb.Columns(), back.Columns())
	assert.Equal(t, KindDate, back.Get(0, "date").Kind())
	assert.True(t, back.Get(1, "confirmed").IsNull())
}

func TestJSONCompositeGID(t *testing.T) {
	var tb Table
	require.NoError(t, json.Unmarshal([]byte(`{"columns":["gid","x"],"rows":[[["GBR.1_1","GBR.2_1"],1]]}`), &tb))
	assert.Equal(t, "GBR.1_1|GBR.2_1", tb.Get(0, "gid").String())

	err := json.Unmarshal([]byte(`{"columns":["gid"],"rows":[["a","b"]]}`), &tb)
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := sample(t).Markdown(1)
	assert.True(t, strings.HasPrefix(md, "| gid | adm_area_1 | date | confirmed |"))
	assert.Contains(t, md, "| GBR.1_1 | England | 2020-04-01 | 10 |")
	assert.Contains(t, md, "(1 of 2 rows shown)")
}
