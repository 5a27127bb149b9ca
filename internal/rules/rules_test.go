package rules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDescriber struct {
	inner StaticDescriber
	calls atomic.Int32
	err   error
}

func (d *countingDescriber) DescribeColumns(ctx context.Context, table string) ([]string, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.inner.DescribeColumns(ctx, table)
}

func oxSchema() StaticDescriber {
	return StaticDescriber{
		"epidemiology": {"source", "date", "country", "countrycode", "adm_area_1", "adm_area_2", "adm_area_3", "gid", "tested", "confirmed", "dead"},
		"mobility":     {"source", "date", "gid", "transit_stations", "residential"},
		"weather":      {"source", "date", "gid", "samplesize", "precipitation_mean", "temperature_mean"},
	}
}

func TestRulesClassifyColumnsBySourceTable(t *testing.T) {
	c := NewCache(oxSchema())
	rs, err := c.Rules(context.Background())
	require.NoError(t, err)

	want := Rules{
		{"tested", Sum}, {"confirmed", Sum}, {"dead", Sum},
		{"transit_stations", Mean}, {"residential", Mean},
		{"precipitation_mean", WeightedMean}, {"temperature_mean", WeightedMean},
	}
	assert.Equal(t, want, rs)

	_, ok := rs.Lookup("samplesize")
	assert.False(t, ok, "weight column is not aggregated")
	op, ok := rs.Lookup("dead")
	assert.True(t, ok)
	assert.Equal(t, Sum, op)
}

func TestCacheDescribesEachTableOnce(t *testing.T) {
	d := &countingDescriber{inner: oxSchema()}
	c := NewCache(d)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Rules(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := c.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), d.calls.Load())
}

func TestCachesAreIsolated(t *testing.T) {
	a := NewCache(StaticDescriber{"t": {"x"}}, WithSources([]Source{{Table: "t", Op: Sum}}))
	b := NewCache(StaticDescriber{"t": {"y"}}, WithSources([]Source{{Table: "t", Op: Mean}}))
	ra, err := a.Rules(context.Background())
	require.NoError(t, err)
	rb, err := b.Rules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Rules{{"x", Sum}}, ra)
	assert.Equal(t, Rules{{"y", Mean}}, rb)
}

func TestLaterSourceOverridesOperatorButKeepsPosition(t *testing.T) {
	c := NewCache(StaticDescriber{"a": {"x", "y"}, "b": {"y", "z"}},
		WithSources([]Source{{Table: "a", Op: Sum}, {Table: "b", Op: Mean}}))
	rs, err := c.Rules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Rules{{"x", Sum}, {"y", Mean}, {"z", Mean}}, rs)
}

func TestUnknownTableIsSchemaMismatch(t *testing.T) {
	c := NewCache(StaticDescriber{}, WithSources([]Source{{Table: "nope", Op: Sum}}))
	_, err := c.Rules(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	var sm *SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, "nope", sm.Table)
}

func TestDescriberFailurePropagatesUnchanged(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewCache(&countingDescriber{err: boom})
	_, err := c.Rules(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSchemaMismatch)

	_, err = c.Columns(context.Background(), "epidemiology")
	assert.ErrorIs(t, err, boom, "failures are not cached")
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]Operator{"sum": Sum, "MEAN": Mean, "wtmean": WeightedMean, "weighted-mean": WeightedMean} {
		got, err := ParseOperator(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOperator("median")
	assert.Error(t, err)
	assert.Equal(t, "_wtmean", WeightedMean.Suffix())

	var op Operator
	require.NoError(t, op.UnmarshalText([]byte("mean")))
	assert.Equal(t, Mean, op)
}
