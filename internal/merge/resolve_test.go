package merge

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnharveymath/oxcovid19db/internal/gid"
)

func ids(s ...string) []gid.ID {
	out := make([]gid.ID, len(s))
	for i, v := range s {
		out[i] = gid.ID(v)
	}
	return out
}

func TestResolvePrefersRightAncestors(t *testing.T) {
	p := Resolve(ids("GBR.1_1", "GBR.2_1"), ids("GBR_1"))
	assert.Equal(t, ParentMap{
		"GBR.1_1": "GBR_1",
		"GBR.2_1": "GBR_1",
		"GBR_1":   "GBR_1",
	}, p)
}

func TestResolveFallsBackToLeftAncestors(t *testing.T) {
	p := Resolve(ids("GBR_1"), ids("GBR.1_1", "GBR.2_1"))
	assert.Equal(t, ParentMap{
		"GBR_1":   "GBR_1",
		"GBR.1_1": "GBR_1",
		"GBR.2_1": "GBR_1",
	}, p)
}

func TestResolveFirstMatchWins(t *testing.T) {
	// GBR.1.1 nests under both right ids; the first in order is kept.
	p := Resolve(ids("GBR.1.1_1"), ids("GBR_1", "GBR.1_1"))
	assert.Equal(t, gid.ID("GBR_1"), p["GBR.1.1_1"])
	assert.Equal(t, gid.ID("GBR.1_1"), p["GBR.1_1"])

	p = Resolve(ids("GBR.1.1_1"), ids("GBR.1_1", "GBR_1"))
	assert.Equal(t, gid.ID("GBR.1_1"), p["GBR.1.1_1"])
}

func TestResolveRightAdoptsAssignedLeftAncestor(t *testing.T) {
	// GBR.1 is already lifted onto GBR by the first pass, so GBR.1.2,
	// which nests under GBR.1, follows it to GBR.
	p := Resolve(ids("GBR.1_1"), ids("GBR_1", "GBR.1.2_1"))
	assert.Equal(t, gid.ID("GBR_1"), p["GBR.1_1"])
	assert.Equal(t, gid.ID("GBR_1"), p["GBR.1.2_1"])
	assert.Equal(t, gid.ID("GBR_1"), p["GBR_1"])
}

func TestResolveRespectsSegmentBoundaries(t *testing.T) {
	p := Resolve(ids("GBR.10_1"), ids("GBR.1_1"))
	assert.Equal(t, gid.ID("GBR.10_1"), p["GBR.10_1"])
	assert.Equal(t, gid.ID("GBR.1_1"), p["GBR.1_1"])
}

func TestResolveUnrelatedMapToThemselves(t *testing.T) {
	p := Resolve(ids("FRA_1"), ids("DEU_1"))
	assert.Equal(t, ParentMap{"FRA_1": "FRA_1", "DEU_1": "DEU_1"}, p)
	assert.Empty(t, Resolve(nil, nil))
}

func randomIDs(r *rand.Rand, n int) []gid.ID {
	var out []gid.ID
	for i := 0; i < n; i++ {
		segs := []string{[]string{"GBR", "FRA"}[r.Intn(2)]}
		for d := r.Intn(3); d > 0; d-- {
			segs = append(segs, []string{"1", "2", "10"}[r.Intn(3)])
		}
		out = append(out, gid.ID(strings.Join(segs, ".")+"_1"))
	}
	return gid.Distinct(out)
}

func TestResolveIsTotalAndNestsUnderParent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		left, right := randomIDs(r, 1+r.Intn(6)), randomIDs(r, 1+r.Intn(6))
		p := Resolve(left, right)
		for _, id := range append(append([]gid.ID(nil), left...), right...) {
			par, ok := p[id]
			require.Truef(t, ok, "round %d: %s unmapped", round, id)
			if par == id {
				continue
			}
			assert.Truef(t, strings.HasPrefix(gid.Normalize(string(id)), gid.Normalize(string(par))),
				"round %d: %s mapped to %s", round, id, par)
		}
	}
}
