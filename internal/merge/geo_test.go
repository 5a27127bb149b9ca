package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildGeoMapRightReplacesLeft(t *testing.T) {
	left := build(t, []string{"gid", "adm_area_1", "adm_area_2"},
		[]any{"GBR.1_1", "UK", "England"},
		[]any{"FRA.1_1", "France", "Auvergne"},
	)
	right := build(t, []string{"gid", "adm_area_1"},
		[]any{"GBR.1_1", "United Kingdom"},
	)
	geo := BuildGeoMap(left, right)

	v, _ := geo.Label("GBR.1_1", "adm_area_1").Str()
	assert.Equal(t, "United Kingdom", v)
	assert.True(t, geo.Label("GBR.1_1", "adm_area_2").IsNull())

	v, _ = geo.Label("FRA.1_1", "adm_area_2").Str()
	assert.Equal(t, "Auvergne", v)
	assert.True(t, geo.Label("DEU_1", "adm_area_1").IsNull())
}

func TestBuildGeoMapLaterRowWinsWithinSide(t *testing.T) {
	left := build(t, []string{"gid", "adm_area_1"},
		[]any{"ITA_1", "Italia"},
		[]any{"ITA_1", "Italy"},
	)
	geo := BuildGeoMap(left, build(t, []string{"gid", "adm_area_1"}))
	v, _ := geo.Label("ITA_1", "adm_area_1").Str()
	assert.Equal(t, "Italy", v)
}
