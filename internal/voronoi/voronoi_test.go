package voronoi

import (
	"testing"

	"hideseek/internal/geometry"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var box = orb.Bound{Min: orb.Point{9.7, 53.4}, Max: orb.Point{10.3, 53.7}}

func TestPartitionTwoSites(t *testing.T) {
	a := orb.Point{9.8, 53.5}
	b := orb.Point{10.2, 53.6}
	cells, err := Partition([]orb.Point{a, b}, box)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	assert.True(t, planar.MultiPolygonContains(cells[0], a))
	assert.False(t, planar.MultiPolygonContains(cells[0], b))
	assert.True(t, planar.MultiPolygonContains(cells[1], b))
	// 两个单元都覆盖到包围盒的角
	for _, corner := range []orb.Point{box.Min, box.Max, {box.Min[0], box.Max[1]}, {box.Max[0], box.Min[1]}} {
		in := planar.MultiPolygonContains(cells[0], corner) || planar.MultiPolygonContains(cells[1], corner)
		assert.True(t, in, "corner %v", corner)
	}
	require.NoError(t, geometry.Validate(cells[0]))
	require.NoError(t, geometry.Validate(cells[1]))
}

func TestPartitionAgreesWithNearest(t *testing.T) {
	sites := []orb.Point{{9.8, 53.5}, {10.2, 53.6}, {10.0, 53.45}, {9.9, 53.68}}
	cells, err := Partition(sites, box)
	require.NoError(t, err)
	for x := 9.71; x < 10.3; x += 0.037 {
		for y := 53.41; y < 53.7; y += 0.023 {
			p := orb.Point{x, y}
			n := Nearest(sites, p)
			assert.True(t, planar.MultiPolygonContains(cells[n], p), "point %v site %d", p, n)
		}
	}
}

func TestPartitionPaddingFloorForCloseSites(t *testing.T) {
	sites := []orb.Point{{10, 53.5}, {10.000001, 53.5}}
	cells, err := Partition(sites, orb.Bound{})
	require.NoError(t, err)
	b := cells[0].Bound().Union(cells[1].Bound())
	assert.GreaterOrEqual(t, b.Max[1]-b.Min[1], 2*minPadding-1e-9)
}

func TestPartitionCoincidentSites(t *testing.T) {
	cells, err := Partition([]orb.Point{{10, 53}, {10, 53}}, box)
	assert.Nil(t, cells)
	assert.ErrorIs(t, err, ErrCoincidentSites)
	assert.ErrorIs(t, err, geometry.ErrDegenerateInput)

	_, err = Partition(nil, box)
	assert.ErrorIs(t, err, geometry.ErrDegenerateInput)
}

func TestNearest(t *testing.T) {
	sites := []orb.Point{{0, 0}, {1, 0}}
	assert.Equal(t, 0, Nearest(sites, orb.Point{0.2, 0.5}))
	assert.Equal(t, 1, Nearest(sites, orb.Point{0.9, -3}))
	assert.Equal(t, -1, Nearest(nil, orb.Point{0, 0}))
}
