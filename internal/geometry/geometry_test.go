package geometry

import (
	"testing"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hamburg = FromBound(orb.Bound{Min: orb.Point{9.7, 53.4}, Max: orb.Point{10.3, 53.7}})

func square(minX, minY, maxX, maxY float64) Region {
	return FromBound(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}})
}

func TestIntersectionAndDifferenceIdempotence(t *testing.T) {
	k := New(DefaultOptions())
	disc, err := k.Buffer(orb.Point{10.0, 53.55}, 5, Kilometers)
	require.NoError(t, err)

	for name, r := range map[string]Region{"bbox": hamburg, "disc": disc} {
		t.Run(name, func(t *testing.T) {
			same, err := k.Intersection(r, r)
			require.NoError(t, err)
			assert.True(t, same.Equal(r))

			none, err := k.Difference(r, r)
			require.NoError(t, err)
			assert.True(t, IsEmpty(none))
		})
	}
}

func TestBufferContainsCenterAndRespectsDistance(t *testing.T) {
	k := New(DefaultOptions())
	center := orb.Point{10.0, 53.55}
	disc, err := k.Buffer(center, 5, Kilometers)
	require.NoError(t, err)
	require.NoError(t, Validate(disc))

	assert.True(t, k.Contains(disc, center))
	assert.True(t, k.Contains(disc, orb.Point{10.03, 53.56}))
	assert.False(t, k.Contains(disc, orb.Point{9.75, 53.45}))
	// 圆盘外环逆时针
	assert.Greater(t, ringSignedArea(disc[0][0]), 0.0)
	// 64 边内接多边形面积略小于 πr²
	assert.InEpsilon(t, 3.14159*5000*5000, Area(disc), 0.01)
}

func TestBufferUnitsAgree(t *testing.T) {
	k := New(DefaultOptions())
	c := orb.Point{-73.98, 40.75}
	km, err := k.Buffer(c, 1.609344, Kilometers)
	require.NoError(t, err)
	mi, err := k.Buffer(c, 1, Miles)
	require.NoError(t, err)
	m, err := k.Buffer(c, 1609.344, Meters)
	require.NoError(t, err)
	assert.InEpsilon(t, Area(km), Area(mi), 1e-9)
	assert.InEpsilon(t, Area(km), Area(m), 1e-9)
}

func TestBufferDegenerateInput(t *testing.T) {
	k := New(DefaultOptions())

	zero, err := k.Buffer(orb.Point{10, 53}, 0, Kilometers)
	require.NoError(t, err)
	assert.True(t, IsEmpty(zero))

	_, err = k.Buffer(orb.Point{10, 53}, -1, Kilometers)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = k.Buffer(orb.Point{200, 53}, 1, Kilometers)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestBufferAcrossAntimeridian(t *testing.T) {
	k := New(DefaultOptions())
	disc, err := k.Buffer(orb.Point{179.9, 0}, 50, Kilometers)
	require.NoError(t, err)
	require.NoError(t, Validate(disc))
	b := disc.Bound()
	assert.GreaterOrEqual(t, b.Min[0], -180.0)
	assert.LessOrEqual(t, b.Max[0], 180.0)
	assert.True(t, k.Contains(disc, orb.Point{179.95, 0}))
	assert.True(t, k.Contains(disc, orb.Point{-179.9, 0}))
}

func TestBufferAroundPole(t *testing.T) {
	k := New(DefaultOptions())
	disc, err := k.Buffer(orb.Point{0, 85}, 1000, Kilometers)
	require.NoError(t, err)
	require.NoError(t, Validate(disc))
	// 单个多边形，接缝落在 ±180°
	require.Len(t, disc, 1)
	assert.Equal(t, orb.Bound{Min: orb.Point{-180, disc.Bound().Min[1]}, Max: orb.Point{180, 90}}, disc.Bound())
	assert.True(t, k.Contains(disc, orb.Point{120, 88}))
	assert.False(t, k.Contains(disc, orb.Point{0, 70}))
}

func TestBufferClampsHugeDistance(t *testing.T) {
	k := New(DefaultOptions())
	disc, err := k.Buffer(orb.Point{10, 20}, 1e6, Kilometers)
	require.NoError(t, err)
	assert.False(t, IsEmpty(disc))
	assert.True(t, k.Contains(disc, orb.Point{10, 20}))
	// 对跖点附近被排除
	assert.False(t, k.Contains(disc, orb.Point{-170, -20}))
}

func TestWorldMaskComplementsHole(t *testing.T) {
	k := New(DefaultOptions())
	hole := square(0, 0, 1, 1)
	mask, err := k.WorldMask(hole)
	require.NoError(t, err)
	assert.False(t, k.Contains(mask, orb.Point{0.5, 0.5}))
	assert.True(t, k.Contains(mask, orb.Point{5, 5}))

	everything, err := k.WorldMask(Empty())
	require.NoError(t, err)
	assert.True(t, k.Contains(everything, orb.Point{0.5, 0.5}))
}

// 跨日界线的切分块、经极点闭合的圆盘都与世界包围盒共边
func TestWorldMaskOfDiscsOnWorldEdges(t *testing.T) {
	k := New(DefaultOptions())
	worldArea := Area(FromBound(World))
	cases := []struct {
		name   string
		center orb.Point
		km     float64
	}{
		{"antimeridian", orb.Point{179.9, 0}, 50},
		{"north pole", orb.Point{0, 89.9}, 100},
		{"south pole", orb.Point{0, -89}, 500},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			disc, err := k.Buffer(c.center, c.km, Kilometers)
			require.NoError(t, err)
			require.False(t, IsEmpty(disc))

			mask, err := k.WorldMask(disc)
			require.NoError(t, err)
			require.False(t, IsEmpty(mask))
			require.NoError(t, Validate(mask))
			assert.InEpsilon(t, worldArea, Area(mask)+Area(disc), 1e-4)
			assert.False(t, k.Contains(mask, c.center))
			assert.True(t, k.Contains(mask, orb.Point{-60, 30}))
		})
	}
}

func TestIntersectionWithWholeWorld(t *testing.T) {
	k := New(DefaultOptions())
	center := orb.Point{10, 53}
	disc, err := k.Buffer(center, 5000, Kilometers)
	require.NoError(t, err)

	got, err := k.Intersection(FromBound(World), disc)
	require.NoError(t, err)
	require.False(t, IsEmpty(got))
	assert.InEpsilon(t, Area(disc), Area(got), 1e-4)
	assert.True(t, k.Contains(got, center))
	assert.True(t, k.Contains(got, orb.Point{100, 89}))
	assert.False(t, k.Contains(got, orb.Point{10, -10}))

	// 与整个世界相减后一无所有
	none, err := k.Difference(disc, FromBound(World))
	require.NoError(t, err)
	assert.True(t, IsEmpty(none))
}

func TestEmptyResultGuard(t *testing.T) {
	assert.False(t, mayVanish(polyclip.DIFFERENCE, square(0, 0, 4, 4), square(1, 1, 2, 2)))
	assert.True(t, mayVanish(polyclip.DIFFERENCE, square(1, 1, 2, 2), square(0, 0, 4, 4)))
	assert.False(t, mayVanish(polyclip.INTERSECTION, square(0, 0, 2, 2), square(1, 1, 3, 3)))
	// 仅共边相接，交集可以为空
	assert.True(t, mayVanish(polyclip.INTERSECTION, square(0, 0, 1, 1), square(1, 0, 2, 1)))
	assert.False(t, mayVanish(polyclip.UNION, square(0, 0, 1, 1), Empty()))
	assert.True(t, mayVanish(polyclip.UNION, Empty(), Empty()))
}

func TestPadEdgesLeavesInteriorAlone(t *testing.T) {
	padded := padEdges(FromBound(World))
	b := padded.Bound()
	assert.Less(t, b.Min[0], -180.0)
	assert.Greater(t, b.Max[1], 90.0)

	inner := square(0, 0, 1, 1)
	assert.True(t, padEdges(inner).Equal(inner))
	// 原区域不被修改
	assert.Equal(t, World, FromBound(World).Bound())
}

func TestEmptyResultsAreValuesNotErrors(t *testing.T) {
	k := New(DefaultOptions())
	out, err := k.Intersection(square(0, 0, 1, 1), square(2, 2, 3, 3))
	require.NoError(t, err)
	assert.True(t, IsEmpty(out))

	out, err = k.Difference(square(0, 0, 1, 1), square(-1, -1, 2, 2))
	require.NoError(t, err)
	assert.True(t, IsEmpty(out))
}

func TestDifferenceProducesHole(t *testing.T) {
	k := New(DefaultOptions())
	out, err := k.Difference(square(0, 0, 4, 4), square(1, 1, 2, 2))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0], 2)
	assert.Greater(t, ringSignedArea(out[0][0]), 0.0)
	assert.Less(t, ringSignedArea(out[0][1]), 0.0)
	assert.False(t, k.Contains(out, orb.Point{1.5, 1.5}))
	assert.True(t, k.Contains(out, orb.Point{3, 3}))
}

func TestUnionMergesOverlaps(t *testing.T) {
	k := New(DefaultOptions())
	out, err := k.Union(square(0, 0, 2, 2), square(1, 1, 3, 3), Empty())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, k.Contains(out, orb.Point{2.5, 2.5}))
	assert.True(t, k.Contains(out, orb.Point{0.5, 0.5}))
	assert.False(t, k.Contains(out, orb.Point{2.5, 0.5}))
}

func TestRepairSelfIntersectingInput(t *testing.T) {
	k := New(DefaultOptions())
	bowtie := Region{orb.Polygon{orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}}
	require.ErrorIs(t, Validate(bowtie), ErrInvalidGeometry)

	fixed, err := k.Repair(bowtie)
	require.NoError(t, err)
	require.NoError(t, Validate(fixed))

	out, err := k.Intersection(bowtie, square(0, 0, 2, 2))
	require.NoError(t, err)
	assert.True(t, k.Contains(out, orb.Point{0.2, 1}))
	assert.True(t, k.Contains(out, orb.Point{1.8, 1}))
	assert.False(t, k.Contains(out, orb.Point{1, 0.5}))
}

func TestBudgetSimplifiesLargeOperands(t *testing.T) {
	k := New(Options{BufferSteps: 2048, MaxVertices: 600})
	disc, err := k.Buffer(orb.Point{10, 53.55}, 500, Kilometers)
	require.NoError(t, err)
	a, b := k.budget(disc, disc)
	assert.LessOrEqual(t, NumVertices(a)+NumVertices(b), 600)

	out, err := k.Intersection(disc, hamburg)
	require.NoError(t, err)
	assert.InEpsilon(t, Area(hamburg), Area(out), 1e-3)
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"km": Kilometers, "Miles": Miles, "m": Meters, "feet": Feet, "": Kilometers} {
		got, err := ParseUnit(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseUnit("parsec")
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestDecodeEncodeRegion(t *testing.T) {
	fc := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[5,5]}}]}`)
	r, err := DecodeRegion(fc)
	require.NoError(t, err)
	require.Len(t, r, 1)

	g := EncodeRegion(r)
	assert.Equal(t, "Polygon", g.Type)
	assert.Equal(t, "MultiPolygon", EncodeRegion(Empty()).Type)

	_, err = DecodeRegion([]byte(`not json`))
	assert.Error(t, err)
}
