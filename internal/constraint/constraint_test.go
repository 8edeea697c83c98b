package constraint

import (
	"errors"
	"math"
	"testing"

	"hideseek/internal/geometry"
	"hideseek/internal/lookup"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	base   = geometry.FromBound(orb.Bound{Min: orb.Point{9.7, 53.4}, Max: orb.Point{10.3, 53.7}})
	center = orb.Point{10.0, 53.55}
	kernel = geometry.New(geometry.DefaultOptions())
)

func answered(id string, p question.Params) question.Question {
	return question.Question{ID: id, Status: question.Answered, Params: p}
}

func env(l lookup.Lookups) Env { return Env{Kernel: kernel, Lookups: l} }

func relClose(t *testing.T, want, got float64) {
	t.Helper()
	assert.InDelta(t, 0, math.Abs(want-got)/want, 1e-6, "want %v got %v", want, got)
}

func TestRadius(t *testing.T) {
	out := Evaluate(env(lookup.New()), answered("r", question.Radius{Center: center, Radius: 5, Unit: geometry.Kilometers, Within: true}), base)
	require.NoError(t, out.Err)
	assert.True(t, out.Changed)
	assert.True(t, kernel.Contains(out.Region, orb.Point{10.0, 53.55}))
	assert.False(t, kernel.Contains(out.Region, orb.Point{9.75, 53.45}))
}

func TestRadiusZeroIsNoop(t *testing.T) {
	for _, within := range []bool{true, false} {
		out := Evaluate(env(lookup.New()), answered("r", question.Radius{Center: center, Radius: 0, Unit: geometry.Kilometers, Within: within}), base)
		assert.ErrorIs(t, out.Err, geometry.ErrDegenerateInput)
		assert.True(t, IsNoop(out.Err))
		assert.False(t, out.Changed)
		assert.True(t, base.Equal(out.Region))
	}
}

func TestRadiusComplementarity(t *testing.T) {
	in := Evaluate(env(lookup.New()), answered("r", question.Radius{Center: center, Radius: 5, Unit: geometry.Kilometers, Within: true}), base)
	out := Evaluate(env(lookup.New()), answered("r", question.Radius{Center: center, Radius: 5, Unit: geometry.Kilometers, Within: false}), base)
	require.NoError(t, in.Err)
	require.NoError(t, out.Err)

	relClose(t, geometry.Area(base), geometry.Area(in.Region)+geometry.Area(out.Region))
	overlap, err := kernel.Intersection(in.Region, out.Region)
	require.NoError(t, err)
	assert.Less(t, geometry.Area(overlap), 1e-6*geometry.Area(base))
	assert.False(t, kernel.Contains(out.Region, center))
	assert.True(t, kernel.Contains(out.Region, orb.Point{9.75, 53.45}))
}

func TestThermometer(t *testing.T) {
	a, b := orb.Point{9.8, 53.5}, orb.Point{10.2, 53.6}
	warm := Evaluate(env(lookup.New()), answered("t", question.Thermometer{A: a, B: b, Warmer: true}), base)
	cold := Evaluate(env(lookup.New()), answered("t", question.Thermometer{A: a, B: b, Warmer: false}), base)
	require.NoError(t, warm.Err)
	require.NoError(t, cold.Err)

	assert.True(t, kernel.Contains(warm.Region, b))
	assert.False(t, kernel.Contains(warm.Region, a))
	assert.True(t, kernel.Contains(cold.Region, a))

	overlap, err := kernel.Intersection(warm.Region, cold.Region)
	require.NoError(t, err)
	assert.Less(t, geometry.Area(overlap), 1e-6*geometry.Area(base))
	relClose(t, geometry.Area(base), geometry.Area(warm.Region)+geometry.Area(cold.Region))
}

func TestThermometerCoincidentIsNoop(t *testing.T) {
	out := Evaluate(env(lookup.New()), answered("t", question.Thermometer{A: center, B: center, Warmer: true}), base)
	assert.True(t, IsNoop(out.Err))
	assert.False(t, out.Changed)
	assert.Equal(t, base, out.Region)
}

func tentaclesLookups() lookup.Lookups {
	l := lookup.New()
	l.Locations["tc"] = []question.Place{
		{Name: "west", Point: orb.Point{9.97, 53.55}},
		{Name: "east", Point: orb.Point{10.03, 53.55}},
		{Name: "east-dup", Point: orb.Point{10.03, 53.55}},
	}
	return l
}

func TestTentaclesChosenLocation(t *testing.T) {
	q := answered("tc", question.Tentacles{Center: center, Radius: 5, Unit: geometry.Kilometers, Category: "museum",
		Location: &question.Place{Name: "east", Point: orb.Point{10.03, 53.55}}})
	out := Evaluate(env(tentaclesLookups()), q, base)
	require.NoError(t, out.Err)
	assert.True(t, kernel.Contains(out.Region, orb.Point{10.03, 53.55}))
	assert.False(t, kernel.Contains(out.Region, orb.Point{9.97, 53.55}), "west cell removed")
	assert.False(t, kernel.Contains(out.Region, orb.Point{10.25, 53.55}), "outside the disc")
}

func TestTentaclesFalse(t *testing.T) {
	q := answered("tc", question.Tentacles{Center: center, Radius: 5, Unit: geometry.Kilometers, Category: "museum"})
	out := Evaluate(env(tentaclesLookups()), q, base)
	require.NoError(t, out.Err)
	assert.False(t, kernel.Contains(out.Region, center))
	assert.True(t, kernel.Contains(out.Region, orb.Point{10.25, 53.65}))

	empty := lookup.New()
	empty.Locations["tc"] = []question.Place{}
	out = Evaluate(env(empty), q, base)
	assert.True(t, IsNoop(out.Err))
	assert.Equal(t, base, out.Region)

	out = Evaluate(env(lookup.New()), q, base)
	assert.ErrorIs(t, out.Err, lookup.ErrLookupUnavailable)
	assert.False(t, IsNoop(out.Err))
	assert.Equal(t, base, out.Region)
}

func TestTentacleSites(t *testing.T) {
	locs := tentaclesLookups().Locations["tc"]
	sites, idx := TentacleSites(locs, nil)
	assert.Len(t, sites, 2)
	assert.Equal(t, -1, idx)

	sites, idx = TentacleSites(locs, &question.Place{Name: "new", Point: orb.Point{10, 53.6}})
	assert.Len(t, sites, 3)
	assert.Equal(t, 2, idx)

	_, idx = TentacleSites(locs, &locs[2])
	assert.Equal(t, 1, idx)
}

func TestMatching(t *testing.T) {
	zone := geometry.FromBound(orb.Bound{Min: orb.Point{9.9, 53.5}, Max: orb.Point{10.1, 53.6}})
	l := lookup.New()
	l.Zones["m"] = lookup.Zone{ID: "z1", Category: "district", Region: zone}

	same := Evaluate(env(l), answered("m", question.Matching{Point: center, Category: "district", Same: true}), base)
	require.NoError(t, same.Err)
	relClose(t, geometry.Area(zone), geometry.Area(same.Region))

	diff := Evaluate(env(l), answered("m", question.Matching{Point: center, Category: "district", Same: false}), base)
	require.NoError(t, diff.Err)
	assert.False(t, kernel.Contains(diff.Region, center))
	assert.True(t, kernel.Contains(diff.Region, orb.Point{9.75, 53.45}))

	missing := Evaluate(env(lookup.New()), answered("m", question.Matching{Point: center, Category: "district", Same: true}), base)
	assert.ErrorIs(t, missing.Err, lookup.ErrLookupUnavailable)
}

func TestMatchingInlineZoneTakesPrecedence(t *testing.T) {
	inline := geometry.FromBound(orb.Bound{Min: orb.Point{9.95, 53.52}, Max: orb.Point{10.05, 53.58}})
	l := lookup.New()
	l.Zones["m"] = lookup.Zone{ID: "z1", Region: base}
	out := Evaluate(env(l), answered("m", question.Matching{Point: center, Category: "custom", Same: true, Zone: inline}), base)
	require.NoError(t, out.Err)
	relClose(t, geometry.Area(inline), geometry.Area(out.Region))
}

func TestMeasuring(t *testing.T) {
	l := lookup.New()
	l.Features["ms"] = []question.Place{
		{Name: "far", Point: orb.Point{10.29, 53.69}},
		{Name: "airport", Point: orb.Point{10.2, 53.55}},
	}
	point := orb.Point{9.8, 53.55}
	closer := Evaluate(env(l), answered("ms", question.Measuring{Point: point, Category: "airport", HiderCloser: true}), base)
	require.NoError(t, closer.Err)
	assert.True(t, kernel.Contains(closer.Region, orb.Point{10.15, 53.55}))
	assert.False(t, kernel.Contains(closer.Region, orb.Point{9.85, 53.55}))

	l.Features["ms"] = nil
	none := Evaluate(env(l), answered("ms", question.Measuring{Point: point, Category: "airport", HiderCloser: true}), base)
	assert.True(t, IsNoop(none.Err))
}

func TestNearestFeature(t *testing.T) {
	_, ok := NearestFeature(nil, center)
	assert.False(t, ok)
	f, ok := NearestFeature([]question.Place{{Name: "a", Point: orb.Point{11, 53}}, {Name: "b", Point: orb.Point{10.01, 53.55}}}, center)
	require.True(t, ok)
	assert.Equal(t, "b", f.Name)
}

func TestNonFoldableQuestions(t *testing.T) {
	pending := question.Question{ID: "p", Status: question.Pending, Params: question.Radius{Center: center, Radius: 5, Unit: geometry.Kilometers, Within: true}}
	out := Evaluate(env(lookup.New()), pending, base)
	assert.NoError(t, out.Err)
	assert.False(t, out.Changed)

	out = Evaluate(env(lookup.New()), answered("u", question.Unknown{Type: "photo"}), base)
	assert.NoError(t, out.Err)
	assert.Equal(t, base, out.Region)

	out = Evaluate(env(lookup.New()), answered("x", question.Malformed{Type: question.KindRadius, Err: errors.New("lat is null")}), base)
	assert.Error(t, out.Err)
	assert.Equal(t, base, out.Region)
}

type panicKernel struct{ geometry.Kernel }

func (panicKernel) Buffer(orb.Point, float64, geometry.Unit) (geometry.Region, error) {
	panic("boom")
}

func TestEvaluateRecoversPanics(t *testing.T) {
	e := Env{Kernel: panicKernel{kernel}, Lookups: lookup.New()}
	out := Evaluate(e, answered("r", question.Radius{Center: center, Radius: 5, Unit: geometry.Kilometers, Within: true}), base)
	assert.ErrorIs(t, out.Err, geometry.ErrInvalidGeometry)
	assert.Equal(t, base, out.Region)
}

func TestEmptyCandidateStaysEmpty(t *testing.T) {
	out := Evaluate(env(lookup.New()), answered("r", question.Radius{Center: center, Radius: 5, Unit: geometry.Kilometers, Within: false}), geometry.Empty())
	require.NoError(t, out.Err)
	assert.True(t, geometry.IsEmpty(out.Region))
	assert.False(t, out.Changed)
}
